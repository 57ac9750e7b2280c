// Package export writes recent weather samples to xlsx workbooks.
package export

import (
	"fmt"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet in every export.
const SheetName = "Weather"

// Headers are the fixed column titles, in column order.
var Headers = []string{
	"Time",
	"Temperature (°C)",
	"Wind speed (m/s)",
	"Wind direction",
	"Precipitation (mm)",
	"Precipitation type",
	"Pressure (mmHg)",
}

var columnWidths = []float64{20, 20, 25, 20, 20, 25, 30}

// WriteWorkbook renders samples, one row each in the given order, below a
// bold header row and saves the workbook at path.
func WriteWorkbook(path string, samples []domain.WeatherSample) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("set width of column %s: %w", col, err)
		}
	}

	for i, s := range samples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			s.Timestamp,
			s.Temperature,
			s.WindSpeed,
			s.WindDirection,
			s.PrecipitationAmount,
			s.PrecipitationType,
			s.Pressure,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
