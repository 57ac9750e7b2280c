package export

import (
	"path/filepath"
	"testing"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	samples := []domain.WeatherSample{{
		ID:                  7,
		Timestamp:           "2024-05-01 12:00",
		Temperature:         14.2,
		WindSpeed:           3.4,
		WindDirection:       "SSW",
		Pressure:            759.83,
		PrecipitationType:   "Rain: slight",
		PrecipitationAmount: 0.4,
	}}
	require.NoError(t, WriteWorkbook(path, samples))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-05-01 12:00", "14.2", "3.4", "SSW", "0.4", "Rain: slight", "759.83"}, rows[1])

	for i, col := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		w, err := f.GetColWidth(SheetName, col)
		require.NoError(t, err)
		assert.InDelta(t, columnWidths[i], w, 0.01, col)
	}

	styleID, err := f.GetCellStyle(SheetName, "C1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteWorkbook_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteWorkbook(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteWorkbook_BadPath(t *testing.T) {
	err := WriteWorkbook(filepath.Join(t.TempDir(), "missing", "out.xlsx"), nil)
	require.Error(t, err)
}
