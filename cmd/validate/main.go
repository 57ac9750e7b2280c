// Command validate performs data integrity checks on a sample store: row
// ordering, normalized field domains, parity with a raw readings fixture
// written by genmock, and an xlsx export round trip.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -db data/mock/weather.db \
//	  -fixture data/mock/current_readings.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/export"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/couchcryptid/weather-sampler-service/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
)

// Plausible sea-level pressure range in mmHg.
const (
	minPressure = 600
	maxPressure = 820
)

const timestampLayout = "2006-01-02 15:04"

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "", "SQLite sample store to validate")
	fixture := flag.String("fixture", "", "optional raw readings fixture written by genmock")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dbPath, *fixture); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath, fixturePath string) int {
	ctx := context.Background()

	fmt.Println("=== Weather Sample Integrity Validation ===")
	fmt.Println()

	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	st, err := store.Open(store.Options{Path: dbPath, MaxOpenConns: 1}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open store: %v\n", err)
		return 1
	}
	defer st.Close()

	total, err := st.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: count samples: %v\n", err)
		return 1
	}
	newestFirst, err := st.MostRecent(ctx, int(total))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load samples: %v\n", err)
		return 1
	}

	var readings []domain.RawReading
	if fixturePath != "" {
		readings, err = loadReadings(fixturePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		validateOrdering(newestFirst, total),
		validateFieldDomains(newestFirst),
		validateFixtureParity(newestFirst, readings, fixturePath != ""),
		validateExportRoundTrip(ctx, st, newestFirst),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d stored samples, %d fixture readings\n", total, len(readings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadReadings(path string) ([]domain.RawReading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var readings []domain.RawReading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// ── Phase 1: Ordering ──

func validateOrdering(newestFirst []domain.WeatherSample, total int64) *phase {
	p := &phase{name: "Phase 1: Ordering (ids, count)"}

	if int64(len(newestFirst)) != total {
		p.errorf("count reports %d samples, read back %d", total, len(newestFirst))
	}
	for i := 1; i < len(newestFirst); i++ {
		if newestFirst[i].ID >= newestFirst[i-1].ID {
			p.errorf("id %d listed after id %d (ids must strictly decrease newest first)",
				newestFirst[i].ID, newestFirst[i-1].ID)
		}
	}
	for _, s := range newestFirst {
		if s.ID <= 0 {
			p.errorf("sample has non-positive id %d", s.ID)
		}
	}
	return p
}

// ── Phase 2: Field domains ──

func validateFieldDomains(samples []domain.WeatherSample) *phase {
	p := &phase{name: "Phase 2: Field Domains (normalized values)"}
	for _, s := range samples {
		pf := func(format string, args ...any) {
			p.errorf("id %d: "+format, append([]any{s.ID}, args...)...)
		}

		if _, err := time.Parse(timestampLayout, s.Timestamp); err != nil {
			pf("timestamp %q is not %q", s.Timestamp, timestampLayout)
		}
		if !domain.IsCompassLabel(s.WindDirection) {
			pf("wind direction %q is not a compass label", s.WindDirection)
		}
		if !domain.IsPrecipitationLabel(s.PrecipitationType) {
			pf("precipitation type %q is not a known label", s.PrecipitationType)
		}
		if s.WindSpeed < 0 {
			pf("negative wind speed %g", s.WindSpeed)
		}
		if s.PrecipitationAmount < 0 {
			pf("negative precipitation %g", s.PrecipitationAmount)
		}
		if s.Pressure < minPressure || s.Pressure > maxPressure {
			pf("pressure %g mmHg outside [%d, %d]", s.Pressure, minPressure, maxPressure)
		}
		if s.Pressure != math.Round(s.Pressure*100)/100 {
			pf("pressure %g has more than two decimals", s.Pressure)
		}
	}
	return p
}

// ── Phase 3: Fixture parity ──
// The fixture holds the readings genmock normalized, oldest first; they must
// match the oldest stored rows.

func validateFixtureParity(newestFirst []domain.WeatherSample, readings []domain.RawReading, enabled bool) *phase {
	p := &phase{name: "Phase 3: Fixture Parity (re-normalized)"}
	if !enabled {
		fmt.Println("  Note: no -fixture given, fixture parity skipped")
		return p
	}

	if len(readings) > len(newestFirst) {
		p.errorf("fixture has %d readings, store only %d samples", len(readings), len(newestFirst))
		return p
	}

	oldestFirst := slices.Clone(newestFirst)
	slices.Reverse(oldestFirst)

	for i, raw := range readings {
		want, err := domain.Normalize(raw)
		if err != nil {
			p.errorf("fixture reading %d (%s): %v", i, raw.Time, err)
			continue
		}
		got := oldestFirst[i]
		if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.WeatherSample{}, "ID")); diff != "" {
			p.errorf("fixture reading %d vs id %d (-want +got):\n%s", i, got.ID, diff)
		}
	}
	return p
}

// ── Phase 4: Export round trip ──

func validateExportRoundTrip(ctx context.Context, st *store.Store, newestFirst []domain.WeatherSample) *phase {
	p := &phase{name: "Phase 4: Export Round Trip (xlsx)"}
	if len(newestFirst) == 0 {
		p.errorf("store is empty, nothing to export")
		return p
	}

	dir, err := os.MkdirTemp("", "validate-export-")
	if err != nil {
		p.errorf("create temp dir: %v", err)
		return p
	}
	defer os.RemoveAll(dir)

	exporter := export.NewExporter(st, dir,
		clockwork.NewFakeClockAt(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local)),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
	res, err := exporter.Export(ctx)
	if err != nil {
		p.errorf("export: %v", err)
		return p
	}

	want := newestFirst[:min(export.RecentLimit, len(newestFirst))]
	if res.Count != len(want) {
		p.errorf("export wrote %d samples, expected %d", res.Count, len(want))
	}

	f, err := excelize.OpenFile(res.Path)
	if err != nil {
		p.errorf("open %s: %v", res.Path, err)
		return p
	}
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		p.errorf("read sheet %q: %v", export.SheetName, err)
		return p
	}
	if len(rows) == 0 || !slices.Equal(rows[0], export.Headers) {
		p.errorf("header row mismatch: %q", rows)
		return p
	}
	if len(rows)-1 != len(want) {
		p.errorf("sheet has %d data rows, expected %d", len(rows)-1, len(want))
		return p
	}

	for i, s := range want {
		checkExportRow(p, i+2, rows[i+1], s)
	}
	return p
}

func checkExportRow(p *phase, line int, row []string, s domain.WeatherSample) {
	if len(row) != len(export.Headers) {
		p.errorf("row %d: %d cells, expected %d", line, len(row), len(export.Headers))
		return
	}
	text := map[int]string{0: s.Timestamp, 3: s.WindDirection, 5: s.PrecipitationType}
	for col, want := range text {
		if row[col] != want {
			p.errorf("row %d %s: expected %q, got %q", line, export.Headers[col], want, row[col])
		}
	}
	numbers := map[int]float64{1: s.Temperature, 2: s.WindSpeed, 4: s.PrecipitationAmount, 6: s.Pressure}
	for col, want := range numbers {
		got, err := strconv.ParseFloat(row[col], 64)
		if err != nil || !floatEq(got, want) {
			p.errorf("row %d %s: expected %g, got %q", line, export.Headers[col], want, row[col])
		}
	}
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
