// Command genmock seeds a sample store with synthetic Open-Meteo readings.
// Every reading goes through the real normalizer so the stored rows match
// what the acquisition loop would write. Optionally the raw "current"
// objects are also written as a JSON fixture.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -db data/mock/weather.db \
//	  -count 48 -step 30m \
//	  -json-out data/mock/current_readings.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"maps"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/store"
	"github.com/jonboulle/clockwork"
)

// weatherCodes is the pool readings draw from; roughly a third are dry.
var weatherCodes = []int{0, 1, 2, 3, 45, 51, 53, 61, 63, 65, 71, 73, 80, 81, 95}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "", "SQLite file to seed (created if missing)")
	count := flag.Int("count", 24, "number of samples to generate")
	step := flag.Duration("step", time.Hour, "time between generated readings")
	start := flag.String("start", "2024-05-01T00:00", "timestamp of the first reading (YYYY-MM-DDTHH:MM)")
	seed := flag.Uint64("seed", 42, "random seed for reproducible fixtures")
	jsonOut := flag.String("json-out", "", "optional path for the raw readings fixture")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -db")
	}
	if *count < 1 {
		return fmt.Errorf("-count must be positive")
	}

	startAt, err := time.Parse("2006-01-02T15:04", *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	clock := clockwork.NewFakeClockAt(startAt)
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	ctx := context.Background()
	st, err := store.Open(store.Options{Path: *dbPath, MaxOpenConns: 1}, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Initialize(ctx); err != nil {
		return err
	}

	readings := make([]map[string]any, 0, *count)
	labels := map[string]int{}

	for range *count {
		current := syntheticReading(clock.Now(), rng)
		readings = append(readings, current)

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal reading: %w", err)
		}
		raw, err := domain.ParseRawReading(data)
		if err != nil {
			return err
		}
		sample, err := domain.Normalize(raw)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", raw.Time, err)
		}
		if _, err := st.Append(ctx, sample); err != nil {
			return err
		}
		labels[sample.PrecipitationType]++

		clock.Advance(*step)
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("seeded %d samples into %s (store now holds %d)", *count, *dbPath, total)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, readings); err != nil {
			return fmt.Errorf("writing fixture: %w", err)
		}
		log.Printf("wrote readings fixture: %s", *jsonOut)
	}

	printStats(labels)
	return nil
}

// syntheticReading builds one Open-Meteo "current" object observed at t.
func syntheticReading(t time.Time, rng *rand.Rand) map[string]any {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	diurnal := math.Sin((hour - 9) / 24 * 2 * math.Pi)

	code := weatherCodes[rng.IntN(len(weatherCodes))]
	precipitation := 0.0
	if domain.PrecipitationLabel(fmt.Sprint(code)) != domain.NoPrecipitation {
		precipitation = round1(rng.Float64() * 4)
	}

	return map[string]any{
		"time":                    t.Format("2006-01-02T15:04"),
		"interval":                900,
		domain.FieldTemperature:   round1(12 + 6*diurnal + rng.NormFloat64()),
		domain.FieldPrecipitation: precipitation,
		"rain":                    precipitation,
		"showers":                 0.0,
		"snowfall":                0.0,
		domain.FieldWeatherCode:   code,
		domain.FieldPressure:      round1(1013 + rng.NormFloat64()*6),
		domain.FieldWindSpeed:     round1(math.Abs(3 + rng.NormFloat64()*1.5)),
		domain.FieldWindDirection: rng.IntN(360),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // fixture file, not sensitive
}

func printStats(labels map[string]int) {
	fmt.Println("\nPrecipitation types:")
	for _, label := range slices.Sorted(maps.Keys(labels)) {
		fmt.Printf("  %-32s %d\n", label, labels[label])
	}
}
