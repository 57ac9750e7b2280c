package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// RecentLimit is the number of samples included in every export.
const RecentLimit = 10

const fileTimeLayout = "2006-01-02_15-04-05"

// SampleReader returns up to n samples, newest first.
type SampleReader interface {
	MostRecent(ctx context.Context, n int) ([]domain.WeatherSample, error)
}

// Result describes a written export.
type Result struct {
	Path  string
	Count int
}

// Exporter materializes the most recent samples into a timestamped workbook.
type Exporter struct {
	reader  SampleReader
	dir     string
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExporter creates an Exporter writing into dir. A nil clock uses real time.
func NewExporter(reader SampleReader, dir string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Exporter{
		reader:  reader,
		dir:     dir,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Export writes the RecentLimit newest samples, newest first. Store read
// failures keep their domain.ErrStoreUnavailable wrapping; an empty store or
// any file system failure wraps domain.ErrExportFailed.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	samples, err := e.reader.MostRecent(ctx, RecentLimit)
	if err != nil {
		e.metrics.Exports.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("read recent samples: %w", err)
	}
	if len(samples) == 0 {
		e.metrics.Exports.WithLabelValues("empty").Inc()
		return Result{}, fmt.Errorf("%w: no samples stored yet", domain.ErrExportFailed)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		e.metrics.Exports.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: create export dir: %w", domain.ErrExportFailed, err)
	}

	path, err := e.nextPath()
	if err != nil {
		e.metrics.Exports.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: %w", domain.ErrExportFailed, err)
	}

	if err := WriteWorkbook(path, samples); err != nil {
		e.metrics.Exports.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: %w", domain.ErrExportFailed, err)
	}

	e.metrics.Exports.WithLabelValues("success").Inc()
	e.logger.Info("export written", "path", path, "samples", len(samples))
	return Result{Path: path, Count: len(samples)}, nil
}

// nextPath names the file after the current local second, adding a _N
// suffix when an export from the same second already exists.
func (e *Exporter) nextPath() (string, error) {
	base := "weather_" + e.clock.Now().Format(fileTimeLayout)

	for n := 0; n < 1000; n++ {
		name := base + ".xlsx"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.xlsx", base, n)
		}
		path := filepath.Join(e.dir, name)

		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("too many exports named %s", base)
}
