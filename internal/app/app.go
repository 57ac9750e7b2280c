// Package app wires the sampler's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/weather-sampler-service/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/weather-sampler-service/internal/adapter/mqtt"
	"github.com/couchcryptid/weather-sampler-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/console"
	"github.com/couchcryptid/weather-sampler-service/internal/export"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/couchcryptid/weather-sampler-service/internal/pipeline"
	"github.com/couchcryptid/weather-sampler-service/internal/store"
)

const mqttConnectTimeout = 5 * time.Second

// Run builds every component from cfg, runs the acquisition and command loops
// until exit or ctx cancellation, then shuts down within cfg.ShutdownTimeout.
// Operator commands are read from in and answered on out.
func Run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger) error {
	return run(ctx, cfg, in, out, logger, observability.NewMetrics())
}

type namedCloser struct {
	name string
	io.Closer
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) error {
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	st, err := store.Open(store.Options{
		Path:         cfg.SQLitePath,
		MaxOpenConns: cfg.DBMaxOpenConns,
		LogSQL:       cfg.LogSQL,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	if err := st.Initialize(ctx); err != nil {
		return err
	}
	if n, err := st.Count(ctx); err == nil {
		logger.Info("store ready", "path", cfg.SQLitePath, "samples", n)
	}

	fetcher := openmeteo.NewClient(cfg.OpenMeteoURL, openmeteo.Location{
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Timezone:  cfg.Timezone,
	}, cfg.FetchTimeout, metrics, logger)

	publishers, closers := buildPublishers(ctx, cfg, logger)
	defer closeAll(closers, logger)

	acquisition := pipeline.New(fetcher, pipeline.NewNormalizer(), st, publishers, logger, metrics, pipeline.Options{
		Interval:     cfg.AcquisitionInterval,
		FetchTimeout: cfg.FetchTimeout,
	})

	exporter := export.NewExporter(st, cfg.ExportDir, nil, logger, metrics)
	commands := console.New(in, out, exporter, logger)

	var srv *httpadapter.Server
	if cfg.HTTPEnabled {
		srv = httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady{
			{Name: "store", Checker: st},
			{Name: "acquisition", Checker: acquisition},
		}, statsSource(st, acquisition), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := NewCoordinator(acquisition, commands, logger).Run(ctx)
	logger.Info("shutting down", "stats", acquisition.Stats())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// statsSnapshot is the /stats response body.
type statsSnapshot struct {
	StoredSamples     int64 `json:"stored_samples"`
	Ticks             int64 `json:"ticks"`
	Stored            int64 `json:"stored_this_run"`
	FetchFailures     int64 `json:"fetch_failures"`
	NormalizeFailures int64 `json:"normalize_failures"`
	StoreFailures     int64 `json:"store_failures"`
	PublishFailures   int64 `json:"publish_failures"`
}

func statsSource(st *store.Store, acquisition *pipeline.Pipeline) httpadapter.StatsFunc {
	return func(ctx context.Context) (any, error) {
		total, err := st.Count(ctx)
		if err != nil {
			return nil, err
		}
		s := acquisition.Stats()
		return statsSnapshot{
			StoredSamples:     total,
			Ticks:             s.Ticks,
			Stored:            s.Stored,
			FetchFailures:     s.FetchFailures,
			NormalizeFailures: s.NormalizeFailures,
			StoreFailures:     s.StoreFailures,
			PublishFailures:   s.PublishFailures,
		}, nil
	}
}

// buildPublishers returns the enabled sample sinks and the closers that
// release them, in creation order.
func buildPublishers(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Publisher, []namedCloser) {
	var (
		publishers []pipeline.Publisher
		closers    []namedCloser
	)

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, w)
		closers = append(closers, namedCloser{name: "kafka writer", Closer: w})
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.MQTTEnabled {
		p := mqttadapter.NewPublisher(cfg, logger)
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		if err := p.Connect(connectCtx); err != nil {
			logger.Warn("mqtt broker unreachable, retrying in background", "error", err)
		}
		cancel()
		publishers = append(publishers, p)
		closers = append(closers, namedCloser{name: "mqtt publisher", Closer: p})
		logger.Info("mqtt publishing enabled", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}

	return publishers, closers
}

func closeAll(closers []namedCloser, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Error("close error", "component", closers[i].name, "error", err)
		}
	}
}
