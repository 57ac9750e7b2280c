package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves one raw reading from the weather provider.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RawReading, error)
}

// Normalizer converts a raw reading into a sample without an id.
type Normalizer interface {
	Normalize(raw domain.RawReading) (domain.WeatherSample, error)
}

// Appender persists a sample and returns its assigned id.
type Appender interface {
	Append(ctx context.Context, sample domain.WeatherSample) (int64, error)
}

// Publisher forwards a persisted sample to a downstream sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, sample domain.WeatherSample) error
}

// Options controls loop timing. Zero values fall back to the defaults below.
type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Clock        clockwork.Clock
}

const (
	defaultInterval     = 10 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Stats is a snapshot of loop counters.
type Stats struct {
	Ticks             int64
	Stored            int64
	FetchFailures     int64
	NormalizeFailures int64
	StoreFailures     int64
	PublishFailures   int64
}

// Pipeline runs the periodic fetch-normalize-persist-publish loop.
type Pipeline struct {
	fetcher    Fetcher
	normalizer Normalizer
	appender   Appender
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics

	clock        clockwork.Clock
	interval     time.Duration
	fetchTimeout time.Duration

	ready             atomic.Bool
	ticks             atomic.Int64
	stored            atomic.Int64
	fetchFailures     atomic.Int64
	normalizeFailures atomic.Int64
	storeFailures     atomic.Int64
	publishFailures   atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, n Normalizer, a Appender, publishers []Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		fetcher:      f,
		normalizer:   n,
		appender:     a,
		publishers:   publishers,
		logger:       logger,
		metrics:      metrics,
		clock:        opts.Clock,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
	}
}

// CheckReadiness returns nil once at least one sample has been persisted.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no sample has been stored yet")
	}
	return nil
}

// Stats returns a snapshot of the loop counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Ticks:             p.ticks.Load(),
		Stored:            p.stored.Load(),
		FetchFailures:     p.fetchFailures.Load(),
		NormalizeFailures: p.normalizeFailures.Load(),
		StoreFailures:     p.storeFailures.Load(),
		PublishFailures:   p.publishFailures.Load(),
	}
}

// Run ticks immediately, then every interval measured start to start, until
// ctx is cancelled. A tick that overruns the interval is followed at once by
// the next one. Tick failures are logged and never end the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("acquisition started", "interval", p.interval, "fetch_timeout", p.fetchTimeout)
	p.metrics.AcquisitionActive.Set(1)
	defer p.metrics.AcquisitionActive.Set(0)

	for {
		if ctx.Err() != nil {
			p.logger.Info("acquisition stopping", "reason", ctx.Err(), "stats", p.Stats())
			return nil
		}

		started := p.clock.Now()
		p.tick(ctx)

		if !p.sleep(ctx, p.interval-p.clock.Since(started)) {
			p.logger.Info("acquisition stopping", "reason", ctx.Err(), "stats", p.Stats())
			return nil
		}
	}
}

// tick runs one fetch-normalize-persist-publish cycle.
func (p *Pipeline) tick(ctx context.Context) {
	start := time.Now()
	defer func() { p.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()
	p.ticks.Add(1)
	p.metrics.Ticks.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	raw, err := p.fetcher.Fetch(fetchCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fetchFailures.Add(1)
		p.metrics.FetchErrors.Inc()
		p.logger.Warn("fetch failed, skipping tick", "error", err)
		return
	}

	sample, err := p.normalizer.Normalize(raw)
	if err != nil {
		p.normalizeFailures.Add(1)
		p.metrics.NormalizeErrors.Inc()
		p.logger.Warn("malformed reading, skipping tick", "error", err, "time", raw.Time)
		return
	}

	id, err := p.appender.Append(ctx, sample)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.storeFailures.Add(1)
		p.metrics.StoreErrors.Inc()
		p.logger.Error("store append failed, skipping tick", "error", err, "timestamp", sample.Timestamp)
		return
	}
	sample.ID = id

	p.ready.Store(true)
	p.stored.Add(1)
	p.metrics.SamplesStored.Inc()
	p.metrics.LastSampleID.Set(float64(id))
	p.logger.Info("sample stored",
		"id", id,
		"timestamp", sample.Timestamp,
		"temperature", sample.Temperature,
		"wind_speed", sample.WindSpeed,
		"wind_direction", sample.WindDirection,
		"pressure", sample.Pressure,
		"precipitation_type", sample.PrecipitationType,
		"precipitation_amount", sample.PrecipitationAmount,
	)

	p.publish(ctx, sample)
}

// publish fans a stored sample out to every sink. Failures never undo the append.
func (p *Pipeline) publish(ctx context.Context, sample domain.WeatherSample) {
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, sample); err != nil {
			p.publishFailures.Add(1)
			p.metrics.PublishErrors.WithLabelValues(pub.Name()).Inc()
			p.logger.Warn("publish failed", "sink", pub.Name(), "id", sample.ID, "error", err)
		}
	}
}

// sleep waits d on the loop clock. Returns false if ctx ended first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
