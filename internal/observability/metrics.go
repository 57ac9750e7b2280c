package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the sampler.
type Metrics struct {
	Ticks             prometheus.Counter
	FetchErrors       prometheus.Counter
	NormalizeErrors   prometheus.Counter
	StoreErrors       prometheus.Counter
	SamplesStored     prometheus.Counter
	AcquisitionActive prometheus.Gauge
	LastSampleID      prometheus.Gauge

	TickDuration  prometheus.Histogram
	FetchDuration prometheus.Histogram

	// Fan-out and operator metrics.
	PublishErrors *prometheus.CounterVec // labels: sink={kafka,mqtt}
	Exports       *prometheus.CounterVec // labels: outcome={success,empty,error}
}

// NewMetrics creates and registers all sampler metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Ticks,
		m.FetchErrors,
		m.NormalizeErrors,
		m.StoreErrors,
		m.SamplesStored,
		m.AcquisitionActive,
		m.LastSampleID,
		m.TickDuration,
		m.FetchDuration,
		m.PublishErrors,
		m.Exports,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "ticks_total",
			Help:      "Acquisition ticks started.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "fetch_errors_total",
			Help:      "Ticks skipped because the provider fetch failed.",
		}),
		NormalizeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "normalize_errors_total",
			Help:      "Ticks skipped because the reading was malformed.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "store_errors_total",
			Help:      "Ticks skipped because the sample could not be persisted.",
		}),
		SamplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "samples_stored_total",
			Help:      "Samples appended to the store.",
		}),
		AcquisitionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_sampler",
			Name:      "acquisition_running",
			Help:      "1 when the acquisition loop is active, 0 when shut down.",
		}),
		LastSampleID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_sampler",
			Name:      "last_sample_id",
			Help:      "Store id of the most recently appended sample.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_sampler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-persist tick.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_sampler",
			Name:      "fetch_duration_seconds",
			Help:      "Open-Meteo API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "publish_errors_total",
			Help:      "Failed sample publications by sink.",
		}, []string{"sink"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_sampler",
			Name:      "exports_total",
			Help:      "Operator exports by outcome.",
		}, []string{"outcome"}),
	}
}
