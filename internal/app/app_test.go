package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/couchcryptid/weather-sampler-service/internal/pipeline"
	"github.com/couchcryptid/weather-sampler-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const currentConditions = `{
	"latitude": 55.7, "longitude": 37.36, "timezone": "Europe/Moscow",
	"current": {
		"time": "2024-05-01T12:00",
		"temperature_2m": 14.2,
		"precipitation": 0.4,
		"weather_code": 61,
		"pressure_msl": 1013.0,
		"wind_speed_10m": 3.4,
		"wind_direction_10m": 200
	}
}`

// syncBuffer guards a bytes.Buffer written by the console and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, providerURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Latitude:            55.698538,
		Longitude:           37.359576,
		Timezone:            "Europe/Moscow",
		OpenMeteoURL:        providerURL,
		AcquisitionInterval: time.Hour,
		FetchTimeout:        2 * time.Second,
		ExportDir:           filepath.Join(dir, "export"),
		SQLitePath:          filepath.Join(dir, "data", "weather.db"),
		DBMaxOpenConns:      1,
		HTTPEnabled:         false,
		LogFormat:           "text",
		ShutdownTimeout:     2 * time.Second,
	}
}

// storedCount reads the sample count through a second handle; 0 until the
// schema exists.
func storedCount(path string) int64 {
	st, err := store.Open(store.Options{Path: path}, discardLogger())
	if err != nil {
		return 0
	}
	defer func() { _ = st.Close() }()
	n, err := st.Count(context.Background())
	if err != nil {
		return 0
	}
	return n
}

func TestRun_ExportThenExit(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, currentConditions)
	}))
	defer provider.Close()

	cfg := testConfig(t, provider.URL)
	in, operator := io.Pipe()
	defer func() { _ = operator.Close() }()
	var out syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), cfg, in, &out, discardLogger(), observability.NewMetricsForTesting())
	}()

	require.Eventually(t, func() bool { return storedCount(cfg.SQLitePath) == 1 },
		5*time.Second, 20*time.Millisecond, "first tick never stored a sample")

	_, err := io.WriteString(operator, "export_xlsx\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "exported 1 samples to") },
		5*time.Second, 20*time.Millisecond)

	start := time.Now()
	_, err = io.WriteString(operator, "exit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("exit did not stop the process while acquisition slept")
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	entries, err := os.ReadDir(cfg.ExportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := excelize.OpenFile(filepath.Join(cfg.ExportDir, entries[0].Name()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Weather")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-05-01 12:00", "14.2", "3.4", "SSW", "0.4", "Rain: slight", "759.83"}, rows[1])
}

func TestRun_ProviderDownKeepsRunning(t *testing.T) {
	var hits sync.WaitGroup
	hits.Add(1)
	var once sync.Once
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		once.Do(hits.Done)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	cfg := testConfig(t, provider.URL)
	in, operator := io.Pipe()
	defer func() { _ = operator.Close() }()
	var out syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), cfg, in, &out, discardLogger(), observability.NewMetricsForTesting())
	}()

	hits.Wait()
	_, err := io.WriteString(operator, "export_xlsx\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "export failed: no samples stored yet")
	}, 5*time.Second, 20*time.Millisecond)

	_, err = io.WriteString(operator, "exit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("exit did not stop the process")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, currentConditions)
	}))
	defer provider.Close()

	cfg := testConfig(t, provider.URL)
	in, operator := io.Pipe()
	defer func() { _ = operator.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, in, io.Discard, discardLogger(), observability.NewMetricsForTesting())
	}()

	require.Eventually(t, func() bool { return storedCount(cfg.SQLitePath) == 1 },
		5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("signal-style cancellation did not stop the process")
	}
}

func TestRun_StoreOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := testConfig(t, "http://127.0.0.1:1/v1/forecast")
	cfg.SQLitePath = filepath.Join(blocker, "weather.db")

	err := run(context.Background(), cfg, bytes.NewReader(nil), io.Discard, discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestStatsSource(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(store.Options{Path: filepath.Join(t.TempDir(), "weather.db")}, discardLogger())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Initialize(ctx))
	_, err = st.Append(ctx, domain.WeatherSample{Timestamp: "2024-05-01 12:00", WindDirection: "N", PrecipitationType: domain.NoPrecipitation})
	require.NoError(t, err)

	acquisition := pipeline.New(nil, nil, nil, nil, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	snapshot, err := statsSource(st, acquisition)(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsSnapshot{StoredSamples: 1}, snapshot)

	require.NoError(t, st.Close())
	_, err = statsSource(st, acquisition)(ctx)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
