package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testLocation = Location{Latitude: 55.698538, Longitude: 37.359576, Timezone: "Europe/Moscow"}

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testLocation, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "55.698538", q.Get("latitude"))
		assert.Equal(t, "37.359576", q.Get("longitude"))
		assert.Equal(t, "Europe/Moscow", q.Get("timezone"))
		assert.Equal(t, "ms", q.Get("wind_speed_unit"))
		for _, field := range domain.RequiredFields {
			assert.Contains(t, q.Get("current"), field)
		}

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{
			"latitude": 55.7, "longitude": 37.36, "timezone": "Europe/Moscow",
			"current": {
				"time": "2024-05-01T12:00",
				"interval": 900,
				"temperature_2m": 14.2,
				"precipitation": 0.0,
				"weather_code": 3,
				"pressure_msl": 1013.0,
				"wind_speed_10m": 3.4,
				"wind_direction_10m": 200
			}
		}`)
	}))
	defer srv.Close()

	raw, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:00", raw.Time)
	assert.JSONEq(t, "14.2", string(raw.Values[domain.FieldTemperature]))

	sample, err := domain.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 12:00", sample.Timestamp)
	assert.Equal(t, "SSW", sample.WindDirection)
	assert.Equal(t, 759.83, sample.Pressure)
	assert.Equal(t, domain.NoPrecipitation, sample.PrecipitationType)
}

func TestClient_Fetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Latitude must be in range")
}

func TestClient_Fetch_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway</html>`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetchFailure)
}

func TestClient_Fetch_MissingCurrent(t *testing.T) {
	for _, body := range []string{`{"latitude": 55.7}`, `{"current": null}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		}))

		_, err := testClient(srv.URL).Fetch(context.Background())
		require.ErrorIs(t, err, domain.ErrMalformedReading, body)
		assert.NotErrorIs(t, err, domain.ErrFetchFailure, body)
		srv.Close()
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLocation, 50*time.Millisecond,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetchFailure)
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Fetch(ctx)
	require.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_RequestURL(t *testing.T) {
	c := testClient("http://example.test/v1/forecast")
	u := c.requestURL()

	assert.True(t, strings.HasPrefix(u, "http://example.test/v1/forecast?"))
	assert.Contains(t, u, "current=temperature_2m%2Cprecipitation%2Crain%2Cshowers%2Csnowfall%2Cweather_code%2Cpressure_msl%2Cwind_speed_10m%2Cwind_direction_10m")
	assert.Contains(t, u, "timezone=Europe%2FMoscow")
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", testLocation, time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
