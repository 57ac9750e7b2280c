// Package openmeteo fetches current conditions from the Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
)

// DefaultBaseURL is the public forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// currentVariables are requested on every fetch. rain, showers and snowfall
// are not normalized but are kept in the request for parity with the sampled
// payload.
var currentVariables = []string{
	domain.FieldTemperature,
	domain.FieldPrecipitation,
	"rain",
	"showers",
	"snowfall",
	domain.FieldWeatherCode,
	domain.FieldPressure,
	domain.FieldWindSpeed,
	domain.FieldWindDirection,
}

// Location identifies the sampled point.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Client implements the acquisition loop's Fetcher against Open-Meteo.
type Client struct {
	location   Location
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, loc Location, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		location: loc,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch retrieves the current conditions for the configured location.
// Transport failures, non-200 responses and undecodable bodies wrap
// domain.ErrFetchFailure; a body without a "current" object wraps
// domain.ErrMalformedReading.
func (c *Client) Fetch(ctx context.Context) (domain.RawReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(), nil)
	if err != nil {
		return domain.RawReading{}, fmt.Errorf("%w: create request: %w", domain.ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.RawReading{}, fmt.Errorf("%w: request: %w", domain.ErrFetchFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawReading{}, fmt.Errorf("%w: open-meteo API error: status %d: %s",
			domain.ErrFetchFailure, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.RawReading{}, fmt.Errorf("%w: decode response: %w", domain.ErrFetchFailure, err)
	}
	if len(payload.Current) == 0 || string(payload.Current) == "null" {
		return domain.RawReading{}, fmt.Errorf("%w: response has no current conditions", domain.ErrMalformedReading)
	}

	raw, err := domain.ParseRawReading(payload.Current)
	if err != nil {
		return domain.RawReading{}, err
	}

	c.logger.Debug("reading fetched", "time", raw.Time, "fields", len(raw.Values))
	return raw, nil
}

func (c *Client) requestURL() string {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(c.location.Latitude, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(c.location.Longitude, 'f', -1, 64)},
		"current":         {strings.Join(currentVariables, ",")},
		"timezone":        {c.location.Timezone},
		"wind_speed_unit": {"ms"},
	}
	return c.baseURL + "?" + params.Encode()
}

// Open-Meteo API response types.

type response struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timezone  string          `json:"timezone"`
	Current   json.RawMessage `json:"current"`
}
