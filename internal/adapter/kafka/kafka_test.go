package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC)
	sample := domain.WeatherSample{
		ID:                  42,
		Timestamp:           "2024-05-01 12:00",
		Temperature:         14.2,
		WindSpeed:           3.4,
		WindDirection:       "SSW",
		Pressure:            759.83,
		PrecipitationType:   "Rain: slight",
		PrecipitationAmount: 0.4,
	}

	msg, err := serializeToMessage(sample, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), msg.Key)
	assert.Contains(t, string(msg.Value), `"wind_direction":"SSW"`)

	var decoded domain.WeatherSample
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	if diff := cmp.Diff(sample, decoded); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	want := []kafkago.Header{
		{Key: "sample_id", Value: []byte("42")},
		{Key: "observed_at", Value: []byte("2024-05-01 12:00")},
		{Key: "published_at", Value: []byte("2024-05-01T09:00:05Z")},
	}
	assert.Equal(t, want, msg.Headers)
}

func TestNewWriter_UsesConfig(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers: []string{"broker1:9092", "broker2:9092"},
		KafkaTopic:   "weather-samples",
	}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer func() { _ = w.Close() }()

	assert.Equal(t, SinkName, w.Name())
	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "weather-samples", kw.Topic)
	assert.Equal(t, kafkago.RequireAll, kw.RequiredAcks)
}

// flakyWriter fails the first failures writes.
type flakyWriter struct {
	failures int
	calls    int
	written  []kafkago.Message
}

func (f *flakyWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("leader not available")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *flakyWriter) Close() error { return nil }

func newTestWriter(mw messageWriter) *Writer {
	return &Writer{writer: mw, topic: "weather-samples", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestPublish_RetriesTransientFailure(t *testing.T) {
	fw := &flakyWriter{failures: 2}
	w := newTestWriter(fw)

	require.NoError(t, w.Publish(context.Background(), domain.WeatherSample{ID: 3, Timestamp: "2024-05-01 12:00"}))
	assert.Equal(t, 3, fw.calls)
	require.Len(t, fw.written, 1)
	assert.Equal(t, []byte("3"), fw.written[0].Key)
}

func TestPublish_GivesUpAfterMaxAttempts(t *testing.T) {
	fw := &flakyWriter{failures: maxWriteAttempts}
	w := newTestWriter(fw)

	err := w.Publish(context.Background(), domain.WeatherSample{ID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, maxWriteAttempts, fw.calls)
	assert.Empty(t, fw.written)
}

func TestPublish_StopsOnCancelledContext(t *testing.T) {
	fw := &flakyWriter{failures: maxWriteAttempts}
	w := newTestWriter(fw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Publish(ctx, domain.WeatherSample{ID: 3})
	require.Error(t, err)
	assert.Equal(t, 1, fw.calls)
}
