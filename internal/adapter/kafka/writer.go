package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// SinkName labels this publisher in logs and metrics.
const SinkName = "kafka"

const (
	maxWriteAttempts = 3
	initialBackoff   = 100 * time.Millisecond
	maxBackoff       = time.Second
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes stored samples to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sample topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

func (w *Writer) Name() string { return SinkName }

// Publish writes one sample keyed by its store id, retrying failed writes
// with exponential backoff up to maxWriteAttempts times.
func (w *Writer) Publish(ctx context.Context, sample domain.WeatherSample) error {
	msg, err := serializeToMessage(sample, time.Now().UTC())
	if err != nil {
		return err
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err = w.writer.WriteMessages(ctx, msg)
		if err == nil {
			break
		}
		if attempt == maxWriteAttempts || ctx.Err() != nil {
			return fmt.Errorf("write sample %d after %d attempts: %w", sample.ID, attempt, err)
		}
		w.logger.Warn("kafka write failed, retrying", "id", sample.ID, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("write sample %d: %w", sample.ID, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}

	w.logger.Debug("sample published", "sink", SinkName, "topic", w.topic, "id", sample.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WeatherSample into a Kafka message.
func serializeToMessage(sample domain.WeatherSample, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(sample)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather sample: %w", err)
	}
	id := strconv.FormatInt(sample.ID, 10)
	return kafkago.Message{
		Key:   []byte(id),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "sample_id", Value: []byte(id)},
			{Key: "observed_at", Value: []byte(sample.Timestamp)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
