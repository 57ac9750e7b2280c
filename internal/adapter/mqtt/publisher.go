// Package mqtt publishes stored weather samples to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// SinkName labels this publisher in logs and metrics.
const SinkName = "mqtt"

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	connectPoll    = 200 * time.Millisecond
	quiesceMillis  = 250
)

var (
	errNotConnected = errors.New("mqtt client not connected")
	errStopped      = errors.New("mqtt client stopped")
)

// Publisher implements pipeline.Publisher over a paho client.
type Publisher struct {
	client paho.Client
	topic  string
	logger *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher configures a paho client for the broker in cfg. It does not
// connect; call Connect.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	return newPublisher(paho.NewClient(opts), cfg.MQTTTopic, logger)
}

func newPublisher(client paho.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (p *Publisher) Name() string { return SinkName }

// Connect waits for the initial broker connection until ctx ends or Close is
// called. paho keeps retrying in the background after Connect gives up.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}

	if p.client.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	for {
		if token.WaitTimeout(connectPoll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errStopped
		default:
		}
	}
}

// Publish sends sample as JSON to the configured topic with QoS 1.
func (p *Publisher) Publish(ctx context.Context, sample domain.WeatherSample) error {
	if !p.client.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	token := p.client.Publish(p.topic, publishQoS, false, data)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish sample %d: %w", sample.ID, err)
	}

	p.logger.Debug("sample published", "sink", SinkName, "topic", p.topic, "id", sample.ID)
	return nil
}

// Close stops any pending Connect and disconnects. Safe to call more than once.
func (p *Publisher) Close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(quiesceMillis)
	p.logger.Info("mqtt disconnected")
	return nil
}
