package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds all sampler settings, populated from environment variables.
type Config struct {
	// Location and provider request settings.
	Latitude     float64 `validate:"gte=-90,lte=90"`
	Longitude    float64 `validate:"gte=-180,lte=180"`
	Timezone     string  `validate:"required"`
	OpenMeteoURL string  `validate:"required,url"`

	AcquisitionInterval time.Duration `validate:"gt=0"`
	FetchTimeout        time.Duration `validate:"gt=0"`

	ExportDir      string `validate:"required"`
	SQLitePath     string `validate:"required"`
	DBMaxOpenConns int    `validate:"gte=1"`
	LogSQL         bool

	HTTPEnabled     bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string `validate:"oneof=text json"`
	ShutdownTimeout time.Duration

	// Optional sample publication.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int `validate:"gte=1,lte=65535"`
	MQTTClientID string
	MQTTTopic    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	latitude, err := parseFloat("SAMPLER_LATITUDE", "55.698538")
	if err != nil {
		return nil, err
	}
	longitude, err := parseFloat("SAMPLER_LONGITUDE", "37.359576")
	if err != nil {
		return nil, err
	}

	interval, err := parseDuration("ACQUISITION_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	maxOpenConns, err := parseInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return nil, err
	}
	mqttPort, err := parseInt("MQTT_PORT", "1883")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Latitude:            latitude,
		Longitude:           longitude,
		Timezone:            sharedcfg.EnvOrDefault("SAMPLER_TIMEZONE", "Europe/Moscow"),
		OpenMeteoURL:        sharedcfg.EnvOrDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		AcquisitionInterval: interval,
		FetchTimeout:        fetchTimeout,
		ExportDir:           sharedcfg.EnvOrDefault("EXPORT_DIR", "export"),
		SQLitePath:          sharedcfg.EnvOrDefault("SQLITE_PATH", "data_weather.db"),
		DBMaxOpenConns:      maxOpenConns,
		LogSQL:              os.Getenv("LOG_SQL") == "true",
		HTTPEnabled:         os.Getenv("HTTP_ENABLED") != "false",
		HTTPAddr:            strings.TrimSpace(sharedcfg.EnvOrDefault("HTTP_ADDR", ":9090")),
		LogLevel:            sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout:     shutdownTimeout,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: compact(sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "weather-samples"),

		MQTTEnabled:  os.Getenv("MQTT_ENABLED") == "true",
		MQTTBroker:   sharedcfg.EnvOrDefault("MQTT_BROKER", "localhost"),
		MQTTPort:     mqttPort,
		MQTTClientID: sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "weather-sampler"),
		MQTTTopic:    sharedcfg.EnvOrDefault("MQTT_TOPIC", "weather/samples"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MQTTEnabled && (cfg.MQTTBroker == "" || cfg.MQTTTopic == "") {
		return nil, errors.New("MQTT_BROKER and MQTT_TOPIC are required when MQTT_ENABLED is true")
	}

	return cfg, nil
}

func parseFloat(key, def string) (float64, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseInt(key, def string) (int, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, s)
	}
	return d, nil
}

// compact drops blank entries left by stray separators.
func compact(items []string) []string {
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
