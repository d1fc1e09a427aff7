package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" yaml:"service_name"`
	LogLevel    string `envconfig:"LOG_LEVEL" yaml:"log_level"`

	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

// HTTPConfig holds HTTP listener settings
type HTTPConfig struct {
	Host               string        `envconfig:"HTTP_HOST" yaml:"host"`
	Port               int           `envconfig:"PORT" yaml:"port"`
	ReadTimeout        time.Duration `envconfig:"HTTP_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout       time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins"`
}

// DatabaseConfig holds storage settings
type DatabaseConfig struct {
	Driver     string `envconfig:"DATABASE_DRIVER" yaml:"driver"`
	SQLitePath string `envconfig:"SQLITE_PATH" yaml:"sqlite_path"`
	URL        string `envconfig:"DATABASE_URL" yaml:"url"`
}

// RabbitMQConfig holds RabbitMQ connection and queue settings.
// An empty URL disables both the ingest consumer and the event publisher.
type RabbitMQConfig struct {
	URL              string `envconfig:"RABBITMQ_URL" yaml:"url"`
	IngestExchange   string `envconfig:"RABBITMQ_INGEST_EXCHANGE" yaml:"ingest_exchange"`
	IngestQueue      string `envconfig:"RABBITMQ_INGEST_QUEUE" yaml:"ingest_queue"`
	IngestRoutingKey string `envconfig:"RABBITMQ_INGEST_ROUTING_KEY" yaml:"ingest_routing_key"`
	EventsExchange   string `envconfig:"RABBITMQ_EVENTS_EXCHANGE" yaml:"events_exchange"`
	DLQQueue         string `envconfig:"RABBITMQ_DLQ_QUEUE" yaml:"dlq_queue"`
	PrefetchCount    int    `envconfig:"RABBITMQ_PREFETCH" yaml:"prefetch"`
}

// Enabled reports whether a broker is configured
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// AnomalyConfig holds anomaly detection settings
type AnomalyConfig struct {
	SpikeThreshold            float64 `envconfig:"ANOMALY_SPIKE_THRESHOLD" yaml:"spike_threshold"`
	MinDataPointsForDetection int     `envconfig:"ANOMALY_MIN_DATA_POINTS" yaml:"min_data_points"`
}

// RateLimitConfig holds per-client rate limiting settings.
// A non-positive RequestsPerSecond disables limiting, which is the default:
// throttled requests never reach the service and leave no audit entry.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" yaml:"burst"`
}

// RedisConfig holds the profile store connection
type RedisConfig struct {
	URL       string `envconfig:"REDIS_URL" yaml:"url"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" yaml:"key_prefix"`
}

// OpenAIConfig holds text completion settings
type OpenAIConfig struct {
	APIKey string `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	Model  string `envconfig:"OPENAI_MODEL" yaml:"model"`
}

// Load loads configuration from defaults, an optional YAML file and then
// environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServiceName: "twinenergy-api",
		LogLevel:    "info",
		HTTP: HTTPConfig{
			Host:               "0.0.0.0",
			Port:               5000,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/twinenergy.db",
		},
		RabbitMQ: RabbitMQConfig{
			IngestExchange:   "twinenergy.ingest.exchange",
			IngestQueue:      "twinenergy.ingest.queue",
			IngestRoutingKey: "energy.reading.raw",
			EventsExchange:   "twinenergy.events.exchange",
			DLQQueue:         "twinenergy.ingest.dlq",
			PrefetchCount:    10,
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            3.0,
			MinDataPointsForDetection: 3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             100,
		},
		Redis: RedisConfig{
			KeyPrefix: "twinenergy:profile:",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER=%s", DriverSQLite)
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if c.RabbitMQ.Enabled() && c.RabbitMQ.PrefetchCount <= 0 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be positive, got %d", c.RabbitMQ.PrefetchCount)
	}

	return nil
}

// Addr returns the HTTP listen address
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
