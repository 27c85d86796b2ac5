package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "ATELIER_"

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	ProviderA ProviderAConfig `koanf:"provider_a"`
	ProviderB ProviderBConfig `koanf:"provider_b"`
	Retry     RetryConfig     `koanf:"retry"`
	Poll      PollConfig      `koanf:"poll"`
	Rates     RatesConfig     `koanf:"rates"`
	Geo       GeoConfig       `koanf:"geo"`
	Storage   StorageConfig   `koanf:"storage"`
	Notifier  NotifierConfig  `koanf:"notifier"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	MigrationsPath  string        `koanf:"migrations_path" validate:"required"`
}

// StoreConfig describes where customers land after paying.
type StoreConfig struct {
	PublicURL string `koanf:"public_url" validate:"required"`
}

type ProviderAConfig struct {
	BaseURL       string        `koanf:"base_url" validate:"required"`
	SecretKey     string        `koanf:"secret_key" validate:"required"`
	WebhookSecret string        `koanf:"webhook_secret" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
}

type ProviderBConfig struct {
	BaseURL   string        `koanf:"base_url" validate:"required"`
	SecretKey string        `koanf:"secret_key" validate:"required"`
	Timeout   time.Duration `koanf:"timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries" validate:"required"`
}

type PollConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"required"`
	Interval    time.Duration `koanf:"interval" validate:"required"`
}

type RatesConfig struct {
	BaseURL  string            `koanf:"base_url" validate:"required"`
	Timeout  time.Duration     `koanf:"timeout" validate:"required"`
	TTL      time.Duration     `koanf:"ttl" validate:"required"`
	Fallback map[string]string `koanf:"fallback" validate:"required"`
}

type GeoConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

type StorageConfig struct {
	Bucket           string   `koanf:"bucket" validate:"required"`
	Region           string   `koanf:"region" validate:"required"`
	Prefix           string   `koanf:"prefix"`
	Endpoint         string   `koanf:"endpoint"`
	MaxProofBytes    int64    `koanf:"max_proof_bytes" validate:"required"`
	AllowedProofMIME []string `koanf:"allowed_proof_mime" validate:"required"`
}

type NotifierConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic" validate:"required"`
}

type TelemetryConfig struct {
	ServiceName  string `koanf:"service_name" validate:"required"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval   time.Duration `koanf:"interval" validate:"required"`
	BatchSize  int           `koanf:"batch_size" validate:"required"`
	PollGrace  time.Duration `koanf:"poll_grace" validate:"required"`
	SessionTTL time.Duration `koanf:"session_ttl" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                 "development",
		"server.port":                 "8080",
		"server.read_timeout":         "15s",
		"server.write_timeout":        "30s",
		"server.idle_timeout":         "60s",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.migrations_path":    "db/migrations",
		"provider_a.timeout":          "10s",
		"provider_b.timeout":          "10s",
		"retry.base_delay":            "500ms",
		"retry.max_retries":           3,
		"poll.max_attempts":           10,
		"poll.interval":               "2s",
		"rates.timeout":               "5s",
		"rates.ttl":                   "30m",
		"rates.fallback.usd":          "0.00063",
		"rates.fallback.eur":          "0.00058",
		"rates.fallback.gbp":          "0.00050",
		"rates.fallback.cad":          "0.00086",
		"rates.fallback.aud":          "0.00096",
		"geo.timeout":                 "2s",
		"storage.prefix":              "proofs",
		"storage.max_proof_bytes":     5 << 20,
		"storage.allowed_proof_mime":  "image/jpeg,image/png,application/pdf",
		"notifier.topic":              "order-transitions",
		"telemetry.service_name":      "atelier-orders",
		"logger.level":                "info",
		"worker.interval":             "1m",
		"worker.batch_size":           50,
		"worker.poll_grace":           "2m",
		"worker.session_ttl":          "24h",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
