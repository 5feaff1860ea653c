// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// InsecurePlaceholderSecret is the development signing secret shipped in .env.example.
// Startup fails when it is still set while APP_ENV=production.
const InsecurePlaceholderSecret = "dev-secret-key-change-in-production"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required by cmd/server, cmd/migrate, and cmd/seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTSecret signs session tokens (HS256). Must not be the insecure placeholder in production.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// TokenTTLRaw is the session token lifetime (e.g. "720h" = 30 days).
	TokenTTLRaw string `mapstructure:"TOKEN_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// ActivationURLBase is the purchase/activation page; the raw device id is appended
	// as the device query parameter for unregistered and expired devices.
	ActivationURLBase string `mapstructure:"ACTIVATION_URL_BASE"`
	// TrialDays is the trial window length granted by cmd/seed and GrantTrial.
	TrialDays int `mapstructure:"TRIAL_DAYS"`

	// RazorpayWebhookSecret is the shared secret for webhook signature verification.
	// Required in production.
	RazorpayWebhookSecret string `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`

	// OTPTTLRaw is how long a password-reset code stays valid (default "10m").
	OTPTTLRaw string `mapstructure:"OTP_TTL"`
	// OTPReturnToClient when true enables dev OTP mode: the reset response includes the
	// plain code so no mail delivery is needed locally. Must not be true in production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// MailAPIURL is the outbound mail API endpoint for OTP delivery; empty disables delivery.
	MailAPIURL string `mapstructure:"MAIL_API_URL"`
	// MailAPIKey authenticates against the mail API.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailSender is the From address for OTP mail.
	MailSender string `mapstructure:"MAIL_SENDER"`

	// Events (optional). When Kafka brokers are set, the server publishes domain events to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for domain events (default coolmath-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the events worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the events worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC endpoint for metrics (e.g. http://localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("JWT_SECRET", InsecurePlaceholderSecret)
	v.SetDefault("TOKEN_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ACTIVATION_URL_BASE", "https://coolmath.in/activate")
	v.SetDefault("TRIAL_DAYS", 7)
	v.SetDefault("RAZORPAY_WEBHOOK_SECRET", "")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("MAIL_API_URL", "")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_SENDER", "no-reply@coolmath.in")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "coolmath-events")
	v.SetDefault("KAFKA_GROUP_ID", "coolmath-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == "" || cfg.JWTSecret == InsecurePlaceholderSecret {
			return nil, errors.New("config: JWT_SECRET must be set to a real secret when APP_ENV=production")
		}
		if cfg.RazorpayWebhookSecret == "" {
			return nil, errors.New("config: RAZORPAY_WEBHOOK_SECRET must be set when APP_ENV=production")
		}
		if cfg.OTPReturnToClient {
			return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
		}
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.TrialDays <= 0 {
		return nil, errors.New("config: TRIAL_DAYS must be positive")
	}

	cfg.ActivationURLBase = strings.TrimRight(cfg.ActivationURLBase, "/")

	return &cfg, nil
}

// TokenTTL parses TOKEN_TTL as a time.Duration. Returns 720h (30 days) if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.TokenTTLRaw)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// OTPTTL parses OTP_TTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPTTL() time.Duration {
	d, err := time.ParseDuration(c.OTPTTLRaw)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
