package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Pagination    PaginationConfig    `yaml:"pagination"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	Newsletter    NewsletterConfig    `yaml:"newsletter"`
	Email         EmailConfig         `yaml:"email"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Tracking      TrackingConfig      `yaml:"tracking"`
	Worker        WorkerConfig        `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection. An empty URL runs the
// services on in-memory repositories.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for dispatcher locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PaginationConfig holds list pagination bounds
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// UploadsConfig holds file upload settings. Files go to S3 when a bucket
// is set, otherwise under Dir on local disk.
type UploadsConfig struct {
	Dir          string `yaml:"dir"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3Region     string `yaml:"s3_region"`
	PublicPrefix string `yaml:"public_prefix"`
}

// MaxBytes returns the upload size limit in bytes
func (c UploadsConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}

// NewsletterConfig holds newsletter behaviour switches
type NewsletterConfig struct {
	SubscriberScope string `yaml:"subscriber_scope"` // "global" or "company"
}

// EmailConfig selects and configures the outbound email provider
type EmailConfig struct {
	Provider     string    `yaml:"provider"` // "ses", "resend" or "log"
	FromName     string    `yaml:"from_name"`
	FromEmail    string    `yaml:"from_email"`
	ReplyTo      string    `yaml:"reply_to"`
	SES          SESConfig `yaml:"ses"`
	ResendAPIKey string    `yaml:"resend_api_key"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// NotificationsConfig selects the realtime event broker
type NotificationsConfig struct {
	Broker        string `yaml:"broker"` // "local", "postgres" or "amqp"
	AMQPURL       string `yaml:"amqp_url"`
	AMQPExchange  string `yaml:"amqp_exchange"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

// TrackingConfig holds the signing secret and public base URL of tracking
// links. With a queue URL, raw events are buffered on SQS and stored by
// the worker.
type TrackingConfig struct {
	Secret      string `yaml:"secret"`
	BaseURL     string `yaml:"base_url"`
	SQSQueueURL string `yaml:"sqs_queue_url"`
	SQSRegion   string `yaml:"sqs_region"`
}

// WorkerConfig holds dispatcher settings
type WorkerConfig struct {
	PollIntervalSeconds   int `yaml:"poll_interval_seconds"`
	BatchSize             int `yaml:"batch_size"`
	LockTTLSeconds        int `yaml:"lock_ttl_seconds"`
	TrackingRetentionDays int `yaml:"tracking_retention_days"`
}

// PollInterval returns the polling interval as a duration
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// LockTTL returns the per-campaign lock lifetime as a duration
func (c WorkerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Pagination.DefaultLimit == 0 {
		cfg.Pagination.DefaultLimit = 10
	}
	if cfg.Pagination.MaxLimit == 0 {
		cfg.Pagination.MaxLimit = 100
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "uploads"
	}
	if cfg.Uploads.MaxSizeMB == 0 {
		cfg.Uploads.MaxSizeMB = 10
	}
	if cfg.Uploads.PublicPrefix == "" {
		cfg.Uploads.PublicPrefix = "/uploads"
	}
	if cfg.Newsletter.SubscriberScope == "" {
		cfg.Newsletter.SubscriberScope = "global"
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "log"
	}
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = "newsletter@localhost"
	}
	if cfg.Email.SES.Region == "" {
		cfg.Email.SES.Region = "us-east-1"
	}
	if cfg.Notifications.Broker == "" {
		cfg.Notifications.Broker = "local"
	}
	if cfg.Notifications.AMQPExchange == "" {
		cfg.Notifications.AMQPExchange = "newsletter.events"
	}
	if cfg.Notifications.RetryAttempts == 0 {
		cfg.Notifications.RetryAttempts = 5
	}
	if cfg.Tracking.BaseURL == "" {
		cfg.Tracking.BaseURL = "http://localhost:8080"
	}
	if cfg.Worker.PollIntervalSeconds == 0 {
		cfg.Worker.PollIntervalSeconds = 30
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 10
	}
	if cfg.Worker.LockTTLSeconds == 0 {
		cfg.Worker.LockTTLSeconds = 600
	}
	if cfg.Worker.TrackingRetentionDays == 0 {
		cfg.Worker.TrackingRetentionDays = 90
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// A missing config file is not an error; defaults and env vars apply.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Uploads.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Uploads.S3Region = v
	}
	if v := os.Getenv("SUBSCRIBER_SCOPE"); v != "" {
		cfg.Newsletter.SubscriberScope = v
	}
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Email.Provider = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}
	if v := os.Getenv("SES_ACCESS_KEY"); v != "" {
		cfg.Email.SES.AccessKey = v
	}
	if v := os.Getenv("SES_SECRET_KEY"); v != "" {
		cfg.Email.SES.SecretKey = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		cfg.Email.SES.Region = v
	}
	if v := os.Getenv("SES_CONFIGURATION_SET"); v != "" {
		cfg.Email.SES.ConfigurationSet = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Email.ResendAPIKey = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Notifications.AMQPURL = v
	}
	if v := os.Getenv("NOTIFICATIONS_BROKER"); v != "" {
		cfg.Notifications.Broker = v
	}
	if v := os.Getenv("TRACKING_SECRET"); v != "" {
		cfg.Tracking.Secret = v
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}
	if v := os.Getenv("TRACKING_SQS_QUEUE_URL"); v != "" {
		cfg.Tracking.SQSQueueURL = v
	}

	return cfg, nil
}
