// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Canary    CanaryConfig    `mapstructure:"canary"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout/WriteTimeout in milliseconds
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Managed Service Configuration ---

type AWSConfig struct {
	Region string `mapstructure:"region"`

	SQS struct {
		NewsletterQueueURL  string `mapstructure:"newsletter_queue_url"`
		NewsSummaryQueueURL string `mapstructure:"news_summary_queue_url"`
	} `mapstructure:"sqs"`

	S3 struct {
		ArtifactBucket string `mapstructure:"artifact_bucket"`
		ArtifactPrefix string `mapstructure:"artifact_prefix"`
	} `mapstructure:"s3"`

	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`

	SNS struct {
		Enabled       bool   `mapstructure:"enabled"`
		AlertTopicARN string `mapstructure:"alert_topic_arn"`
	} `mapstructure:"sns"`

	Secrets struct {
		SigningKeyID string `mapstructure:"signing_key_id"`
	} `mapstructure:"secrets"`
}

// AuthConfig holds token and session settings.
type AuthConfig struct {
	TokenTTL   int    `mapstructure:"token_ttl"`   // seconds
	SessionTTL int    `mapstructure:"session_ttl"` // seconds
	SigningKey string `mapstructure:"signing_key"` // dev fallback; production reads Secrets Manager
}

// JobsConfig holds settings for the workflow consumer.
type JobsConfig struct {
	ModelID      string `mapstructure:"model_id"`
	PollInterval int    `mapstructure:"poll_interval"` // milliseconds
	MaxMessages  int    `mapstructure:"max_messages"`
}

// ProvidersConfig points at the external market-data and news APIs.
type ProvidersConfig struct {
	NewsBaseURL   string `mapstructure:"news_base_url"`
	MarketBaseURL string `mapstructure:"market_base_url"`
	APIKey        string `mapstructure:"api_key"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// CanaryConfig holds settings for the synthetic probes.
type CanaryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	Interval    int    `mapstructure:"interval"` // milliseconds, 0 = run once
	Timeout     int    `mapstructure:"timeout"`  // milliseconds
	UserEmail   string `mapstructure:"user_email"`
	AlertOnFail bool   `mapstructure:"alert_on_fail"`
}

// RegistryConfig points at the JSON endpoint registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
