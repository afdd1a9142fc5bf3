package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver            = errors.New("store.driver must be one of: dynamodb, postgres")
	ErrMissingTable             = errors.New("store.table is required for the dynamodb driver")
	ErrInvalidEnrichTTL         = errors.New("enrich.ttl_days must be at least 1")
	ErrInvalidWriteConcurrency  = errors.New("enrich.write_concurrency must be at least 1")
	ErrMissingPerplexitySecret  = errors.New("perplexity.api_key or perplexity.api_key_param is required")
	ErrInvalidAvailabilityZone  = errors.New("app.timezone is not a valid IANA time zone")
	ErrInvalidPerplexityTimeout = errors.New("perplexity.timeout must be positive")
)

type Config struct {
	App AppConfig `mapstructure:"app"`

	// Record store
	Store StoreConfig `mapstructure:"store"`
	AWS   AWSConfig   `mapstructure:"aws"`

	// PostgreSQL (store.driver=postgres)
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis read-through cache
	Redis RedisConfig `mapstructure:"redis"`

	// NATS resource events
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// External search
	Perplexity PerplexityConfig `mapstructure:"perplexity"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`

	Sweeper SweeperConfig `mapstructure:"sweeper"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`
	LogFile     string `mapstructure:"log_file"`
	Timezone    string `mapstructure:"timezone"`
}

// IsDevelopment reports whether the service runs outside production.
func (c AppConfig) IsDevelopment() bool {
	return c.Env != "production"
}

type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Table     string `mapstructure:"table"`
	TypeIndex string `mapstructure:"type_index"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the DynamoDB endpoint, e.g. DynamoDB Local.
	Endpoint string `mapstructure:"endpoint"`
}

type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Port            int    `mapstructure:"port"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type PerplexityConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	APIKeyParam string        `mapstructure:"api_key_param"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type EnrichConfig struct {
	TTLDays          int `mapstructure:"ttl_days"`
	WriteConcurrency int `mapstructure:"write_concurrency"`
}

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Keep the env variable names of the Lambda deployment working.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverDynamoDB:
		if c.Store.Table == "" {
			return ErrMissingTable
		}
	case DriverPostgres:
	default:
		return ErrUnknownDriver
	}

	if c.Enrich.TTLDays < 1 {
		return ErrInvalidEnrichTTL
	}
	if c.Enrich.WriteConcurrency < 1 {
		return ErrInvalidWriteConcurrency
	}
	if c.Perplexity.APIKey == "" && c.Perplexity.APIKeyParam == "" {
		return ErrMissingPerplexitySecret
	}
	if c.Perplexity.Timeout <= 0 {
		return ErrInvalidPerplexityTimeout
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAvailabilityZone, c.App.Timezone)
	}

	return nil
}

// Location returns the time zone used to evaluate opening hours.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_encoding", "")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("store.driver", DriverDynamoDB)
	v.SetDefault("store.table", "ResourcesTable")
	v.SetDefault("store.type_index", "ResourceTypeIndex")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "resources")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "5m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 30*time.Second)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.user", "")
	v.SetDefault("nats.password", "")

	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.api_key", "")
	v.SetDefault("perplexity.api_key_param", "/cic/perplexity-api-key")
	v.SetDefault("perplexity.timeout", 25*time.Second)

	v.SetDefault("enrich.ttl_days", 30)
	v.SetDefault("enrich.write_concurrency", 1)

	v.SetDefault("sweeper.interval", time.Minute)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.port", "PORT")
	v.BindEnv("app.log_level", "LOG_LEVEL")
	v.BindEnv("app.log_encoding", "LOG_FORMAT")
	v.BindEnv("app.timezone", "AVAILABILITY_TZ")

	// Lambda environment
	v.BindEnv("store.table", "RESOURCES_TABLE")
	v.BindEnv("store.type_index", "RESOURCE_TYPE_INDEX")
	v.BindEnv("perplexity.api_key_param", "PERPLEXITY_API_KEY_PARAM")
	v.BindEnv("perplexity.api_key", "PERPLEXITY_API_KEY")
	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("aws.endpoint", "DYNAMODB_ENDPOINT")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
}
