package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Neo4J      Neo4JConfig      `mapstructure:"neo4j"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Faster100x Faster100xConfig `mapstructure:"faster100x"`
	Health     HealthConfig     `mapstructure:"health"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env            string        `mapstructure:"env"`
	LogLevel       string        `mapstructure:"log_level"`
	HTTPPort       int           `mapstructure:"http_port"`
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL                string        `mapstructure:"url"`
	StreamName         string        `mapstructure:"stream_name"`
	SubjectPrefix      string        `mapstructure:"subject_prefix"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	DurableName        string        `mapstructure:"durable_name"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts  int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay"`
	MaxPendingMessages int           `mapstructure:"max_pending_messages"`
	Enabled            bool          `mapstructure:"enabled"`
}

// RequestSubject returns the subject analysis requests arrive on
func (c NATSConfig) RequestSubject() string {
	return c.SubjectPrefix + ".requests"
}

// ReportSubject returns the subject finished reports are published on
func (c NATSConfig) ReportSubject() string {
	return c.SubjectPrefix + ".reports"
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	Enabled                      bool          `mapstructure:"enabled"`
}

// RedisConfig represents the snapshot cache configuration
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Enabled   bool          `mapstructure:"enabled"`
}

// Faster100xConfig represents the holder data provider configuration
type Faster100xConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RequestDelay is waited before every upstream request
	RequestDelay time.Duration `mapstructure:"request_delay"`
	// RateLimitDelay is waited after an HTTP 429 before giving up the attempt
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	// ConcentrationThreshold is the largest single-holder share, in percent,
	// above which a token is withheld from analysis. 0 disables the check.
	ConcentrationThreshold float64       `mapstructure:"concentration_threshold"`
	MaxResponseBytes       int64         `mapstructure:"max_response_bytes"`
	Breaker                BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig represents circuit breaker settings for upstream calls
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/holder-risk-engine")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	// Map environment variables to nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Default values
	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.http_port", 8080)
	viper.SetDefault("app.worker_pool_size", 4)
	viper.SetDefault("app.request_timeout", "60s")

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.stream_name", "HOLDER_RISK")
	viper.SetDefault("nats.subject_prefix", "holder_risk")
	viper.SetDefault("nats.consumer_group", "holder-risk-engine")
	viper.SetDefault("nats.durable_name", "holder-risk-engine")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")
	viper.SetDefault("nats.max_pending_messages", 1000)
	viper.SetDefault("nats.enabled", false)

	// Neo4J defaults
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")
	viper.SetDefault("neo4j.enabled", false)

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.key_prefix", "holder-risk:snapshot:")
	viper.SetDefault("redis.ttl", "5m")
	viper.SetDefault("redis.enabled", false)

	// Faster100x defaults
	viper.SetDefault("faster100x.base_url", "https://faster100x.com")
	viper.SetDefault("faster100x.request_timeout", "30s")
	viper.SetDefault("faster100x.request_delay", "2s")
	viper.SetDefault("faster100x.rate_limit_delay", "5s")
	viper.SetDefault("faster100x.max_attempts", 3)
	viper.SetDefault("faster100x.concentration_threshold", 10.0)
	viper.SetDefault("faster100x.max_response_bytes", 32<<20)
	viper.SetDefault("faster100x.breaker.max_requests", 5)
	viper.SetDefault("faster100x.breaker.interval", "30s")
	viper.SetDefault("faster100x.breaker.timeout", "60s")
	viper.SetDefault("faster100x.breaker.failure_threshold", 0.8)
	viper.SetDefault("faster100x.breaker.min_requests", 5)

	// Health defaults
	viper.SetDefault("health.interval", "30s")
	viper.SetDefault("health.timeout", "5s")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.namespace", "holder_risk")

	// Bind env for service URLs
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("neo4j.uri", "NEO4J_URI")
}
