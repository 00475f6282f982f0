package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	WatchInterval   time.Duration `mapstructure:"watch_interval"` // job watch poll interval
}

// AuthConfig contains bearer token verification settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"` // used when issuing dev tokens
}

// DatabaseConfig contains job store configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, mysql
	DSN    string `mapstructure:"dsn"`    // sqlite file path or mysql DSN
}

// QueueConfig contains delivery queue and reconciliation configuration
type QueueConfig struct {
	Driver        string        `mapstructure:"driver"` // memory, redis
	BufferSize    int           `mapstructure:"buffer_size"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisKey      string        `mapstructure:"redis_key"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	RequeueAfter  time.Duration `mapstructure:"requeue_after"`
	PendingTTL    time.Duration `mapstructure:"pending_ttl"`
	LeaseTTL      time.Duration `mapstructure:"lease_ttl"` // redis only: per-job fulfillment lease
}

// FulfillmentConfig contains worker configuration
type FulfillmentConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	PerPlatformLimit int           `mapstructure:"per_platform_limit"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay    time.Duration `mapstructure:"max_retry_delay"`
	SimulatedLatency time.Duration `mapstructure:"simulated_latency"`
	AutoStartWorkers bool          `mapstructure:"auto_start_workers"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category logs; empty disables them
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			WatchInterval:   500 * time.Millisecond,
		},
		Auth: AuthConfig{
			Issuer:   "mediagrab",
			TokenTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "$HOME/.mediagrab/mediagrab.db",
		},
		Queue: QueueConfig{
			Driver:        "memory",
			BufferSize:    1024,
			RedisAddr:     "localhost:6379",
			RedisKey:      "mediagrab:jobs",
			CheckInterval: 30 * time.Second,
			RequeueAfter:  time.Minute,
			PendingTTL:    30 * time.Minute,
			LeaseTTL:      30 * time.Second,
		},
		Fulfillment: FulfillmentConfig{
			Concurrency:      4,
			PerPlatformLimit: 2,
			MaxRetries:       3,
			RetryDelay:       2 * time.Second,
			MaxRetryDelay:    30 * time.Second,
			SimulatedLatency: 2 * time.Second,
			AutoStartWorkers: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.mediagrab/logs",
		},
	}
}
