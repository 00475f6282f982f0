package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediagrab")
		v.AddConfigPath("/etc/mediagrab")
	}

	v.SetEnvPrefix("MEDIAGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about
	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)
	v.SetDefault("server.shutdown_timeout", config.Server.ShutdownTimeout)
	v.SetDefault("server.watch_interval", config.Server.WatchInterval)

	v.SetDefault("auth.jwt_secret", config.Auth.JWTSecret)
	v.SetDefault("auth.issuer", config.Auth.Issuer)
	v.SetDefault("auth.token_ttl", config.Auth.TokenTTL)

	v.SetDefault("database.driver", config.Database.Driver)
	v.SetDefault("database.dsn", config.Database.DSN)

	v.SetDefault("queue.driver", config.Queue.Driver)
	v.SetDefault("queue.buffer_size", config.Queue.BufferSize)
	v.SetDefault("queue.redis_addr", config.Queue.RedisAddr)
	v.SetDefault("queue.redis_password", config.Queue.RedisPassword)
	v.SetDefault("queue.redis_db", config.Queue.RedisDB)
	v.SetDefault("queue.redis_key", config.Queue.RedisKey)
	v.SetDefault("queue.check_interval", config.Queue.CheckInterval)
	v.SetDefault("queue.requeue_after", config.Queue.RequeueAfter)
	v.SetDefault("queue.pending_ttl", config.Queue.PendingTTL)
	v.SetDefault("queue.lease_ttl", config.Queue.LeaseTTL)

	v.SetDefault("fulfillment.concurrency", config.Fulfillment.Concurrency)
	v.SetDefault("fulfillment.per_platform_limit", config.Fulfillment.PerPlatformLimit)
	v.SetDefault("fulfillment.max_retries", config.Fulfillment.MaxRetries)
	v.SetDefault("fulfillment.retry_delay", config.Fulfillment.RetryDelay)
	v.SetDefault("fulfillment.max_retry_delay", config.Fulfillment.MaxRetryDelay)
	v.SetDefault("fulfillment.simulated_latency", config.Fulfillment.SimulatedLatency)
	v.SetDefault("fulfillment.auto_start_workers", config.Fulfillment.AutoStartWorkers)

	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
	v.SetDefault("logging.logs_dir", config.Logging.LogsDir)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	if config.Database.Driver == "sqlite" {
		config.Database.DSN = expandPath(config.Database.DSN)
	}
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret not configured (set MEDIAGRAB_AUTH_JWT_SECRET)")
	}

	switch config.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn not configured")
	}

	switch config.Queue.Driver {
	case "memory":
		if config.Queue.BufferSize < 1 {
			return fmt.Errorf("queue buffer size must be at least 1")
		}
	case "redis":
		if config.Queue.RedisAddr == "" || config.Queue.RedisKey == "" {
			return fmt.Errorf("redis queue needs redis_addr and redis_key")
		}
		if config.Queue.LeaseTTL <= 0 {
			return fmt.Errorf("redis queue needs a positive lease_ttl")
		}
	default:
		return fmt.Errorf("unsupported queue driver: %s", config.Queue.Driver)
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	if config.Queue.PendingTTL < config.Queue.RequeueAfter {
		return fmt.Errorf("pending ttl cannot be shorter than requeue_after")
	}

	if config.Fulfillment.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if config.Fulfillment.PerPlatformLimit < 1 {
		return fmt.Errorf("per platform limit must be at least 1")
	}

	if config.Fulfillment.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if config.Fulfillment.RetryDelay < 0 || config.Fulfillment.MaxRetryDelay < config.Fulfillment.RetryDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= retry_delay <= max_retry_delay")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
