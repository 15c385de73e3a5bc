package config

import (
	"github.com/Abraxas-365/pgque/pkg/errx"
)

var configErrors = errx.NewRegistry("CONFIG")

var ErrInvalidConfig = configErrors.Register("INVALID", errx.TypeValidation, 500, "Invalid configuration")

// Config is the process configuration, read from the environment.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Server   ServerConfig
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Database: loadDatabaseConfig(),
		Redis:    loadRedisConfig(),
		Queue:    loadQueueConfig(),
		Server:   loadServerConfig(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}
	if err := c.Redis.validate(); err != nil {
		return err
	}
	if err := c.Queue.validate(); err != nil {
		return err
	}
	return c.Server.validate()
}

func invalid(key, reason string) *errx.Error {
	return configErrors.New(ErrInvalidConfig).
		WithDetail("key", key).
		WithDetail("reason", reason)
}
