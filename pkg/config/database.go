package config

import (
	"fmt"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures the job store.
type DatabaseConfig struct {
	Driver string

	// URL, when set, is used as the postgres DSN instead of the parts below.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string

	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// CreateSchema creates tables and indices at startup.
	CreateSchema bool
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", DriverPostgres),
		URL:             getEnv("DATABASE_URL", ""),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "pgque"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		Schema:          getEnv("DB_SCHEMA", "pgque"),
		SQLitePath:      getEnv("DB_SQLITE_PATH", "./pgque.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		CreateSchema:    getEnvBool("DB_CREATE_SCHEMA", true),
	}
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c DatabaseConfig) validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Schema == "" {
			return invalid("DB_SCHEMA", "must not be empty")
		}
		if c.MaxOpenConns < 1 {
			return invalid("DB_MAX_OPEN_CONNS", "must be at least 1")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("DB_SQLITE_PATH", "must not be empty")
		}
	case DriverMemory:
	default:
		return invalid("DB_DRIVER", fmt.Sprintf("unknown driver %q (use postgres, sqlite or memory)", c.Driver))
	}
	return nil
}
