package config_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/config"
	"github.com/Abraxas-365/pgque/pkg/errx"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Queue.ExpireInterval != 2*time.Minute || cfg.Queue.ArchiveInterval != 10*time.Minute {
		t.Fatalf("unexpected sweep intervals %+v", cfg.Queue)
	}
	if cfg.Queue.ArchiveRetention != 12*time.Hour || cfg.Queue.PurgeRetention != 7*24*time.Hour {
		t.Fatalf("unexpected retentions %+v", cfg.Queue)
	}
	if cfg.Redis.Enabled {
		t.Fatal("redis is opt-in")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/q.db")
	t.Setenv("JOBX_QUEUES", "email, sms ,")
	t.Setenv("JOBX_BATCH_SIZE", "10")
	t.Setenv("JOBX_POLL_INTERVAL", "250ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != config.DriverSQLite || cfg.Database.SQLitePath != "/tmp/q.db" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if len(cfg.Queue.Queues) != 2 || cfg.Queue.Queues[0] != "email" || cfg.Queue.Queues[1] != "sms" {
		t.Fatalf("unexpected queues %v", cfg.Queue.Queues)
	}
	if cfg.Queue.BatchSize != 10 || cfg.Queue.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected queue config %+v", cfg.Queue)
	}
	if cfg.Redis.Address() != "localhost:6380" {
		t.Fatalf("unexpected redis address %s", cfg.Redis.Address())
	}
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":              "mysql",
		"JOBX_BATCH_SIZE":        "0",
		"JOBX_ARCHIVE_RETENTION": "-1h",
		"JOBX_EXPIRE_INTERVAL":   "0s",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load()
			if !errx.IsCode(err, config.ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got %v", err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	if got := c.DSN(); got != "host=db port=5433 user=u password=p dbname=n sslmode=require" {
		t.Fatalf("unexpected dsn %q", got)
	}
	c.URL = "postgres://x"
	if c.DSN() != "postgres://x" {
		t.Fatal("URL must win over parts")
	}
}
