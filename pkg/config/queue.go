package config

import "time"

// QueueConfig configures the workers and the maintenance supervisor.
type QueueConfig struct {
	Concurrency     int
	Queues          []string
	BatchSize       int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	StoreRetries    int

	SupervisorEnabled bool
	ExpireInterval    time.Duration
	ArchiveInterval   time.Duration
	ArchiveRetention  time.Duration
	PurgeRetention    time.Duration
}

func loadQueueConfig() QueueConfig {
	return QueueConfig{
		Concurrency:     getEnvInt("JOBX_CONCURRENCY", 4),
		Queues:          getEnvStringSlice("JOBX_QUEUES", []string{"default"}),
		BatchSize:       getEnvInt("JOBX_BATCH_SIZE", 1),
		PollInterval:    getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		ShutdownTimeout: getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		StoreRetries:    getEnvInt("JOBX_STORE_RETRIES", 3),

		SupervisorEnabled: getEnvBool("JOBX_SUPERVISOR_ENABLED", true),
		ExpireInterval:    getEnvDuration("JOBX_EXPIRE_INTERVAL", 2*time.Minute),
		ArchiveInterval:   getEnvDuration("JOBX_ARCHIVE_INTERVAL", 10*time.Minute),
		ArchiveRetention:  getEnvDuration("JOBX_ARCHIVE_RETENTION", 12*time.Hour),
		PurgeRetention:    getEnvDuration("JOBX_PURGE_RETENTION", 7*24*time.Hour),
	}
}

func (c QueueConfig) validate() error {
	switch {
	case c.Concurrency < 1:
		return invalid("JOBX_CONCURRENCY", "must be at least 1")
	case c.BatchSize < 1:
		return invalid("JOBX_BATCH_SIZE", "must be at least 1")
	case c.PollInterval <= 0:
		return invalid("JOBX_POLL_INTERVAL", "must be positive")
	case c.ShutdownTimeout < 0:
		return invalid("JOBX_SHUTDOWN_TIMEOUT", "must not be negative")
	case c.StoreRetries < 1:
		return invalid("JOBX_STORE_RETRIES", "must be at least 1")
	case c.ExpireInterval <= 0:
		return invalid("JOBX_EXPIRE_INTERVAL", "must be positive")
	case c.ArchiveInterval <= 0:
		return invalid("JOBX_ARCHIVE_INTERVAL", "must be positive")
	case c.ArchiveRetention <= 0:
		return invalid("JOBX_ARCHIVE_RETENTION", "must be positive")
	case c.PurgeRetention <= 0:
		return invalid("JOBX_PURGE_RETENTION", "must be positive")
	}
	return nil
}
