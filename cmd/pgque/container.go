// cmd/pgque/container.go
//
// Composition root. Owns infrastructure (DB, Redis) and wires the store,
// the queue engine, the workers and the maintenance supervisor.
package main

import (
	"context"

	"github.com/Abraxas-365/pgque/pkg/config"
	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxpostgres"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxsqlite"
	"github.com/Abraxas-365/pgque/pkg/logx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the queue services built on it.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB    *sqlx.DB
	Redis *redis.Client

	Store      jobx.Store
	Waker      jobx.Waker
	Queue      *jobx.Queue
	Client     *jobx.Client
	Supervisor *jobx.Supervisor

	// version reports the installed schema version; nil for the memory store.
	version func(context.Context) (int, error)
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure(ctx)
	c.initQueue()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: store, wake-up channel
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) {
	logx.Info("🏗️ Initializing infrastructure...")

	c.initStore(ctx)
	c.initWaker(ctx)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initStore(ctx context.Context) {
	dbCfg := c.Config.Database

	switch dbCfg.Driver {
	case config.DriverPostgres:
		db, err := sqlx.Connect("postgres", dbCfg.DSN())
		if err != nil {
			logx.Fatalf("Failed to connect to database: %v", err)
		}
		db.SetMaxOpenConns(dbCfg.MaxOpenConns)
		db.SetMaxIdleConns(dbCfg.MaxIdleConns)
		db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
		c.DB = db

		store, err := jobxpostgres.New(db, dbCfg.Schema)
		if err != nil {
			logx.Fatalf("Invalid postgres store: %v", err)
		}
		if dbCfg.CreateSchema {
			if err := store.CreateSchema(ctx); err != nil {
				logx.Fatalf("Failed to create schema %q: %v", dbCfg.Schema, err)
			}
		}
		c.Store = store
		c.version = store.Version
		logx.Infof("  ✅ Postgres store ready (schema: %s)", dbCfg.Schema)

	case config.DriverSQLite:
		db, err := jobxsqlite.Open(dbCfg.SQLitePath)
		if err != nil {
			logx.Fatalf("Failed to open sqlite database: %v", err)
		}
		c.DB = db

		store := jobxsqlite.New(db)
		if dbCfg.CreateSchema {
			if err := store.CreateSchema(ctx); err != nil {
				logx.Fatalf("Failed to create sqlite schema: %v", err)
			}
		}
		c.Store = store
		c.version = store.Version
		logx.Infof("  ✅ SQLite store ready (path: %s)", dbCfg.SQLitePath)

	case config.DriverMemory:
		c.Store = jobxmemory.New()
		logx.Warn("  ⚠️ Memory store in use, jobs do not survive a restart")

	default:
		logx.Fatalf("Unknown DB_DRIVER: %s (use 'postgres', 'sqlite' or 'memory')", dbCfg.Driver)
	}
}

func (c *Container) initWaker(ctx context.Context) {
	redisCfg := c.Config.Redis
	if !redisCfg.Enabled {
		c.Waker = jobx.NewLocalWaker()
		logx.Info("  ✅ In-process wake-ups configured")
		return
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     redisCfg.Address(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	waker := jobxredis.NewWaker(c.Redis, jobxredis.WithPrefix(redisCfg.Prefix))
	if err := waker.Ping(ctx); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (REDIS_ENABLED=true)", err)
	}
	c.Waker = waker
	logx.Infof("  ✅ Redis wake-ups configured (%s)", redisCfg.Address())
}

// ---------------------------------------------------------------------------
// Queue services
// ---------------------------------------------------------------------------

func (c *Container) initQueue() {
	logx.Info("📦 Initializing queue services...")

	qCfg := c.Config.Queue

	c.Queue = jobx.NewQueue(c.Store,
		jobx.WithLogger(logx.GetDefaultLogger()),
		jobx.WithWaker(c.Waker),
	)

	c.Client = jobx.NewClient(c.Queue,
		jobx.WithConcurrency(qCfg.Concurrency),
		jobx.WithBatchSize(qCfg.BatchSize),
		jobx.WithPollInterval(qCfg.PollInterval),
		jobx.WithShutdownTimeout(qCfg.ShutdownTimeout),
		jobx.WithStoreRetries(qCfg.StoreRetries, 0),
	)

	sup, err := jobx.NewSupervisor(c.Queue, jobx.SupervisorOptions{
		ExpireInterval:   qCfg.ExpireInterval,
		ArchiveInterval:  qCfg.ArchiveInterval,
		ArchiveRetention: qCfg.ArchiveRetention,
		PurgeRetention:   qCfg.PurgeRetention,
	})
	if err != nil {
		logx.Fatalf("Invalid supervisor options: %v", err)
	}
	c.Supervisor = sup

	logx.Info("  ✅ Queue, workers and supervisor wired")
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices runs the supervisor and the workers until ctx is
// cancelled. The returned channel closes once both have stopped.
func (c *Container) StartBackgroundServices(ctx context.Context) <-chan struct{} {
	logx.Info("🔄 Starting background services...")

	done := make(chan struct{})
	supDone := make(chan struct{})

	go func() {
		defer close(supDone)
		if c.Config.Queue.SupervisorEnabled {
			c.Supervisor.Start(ctx)
		}
	}()

	go func() {
		defer close(done)
		if err := c.Client.Start(ctx); err != nil {
			logx.WithError(err).Warn("workers not started")
		}
		<-supDone
	}()

	return done
}

// SchemaVersion returns the installed schema version, or 0 for stores that
// have no schema.
func (c *Container) SchemaVersion(ctx context.Context) (int, error) {
	if c.version == nil {
		return 0, nil
	}
	return c.version(ctx)
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logx.Errorf("Error closing store: %v", err)
		} else {
			logx.Info("  ✅ Store closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
