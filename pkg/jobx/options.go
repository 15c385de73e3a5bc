package jobx

import (
	"math/rand/v2"
	"time"

	"github.com/Abraxas-365/pgque/pkg/logx"
	"github.com/google/uuid"
)

// ============================================================================
// Enqueue options
// ============================================================================

// EnqueueOptions describes how a job is scheduled, retried and deduplicated.
type EnqueueOptions struct {
	Priority     int
	RetryLimit   int
	RetryDelay   int // seconds
	RetryBackoff bool

	// StartAfter, when set, is the absolute time the job becomes claimable.
	StartAfter time.Time
	// Delay is used when StartAfter is zero: the job becomes claimable
	// Delay after enqueue.
	Delay time.Duration

	ExpireIn time.Duration

	SingletonKey    string
	SingletonWindow int // seconds; zero disables the time bucket
	SingletonOffset int // seconds
}

func defaultEnqueueOptions() EnqueueOptions {
	return EnqueueOptions{
		RetryLimit: DefaultRetryLimit,
		RetryDelay: DefaultRetryDelay,
		ExpireIn:   DefaultExpireIn,
	}
}

// EnqueueOption is a functional option for Enqueue.
type EnqueueOption func(*EnqueueOptions)

// WithPriority sets the priority. Higher is claimed first.
func WithPriority(p int) EnqueueOption {
	return func(o *EnqueueOptions) { o.Priority = p }
}

// WithRetryLimit sets how many times a failed job is retried.
func WithRetryLimit(n int) EnqueueOption {
	return func(o *EnqueueOptions) { o.RetryLimit = n }
}

// WithRetryDelay sets the delay in seconds before a retry becomes claimable.
func WithRetryDelay(seconds int) EnqueueOption {
	return func(o *EnqueueOptions) { o.RetryDelay = seconds }
}

// WithRetryBackoff enables exponential backoff with jitter on retries.
func WithRetryBackoff(enabled bool) EnqueueOption {
	return func(o *EnqueueOptions) { o.RetryBackoff = enabled }
}

// WithStartAfter defers the job until t.
func WithStartAfter(t time.Time) EnqueueOption {
	return func(o *EnqueueOptions) { o.StartAfter = t }
}

// WithDelay defers the job by d from enqueue time.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) { o.Delay = d }
}

// WithExpireIn sets how long a claimed job may stay active.
func WithExpireIn(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) { o.ExpireIn = d }
}

// WithSingletonKey allows only one live job per (name, key).
func WithSingletonKey(key string) EnqueueOption {
	return func(o *EnqueueOptions) { o.SingletonKey = key }
}

// WithSingletonWindow allows only one job per (name, time bucket of the
// given size in seconds). Combined with a key, the key is unique per bucket.
func WithSingletonWindow(seconds int) EnqueueOption {
	return func(o *EnqueueOptions) { o.SingletonWindow = seconds }
}

// WithSingletonOffset shifts the singleton bucket boundaries by seconds.
func WithSingletonOffset(seconds int) EnqueueOption {
	return func(o *EnqueueOptions) { o.SingletonOffset = seconds }
}

func (o EnqueueOptions) validate() error {
	switch {
	case o.RetryLimit < 0:
		return InvalidArgument("retryLimit", "must not be negative")
	case o.RetryDelay < 0:
		return InvalidArgument("retryDelay", "must not be negative")
	case o.Delay < 0:
		return InvalidArgument("delay", "must not be negative")
	case o.ExpireIn <= 0:
		return InvalidArgument("expireIn", "must be positive")
	case o.SingletonWindow < 0:
		return InvalidArgument("singletonWindow", "must not be negative")
	}
	return nil
}

// ============================================================================
// Queue options
// ============================================================================

// QueueOptions configures the engine.
type QueueOptions struct {
	Now    func() time.Time
	Jitter func() float64
	NewID  func() string
	Logger *logx.Logger
	Waker  Waker
}

func defaultQueueOptions() QueueOptions {
	return QueueOptions{
		Now:    func() time.Time { return time.Now().UTC() },
		Jitter: rand.Float64,
		NewID:  func() string { return uuid.NewString() },
		Logger: logx.GetDefaultLogger(),
		Waker:  nopWaker{},
	}
}

// QueueOption is a functional option for NewQueue.
type QueueOption func(*QueueOptions)

// WithClock replaces the time source.
func WithClock(now func() time.Time) QueueOption {
	return func(o *QueueOptions) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithJitter replaces the backoff jitter source. It must return values in
// [0, 1).
func WithJitter(fn func() float64) QueueOption {
	return func(o *QueueOptions) {
		if fn != nil {
			o.Jitter = fn
		}
	}
}

// WithIDGenerator replaces the job id generator. Ids must be UUIDs.
func WithIDGenerator(fn func() string) QueueOption {
	return func(o *QueueOptions) {
		if fn != nil {
			o.NewID = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) QueueOption {
	return func(o *QueueOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithWaker publishes a wake-up for every job enqueued ready to run.
func WithWaker(w Waker) QueueOption {
	return func(o *QueueOptions) {
		if w != nil {
			o.Waker = w
		}
	}
}

// ============================================================================
// Worker options
// ============================================================================

// WorkerOptions configures the job processing client.
type WorkerOptions struct {
	Concurrency     int
	BatchSize       int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	// StoreRetries is how many times a complete/fail call is attempted
	// when the store reports a transient error.
	StoreRetries    int
	StoreRetryDelay time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Concurrency:     4,
		BatchSize:       1,
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
		StoreRetries:    3,
		StoreRetryDelay: 100 * time.Millisecond,
	}
}

// WorkerOption is a functional option for configuring the client.
type WorkerOption func(*WorkerOptions)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithBatchSize sets how many jobs a worker claims at once.
func WithBatchSize(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// WithPollInterval sets the interval between claim attempts when idle.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for workers to finish on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.ShutdownTimeout = d
	}
}

// WithStoreRetries sets the attempts and initial backoff for transient
// store errors while settling a job.
func WithStoreRetries(attempts int, delay time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if attempts > 0 {
			o.StoreRetries = attempts
		}
		if delay > 0 {
			o.StoreRetryDelay = delay
		}
	}
}

// ============================================================================
// Supervisor options
// ============================================================================

// SupervisorOptions configures the maintenance sweeps.
type SupervisorOptions struct {
	ExpireInterval   time.Duration
	ArchiveInterval  time.Duration
	ArchiveRetention time.Duration
	PurgeRetention   time.Duration
}

// DefaultSupervisorOptions returns the sweep cadence used when nothing is
// configured.
func DefaultSupervisorOptions() SupervisorOptions {
	return SupervisorOptions{
		ExpireInterval:   2 * time.Minute,
		ArchiveInterval:  10 * time.Minute,
		ArchiveRetention: 12 * time.Hour,
		PurgeRetention:   7 * 24 * time.Hour,
	}
}

// Validate rejects non-positive intervals and retentions.
func (o SupervisorOptions) Validate() error {
	switch {
	case o.ExpireInterval <= 0:
		return InvalidArgument("expireInterval", "must be positive")
	case o.ArchiveInterval <= 0:
		return InvalidArgument("archiveInterval", "must be positive")
	case o.ArchiveRetention <= 0:
		return InvalidArgument("archiveRetention", "must be positive")
	case o.PurgeRetention <= 0:
		return InvalidArgument("purgeRetention", "must be positive")
	}
	return nil
}
