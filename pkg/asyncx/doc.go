// Package asyncx provides the small set of concurrency helpers the queue
// workers and tools share.
//
// # Fan-out
//
// [All] runs a set of functions concurrently and collects every result in
// the original order. It returns the first error but still waits for all
// goroutines to finish, preventing goroutine leaks.
//
//	batches, err := asyncx.All(ctx,
//	    func(ctx context.Context) ([]jobx.ClaimedJob, error) { return q.Claim(ctx, "emails", 10) },
//	    func(ctx context.Context) ([]jobx.ClaimedJob, error) { return q.Claim(ctx, "emails", 10) },
//	)
//
// # Worker Pool
//
// [Pool] limits concurrency to a fixed number of workers, making it suitable
// for workloads that must not overwhelm downstream resources such as
// database connections.
//
//	ids, err := asyncx.Pool(ctx, 8, payloads, func(ctx context.Context, p Payload) (string, error) {
//	    return q.Enqueue(ctx, "emails", p)
//	})
//
// # Retry
//
// [RetryWithBackoff] retries with exponential backoff. [RetryWithBackoffIf]
// stops early on errors the predicate rejects, which is how workers retry
// only transient store failures:
//
//	n, err := asyncx.RetryWithBackoffIf(ctx, 3, 100*time.Millisecond, jobx.IsTransient,
//	    func(ctx context.Context) (int, error) { return q.Complete(ctx, ids, nil) },
//	)
package asyncx
