package jobx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/pgque/pkg/asyncx"
	"github.com/Abraxas-365/pgque/pkg/logx"
)

// HandlerFunc processes a claimed job. The returned value becomes the
// response of the completion record; an error fails the job.
type HandlerFunc func(ctx context.Context, job *ClaimedJob) (any, error)

// FailureResponse is the response recorded when a handler returns an error.
type FailureResponse struct {
	Message string `json:"message"`
}

// Client runs handlers for claimed jobs.
type Client struct {
	queue    *Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a new job processing client.
func NewClient(queue *Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for the queue named name.
func (c *Client) Register(name string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = handler
}

func (c *Client) names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for n := range c.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Client) log() *logx.Entry { return c.queue.opts.Logger.Component("worker") }

// Start begins processing jobs. It blocks until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	names := c.names()
	if len(names) == 0 {
		return jobxErrors.New(ErrNoHandler)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	wake, err := c.queue.opts.Waker.Subscribe(ctx, names...)
	if err != nil {
		c.log().WithError(jobxErrors.NewWithCause(ErrWakerUnavailable, err)).
			Warn("wake-ups unavailable, polling only")
		wake = nil
	}

	c.log().Infof("starting %d workers on queues %v", c.opts.Concurrency, names)

	var wg sync.WaitGroup
	for i := range c.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id, names, wake)
		}(i)
	}

	<-ctx.Done()
	c.log().Info("shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log().Info("all workers stopped")
	case <-time.After(c.opts.ShutdownTimeout):
		c.log().Warn("shutdown timed out, unfinished jobs will be reclaimed by expiration")
	}

	return nil
}

func (c *Client) workerLoop(ctx context.Context, id int, names []string, wake <-chan string) {
	// Workers start on different queues so one busy queue does not starve
	// the others.
	next := id % len(names)
	for {
		if ctx.Err() != nil {
			return
		}

		worked := false
		for range names {
			name := names[next]
			next = (next + 1) % len(names)

			n, err := c.poll(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log().WithError(err).WithField("worker", id).Warnf("claim on %q failed", name)
				continue
			}
			if n > 0 {
				worked = true
			}
		}
		if worked {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-wake:
			if !ok {
				wake = nil
			}
		case <-time.After(c.opts.PollInterval):
		}
	}
}

// poll claims one batch from name and runs it. It returns the number of
// jobs handled. Jobs not started before ctx is done stay active and are
// reclaimed by the expiration sweep.
func (c *Client) poll(ctx context.Context, name string) (int, error) {
	jobs, err := c.queue.Claim(ctx, EscapePattern(name), c.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	c.mu.RLock()
	handler := c.handlers[name]
	c.mu.RUnlock()

	for i := range jobs {
		if ctx.Err() != nil {
			c.log().WithFields(logx.Fields{"queue": name, "unstarted": len(jobs) - i}).
				Info("shutdown before jobs started, leaving them to expire")
			return i, nil
		}
		c.processJob(ctx, handler, &jobs[i])
	}
	return len(jobs), nil
}

func (c *Client) processJob(ctx context.Context, handler HandlerFunc, job *ClaimedJob) {
	resp, err := runHandler(ctx, handler, job)
	if err != nil && interrupted(ctx, err) {
		c.log().WithJob(job.ID, job.Name).Info("handler interrupted by shutdown, leaving job to expire")
		return
	}

	// A handler that finished still settles after ctx is cancelled.
	settleCtx := context.WithoutCancel(ctx)

	if err != nil {
		c.log().WithJob(job.ID, job.Name).WithError(err).Warn("job failed")
		if _, serr := c.settle(settleCtx, func(ctx context.Context) (int, error) {
			return c.queue.Fail(ctx, []string{job.ID}, FailureResponse{Message: err.Error()})
		}); serr != nil {
			c.log().WithError(serr).Errorf("failed to mark job %s as failed", job.ID)
		}
		return
	}

	if _, serr := c.settle(settleCtx, func(ctx context.Context) (int, error) {
		return c.queue.Complete(ctx, []string{job.ID}, resp)
	}); serr != nil {
		c.log().WithError(serr).Errorf("failed to complete job %s", job.ID)
	}
}

func (c *Client) settle(ctx context.Context, fn func(context.Context) (int, error)) (int, error) {
	return asyncx.RetryWithBackoffIf(ctx, c.opts.StoreRetries, c.opts.StoreRetryDelay, IsTransient, fn)
}

// interrupted reports whether err is the handler giving up because ctx
// was cancelled, rather than the job failing.
func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func runHandler(ctx context.Context, handler HandlerFunc, job *ClaimedJob) (resp any, err error) {
	if handler == nil {
		return nil, jobxErrors.New(ErrNoHandler).WithDetail("name", job.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}
