package jobx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/pgque/pkg/logx"
	"github.com/google/uuid"
)

// Queue is the operation surface producers, consumers and the supervisor
// use. It holds no job state of its own; every call is one transaction on
// the injected Store.
type Queue struct {
	store Store
	opts  QueueOptions
}

// NewQueue creates a queue engine over store.
func NewQueue(store Store, options ...QueueOption) *Queue {
	opts := defaultQueueOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Queue{store: store, opts: opts}
}

// Store returns the underlying store.
func (q *Queue) Store() Store { return q.store }

// Now returns the queue clock's current time.
func (q *Queue) Now() time.Time { return q.opts.Now() }

func (q *Queue) log() *logx.Entry { return q.opts.Logger.Component("queue") }

// Enqueue stores a new job and returns its id. When the job collides with a
// live singleton, or its id is already taken, it is dropped and Enqueue
// returns "" with no error.
func (q *Queue) Enqueue(ctx context.Context, name string, data any, options ...EnqueueOption) (string, error) {
	if name == "" {
		return "", InvalidArgument("name", "must not be empty")
	}
	if IsCompletionName(name) {
		return "", InvalidArgument("name", "prefix "+CompletionPrefix+" is reserved")
	}

	o := defaultEnqueueOptions()
	for _, opt := range options {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return "", err
	}

	payload, err := encodeJSON("data", data)
	if err != nil {
		return "", err
	}

	now := q.opts.Now()
	startAfter := o.StartAfter
	if startAfter.IsZero() {
		startAfter = now.Add(o.Delay)
	}

	job := &Job{
		ID:           q.opts.NewID(),
		Name:         name,
		Priority:     o.Priority,
		Data:         payload,
		State:        StateCreated,
		RetryLimit:   o.RetryLimit,
		RetryDelay:   o.RetryDelay,
		RetryBackoff: o.RetryBackoff,
		StartAfter:   startAfter,
		ExpireIn:     o.ExpireIn,
		SingletonOn:  SingletonBucket(now, o.SingletonWindow, o.SingletonOffset),
		CreatedOn:    now,
	}
	if o.SingletonKey != "" {
		key := o.SingletonKey
		job.SingletonKey = &key
	}

	inserted, err := q.store.Insert(ctx, job)
	if err != nil {
		return "", err
	}
	if !inserted {
		q.log().WithFields(logx.Fields{"name": name, "singleton_key": o.SingletonKey}).
			Debug("enqueue dropped: singleton slot or job id taken")
		return "", nil
	}

	if !startAfter.After(now) {
		if err := q.opts.Waker.Notify(ctx, name); err != nil {
			q.log().WithError(err).WithField("name", name).Warn("wake-up not delivered")
		}
	}
	q.log().WithJob(job.ID, name).WithField("priority", o.Priority).Debug("job enqueued")
	return job.ID, nil
}

// Claim reserves up to batchSize ready jobs whose name matches pattern (SQL
// LIKE syntax, see EscapePattern) and returns them highest priority first,
// then oldest, then by id. Two concurrent claims never return the same job.
func (q *Queue) Claim(ctx context.Context, pattern string, batchSize int) ([]ClaimedJob, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	if batchSize < 1 {
		return nil, InvalidArgument("batchSize", "must be at least 1")
	}

	jobs, err := q.store.Claim(ctx, pattern, batchSize, q.opts.Now())
	if err != nil {
		return nil, err
	}

	claimed := make([]ClaimedJob, len(jobs))
	for i, j := range jobs {
		claimed[i] = ClaimedJob{ID: j.ID, Name: j.Name, Data: j.Data}
	}
	if len(claimed) > 0 {
		q.log().WithFields(logx.Fields{"pattern": pattern, "claimed": len(claimed)}).Debug("jobs claimed")
	}
	return claimed, nil
}

// Complete marks active jobs completed and emits one completion record per
// job. Ids that are not active are skipped; the count reports the rest.
func (q *Queue) Complete(ctx context.Context, ids []string, response any) (int, error) {
	ids, err := normalizeIDs(ids)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	resp, err := encodeJSON("response", response)
	if err != nil {
		return 0, err
	}

	now := q.opts.Now()
	n, err := q.store.Transition(ctx, Selection{IDs: ids, State: StateActive}, func(j *Job) (Outcome, error) {
		completed := now
		t := Transition{State: StateCompleted, StartAfter: j.StartAfter, CompletedOn: &completed}
		t.Apply(j)
		rec, err := NewCompletionRecord(q.opts.NewID(), j, resp, now)
		return Outcome{Transition: t, Record: rec}, err
	})
	if err != nil {
		return 0, err
	}
	q.logSettled("complete", len(ids), n)
	return n, nil
}

// Fail records a failed attempt for jobs not yet terminal. Jobs with
// retries left go back to retry; the rest become failed and emit a
// completion record.
func (q *Queue) Fail(ctx context.Context, ids []string, response any) (int, error) {
	ids, err := normalizeIDs(ids)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	resp, err := encodeJSON("response", response)
	if err != nil {
		return 0, err
	}

	now := q.opts.Now()
	n, err := q.store.Transition(ctx, Selection{IDs: ids, Below: StateCompleted}, q.failure(StateFailed, now, resp))
	if err != nil {
		return 0, err
	}
	q.logSettled("fail", len(ids), n)
	return n, nil
}

// Cancel moves jobs not yet terminal to cancelled. No completion record is
// emitted.
func (q *Queue) Cancel(ctx context.Context, ids []string) (int, error) {
	ids, err := normalizeIDs(ids)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	now := q.opts.Now()
	n, err := q.store.Transition(ctx, Selection{IDs: ids, Below: StateCompleted}, func(j *Job) (Outcome, error) {
		cancelled := now
		return Outcome{Transition: Transition{State: StateCancelled, StartAfter: j.StartAfter, CompletedOn: &cancelled}}, nil
	})
	if err != nil {
		return 0, err
	}
	q.logSettled("cancel", len(ids), n)
	return n, nil
}

// Expire reclaims active jobs that outlived their expireIn, sending them
// through the retry rule with expired as the terminal state.
func (q *Queue) Expire(ctx context.Context) (int, error) {
	now := q.opts.Now()
	sel := Selection{State: StateActive, StaleAt: now, SkipLocked: true}
	n, err := q.store.Transition(ctx, sel, q.failure(StateExpired, now, nil))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log().WithField("expired", n).Info("stale active jobs reclaimed")
	}
	return n, nil
}

// Archive moves terminal jobs older than retention, and completion records
// nobody consumed within retention, to the archive.
func (q *Queue) Archive(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, InvalidArgument("retention", "must be positive")
	}
	now := q.opts.Now()
	n, err := q.store.Archive(ctx, now.Add(-retention), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log().WithFields(logx.Fields{"archived": n, "retention": retention.String()}).Info("jobs archived")
	}
	return n, nil
}

// Purge deletes archive rows archived more than retention ago.
func (q *Queue) Purge(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, InvalidArgument("retention", "must be positive")
	}
	n, err := q.store.Purge(ctx, q.opts.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log().WithFields(logx.Fields{"purged": n, "retention": retention.String()}).Info("archive purged")
	}
	return n, nil
}

// Stats counts live jobs by name and state, with roll-up totals.
// Completion records are not counted.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	rows, err := q.store.CountStates(ctx)
	if err != nil {
		return nil, err
	}
	return NewStats(rows), nil
}

// GetJob returns the live job with id.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	ids, err := normalizeIDs([]string{id})
	if err != nil {
		return nil, err
	}
	return q.store.GetJob(ctx, ids[0])
}

// GetArchivedJob returns the archived job with id.
func (q *Queue) GetArchivedJob(ctx context.Context, id string) (*ArchivedJob, error) {
	ids, err := normalizeIDs([]string{id})
	if err != nil {
		return nil, err
	}
	return q.store.GetArchivedJob(ctx, ids[0])
}

// DeleteQueue removes every live job named name, whatever its state.
func (q *Queue) DeleteQueue(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, InvalidArgument("name", "must not be empty")
	}
	n, err := q.store.DeleteQueue(ctx, name)
	if err != nil {
		return 0, err
	}
	q.log().WithFields(logx.Fields{"name": name, "deleted": n}).Info("queue deleted")
	return n, nil
}

// DeleteAllQueues empties the live table. The archive is left alone.
func (q *Queue) DeleteAllQueues(ctx context.Context) error {
	if err := q.store.DeleteAllQueues(ctx); err != nil {
		return err
	}
	q.log().Warn("all queues deleted")
	return nil
}

func (q *Queue) failure(terminal State, now time.Time, resp json.RawMessage) TransitionFunc {
	return func(j *Job) (Outcome, error) {
		t := NextAfterFailure(j, terminal, now, q.opts.Jitter())
		t.Apply(j)
		out := Outcome{Transition: t}
		if t.State == terminal {
			rec, err := NewCompletionRecord(q.opts.NewID(), j, resp, now)
			if err != nil {
				return Outcome{}, err
			}
			out.Record = rec
		}
		return out, nil
	}
}

func (q *Queue) logSettled(op string, requested, affected int) {
	q.log().WithFields(logx.Fields{"op": op, "requested": requested, "affected": affected}).Debug("jobs settled")
}

// normalizeIDs validates ids as UUIDs, canonicalizes them and drops
// duplicates, keeping the first occurrence.
func normalizeIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, jobxErrors.NewWithCause(ErrInvalidArgument, err).
				WithDetail("argument", "ids").
				WithDetail("job_id", raw)
		}
		s := id.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// encodeJSON accepts raw JSON bytes as-is (after validation) and marshals
// anything else.
func encodeJSON(arg string, v any) (json.RawMessage, error) {
	var raw []byte
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, jobxErrors.NewWithCause(ErrInvalidArgument, err).WithDetail("argument", arg)
		}
		return b, nil
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, InvalidArgument(arg, "not valid JSON")
	}
	return append(json.RawMessage(nil), raw...), nil
}
