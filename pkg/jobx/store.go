package jobx

import (
	"context"
	"sort"
	"time"
)

// Selection picks the rows a Transition applies to. Every non-zero field
// narrows the set.
type Selection struct {
	// IDs restricts the selection to these ids.
	IDs []string
	// State requires rows to be exactly in this state.
	State State
	// Below requires rows to be strictly before this state.
	Below State
	// StaleAt keeps only rows whose startedOn + expireIn is before it.
	StaleAt time.Time
	// SkipLocked skips rows locked by a concurrent transaction instead of
	// waiting for them.
	SkipLocked bool
}

// Matches reports whether j satisfies the selection's state and staleness
// guards. IDs are not checked.
func (s Selection) Matches(j *Job) bool {
	if s.State != "" && j.State != s.State {
		return false
	}
	if s.Below != "" && !j.State.Less(s.Below) {
		return false
	}
	if !s.StaleAt.IsZero() {
		if j.StartedOn == nil || !j.StartedOn.Add(j.ExpireIn).Before(s.StaleAt) {
			return false
		}
	}
	return true
}

// Outcome is what a TransitionFunc decides for one locked row.
type Outcome struct {
	Transition Transition
	// Record, when set, is inserted in the same transaction.
	Record *Job
}

// TransitionFunc computes the new state of a locked row. The job passed in
// is a copy; the store persists only the returned outcome.
type TransitionFunc func(j *Job) (Outcome, error)

// Store is the transactional persistence the queue runs on. Each method is
// a single transaction: either everything it does commits or nothing does.
type Store interface {
	// Insert stores job unless it collides with a singleton slot, in which
	// case it reports false and no error.
	Insert(ctx context.Context, job *Job) (bool, error)

	// Claim reserves up to limit eligible jobs whose name matches pattern,
	// skipping rows locked by concurrent claimers, and returns them in
	// priority DESC, createdOn ASC, id ASC order.
	Claim(ctx context.Context, pattern string, limit int, now time.Time) ([]Job, error)

	// Transition locks the rows picked by sel, applies fn to each and
	// persists the outcomes. It returns the number of rows changed.
	Transition(ctx context.Context, sel Selection, fn TransitionFunc) (int, error)

	// Archive moves jobs completed before cutoff, and unconsumed completion
	// records created before cutoff, to the archive stamped archivedOn.
	Archive(ctx context.Context, cutoff, archivedOn time.Time) (int, error)

	// Purge deletes archive rows archived before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int, error)

	// CountStates returns job counts by name and state, excluding
	// completion records, including roll-up rows (see Rollup).
	CountStates(ctx context.Context) ([]StateCount, error)

	GetJob(ctx context.Context, id string) (*Job, error)
	GetArchivedJob(ctx context.Context, id string) (*ArchivedJob, error)

	// DeleteQueue removes every live job named name.
	DeleteQueue(ctx context.Context, name string) (int, error)
	// DeleteAllQueues empties the live table.
	DeleteAllQueues(ctx context.Context) error

	Close() error
}

// ClaimBefore reports whether a is claimed before b: higher priority first,
// then older, then lower id.
func ClaimBefore(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedOn.Equal(b.CreatedOn) {
		return a.CreatedOn.Before(b.CreatedOn)
	}
	return a.ID < b.ID
}

// SortClaimed sorts jobs into claim order.
func SortClaimed(jobs []Job) {
	sort.Slice(jobs, func(i, k int) bool { return ClaimBefore(&jobs[i], &jobs[k]) })
}
