// Package jobxmemory is a jobx.Store kept in process memory. Every method
// holds one mutex for its whole duration, which makes each call a
// serializable transaction.
package jobxmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

// Store implements jobx.Store in memory.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*jobx.Job
	archive map[string]*jobx.ArchivedJob
	likes   *likeCache
}

var _ jobx.Store = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*jobx.Job),
		archive: make(map[string]*jobx.ArchivedJob),
		likes:   newLikeCache(),
	}
}

func (s *Store) Insert(ctx context.Context, job *jobx.Job) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return false, nil
	}
	for _, other := range s.jobs {
		if singletonConflict(job, other) {
			return false, nil
		}
	}
	c := job.Clone()
	s.jobs[c.ID] = &c
	return true, nil
}

// singletonConflict reports whether inserting j would violate one of the
// singleton slots other occupies.
func singletonConflict(j, other *jobx.Job) bool {
	if j.Name != other.Name {
		return false
	}
	switch {
	case j.SingletonKey != nil && j.SingletonOn == nil:
		return other.SingletonKey != nil && other.SingletonOn == nil &&
			*other.SingletonKey == *j.SingletonKey &&
			other.State.Less(jobx.StateCompleted)
	case j.SingletonKey == nil && j.SingletonOn != nil:
		return other.SingletonKey == nil && other.SingletonOn != nil &&
			other.SingletonOn.Equal(*j.SingletonOn) &&
			other.State.Less(jobx.StateExpired)
	case j.SingletonKey != nil && j.SingletonOn != nil:
		return other.SingletonKey != nil && other.SingletonOn != nil &&
			*other.SingletonKey == *j.SingletonKey &&
			other.SingletonOn.Equal(*j.SingletonOn) &&
			other.State.Less(jobx.StateExpired)
	}
	return false
}

func (s *Store) Claim(ctx context.Context, pattern string, limit int, now time.Time) ([]jobx.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	match, err := s.likes.get(pattern)
	if err != nil {
		return nil, jobx.InvalidArgument("pattern", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*jobx.Job
	for _, j := range s.jobs {
		if j.Eligible(now) && match(j.Name) {
			eligible = append(eligible, j)
		}
	}
	sort.Slice(eligible, func(a, b int) bool { return jobx.ClaimBefore(eligible[a], eligible[b]) })
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	out := make([]jobx.Job, 0, len(eligible))
	for _, j := range eligible {
		if j.State == jobx.StateRetry {
			j.RetryCount++
		}
		j.State = jobx.StateActive
		started := now
		j.StartedOn = &started
		out = append(out, j.Clone())
	}
	return out, nil
}

func (s *Store) Transition(ctx context.Context, sel jobx.Selection, fn jobx.TransitionFunc) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var targets []*jobx.Job
	if len(sel.IDs) > 0 {
		for _, id := range sel.IDs {
			if j, ok := s.jobs[id]; ok && sel.Matches(j) {
				targets = append(targets, j)
			}
		}
	} else {
		for _, j := range s.jobs {
			if sel.Matches(j) {
				targets = append(targets, j)
			}
		}
		sort.Slice(targets, func(a, b int) bool { return targets[a].ID < targets[b].ID })
	}

	// Compute every outcome before touching state so an error leaves the
	// store unchanged.
	outcomes := make([]jobx.Outcome, len(targets))
	for i, j := range targets {
		c := j.Clone()
		out, err := fn(&c)
		if err != nil {
			return 0, err
		}
		outcomes[i] = out
	}

	for i, j := range targets {
		outcomes[i].Transition.Apply(j)
		if rec := outcomes[i].Record; rec != nil {
			c := rec.Clone()
			s.jobs[c.ID] = &c
		}
	}
	return len(targets), nil
}

func (s *Store) Archive(ctx context.Context, cutoff, archivedOn time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, j := range s.jobs {
		finished := j.CompletedOn != nil && j.CompletedOn.Before(cutoff)
		unconsumed := j.State == jobx.StateCreated && j.IsCompletion() && j.CreatedOn.Before(cutoff)
		if !finished && !unconsumed {
			continue
		}
		s.archive[id] = &jobx.ArchivedJob{Job: j.Clone(), ArchivedOn: archivedOn}
		delete(s.jobs, id)
		n++
	}
	return n, nil
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, a := range s.archive {
		if a.ArchivedOn.Before(cutoff) {
			delete(s.archive, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountStates(ctx context.Context) ([]jobx.StateCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		name  string
		state jobx.State
	}
	counts := make(map[key]int)
	for _, j := range s.jobs {
		if j.IsCompletion() {
			continue
		}
		counts[key{j.Name, j.State}]++
	}

	detail := make([]jobx.StateCount, 0, len(counts))
	for k, n := range counts {
		detail = append(detail, jobx.StateCount{Name: k.name, State: k.state, Count: n})
	}
	return jobx.Rollup(detail), nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*jobx.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, jobx.NotFound(id)
	}
	c := j.Clone()
	return &c, nil
}

func (s *Store) GetArchivedJob(ctx context.Context, id string) (*jobx.ArchivedJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.archive[id]
	if !ok {
		return nil, jobx.NotFound(id)
	}
	return &jobx.ArchivedJob{Job: a.Job.Clone(), ArchivedOn: a.ArchivedOn}, nil
}

func (s *Store) DeleteQueue(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, j := range s.jobs {
		if j.Name == name {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAllQueues(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*jobx.Job)
	return nil
}

// Close is a no-op; the data is dropped with the Store.
func (s *Store) Close() error { return nil }
