// Package jobxpostgres implements jobx.Store on PostgreSQL. Claims use
// FOR UPDATE SKIP LOCKED so competing consumers never block on or
// double-deliver the same row.
package jobxpostgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/jmoiron/sqlx"
)

// DefaultSchema is used when New is given an empty schema name.
const DefaultSchema = "pgque"

// Store implements jobx.Store on PostgreSQL.
type Store struct {
	db    *sqlx.DB
	plans plans
}

var _ jobx.Store = (*Store)(nil)

// New creates a store using the tables in schema. Call CreateSchema once
// before using it against a fresh database.
func New(db *sqlx.DB, schema string) (*Store, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	if len(schema) > 63 {
		return nil, pgErrors.New(ErrInvalidSchema).WithDetail("schema", schema)
	}
	return &Store{db: db, plans: newPlans(schema)}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Insert(ctx context.Context, job *jobx.Job) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, s.plans.insertJob, toPersistence(job))
	if err != nil {
		return false, mapError("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError("insert", err)
	}
	return n == 1, nil
}

func (s *Store) Claim(ctx context.Context, pattern string, limit int, now time.Time) ([]jobx.Job, error) {
	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, s.plans.claim, pattern, now, limit); err != nil {
		return nil, mapError("claim", err)
	}
	jobs := toDomainSlice(rows)
	jobx.SortClaimed(jobs)
	return jobs, nil
}

func (s *Store) Transition(ctx context.Context, sel jobx.Selection, fn jobx.TransitionFunc) (int, error) {
	var staleAt any
	if !sel.StaleAt.IsZero() {
		staleAt = sel.StaleAt
	}
	query, args := s.plans.selectForTransition(sel.IDs, string(sel.State), string(sel.Below), staleAt, sel.SkipLocked)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, mapError("transition", err)
	}
	defer tx.Rollback()

	var rows []jobRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return 0, mapError("transition", err)
	}

	for _, r := range rows {
		job := toDomain(r)
		out, err := fn(&job)
		if err != nil {
			return 0, err
		}
		t := out.Transition
		if _, err := tx.ExecContext(ctx, s.plans.updateJob, job.ID, string(t.State), t.StartAfter, t.CompletedOn); err != nil {
			return 0, mapError("transition", err)
		}
		if out.Record != nil {
			if _, err := tx.NamedExecContext(ctx, s.plans.insertJob, toPersistence(out.Record)); err != nil {
				return 0, mapError("insert completion", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, mapError("transition", err)
	}
	return len(rows), nil
}

func (s *Store) Archive(ctx context.Context, cutoff, archivedOn time.Time) (int, error) {
	return s.exec(ctx, "archive", s.plans.archive, cutoff, archivedOn, jobx.CompletionPrefix)
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return s.exec(ctx, "purge", s.plans.purge, cutoff)
}

func (s *Store) CountStates(ctx context.Context) ([]jobx.StateCount, error) {
	var rows []stateCountRow
	if err := s.db.SelectContext(ctx, &rows, s.plans.countStates, jobx.CompletionPrefix); err != nil {
		return nil, mapError("count states", err)
	}
	return toStateCounts(rows), nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*jobx.Job, error) {
	var row jobRow
	if err := s.db.GetContext(ctx, &row, s.plans.getJob, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobx.NotFound(id)
		}
		return nil, mapError("get job", err)
	}
	job := toDomain(row)
	return &job, nil
}

func (s *Store) GetArchivedJob(ctx context.Context, id string) (*jobx.ArchivedJob, error) {
	var row archiveRow
	if err := s.db.GetContext(ctx, &row, s.plans.getArchivedJob, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobx.NotFound(id)
		}
		return nil, mapError("get archived job", err)
	}
	return &jobx.ArchivedJob{Job: toDomain(row.jobRow), ArchivedOn: row.ArchivedOn.UTC()}, nil
}

func (s *Store) DeleteQueue(ctx context.Context, name string) (int, error) {
	return s.exec(ctx, "delete queue", s.plans.deleteQueue, name)
}

func (s *Store) DeleteAllQueues(ctx context.Context) error {
	_, err := s.exec(ctx, "delete all queues", s.plans.deleteAllQueues)
	return err
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(op, err)
	}
	return int(n), nil
}
