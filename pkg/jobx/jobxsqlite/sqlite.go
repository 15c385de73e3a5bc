// Package jobxsqlite implements jobx.Store on SQLite. SQLite has no row
// locks; every write transaction starts with BEGIN IMMEDIATE, which
// serializes writers and gives the same no-double-claim guarantee.
package jobxsqlite

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const jobColumns = `id, name, priority, data, state,
	retry_limit, retry_count, retry_delay, retry_backoff,
	start_after, started_on, expire_in,
	singleton_key, singleton_on, created_on, completed_on`

var (
	stateActive    = jobx.StateActive.Rank()
	stateRetry     = jobx.StateRetry.Rank()
	stateCreated   = jobx.StateCreated.Rank()
	insertJobQuery = `
		INSERT INTO job (` + jobColumns + `)
		VALUES (:id, :name, :priority, :data, :state,
			:retry_limit, :retry_count, :retry_delay, :retry_backoff,
			:start_after, :started_on, :expire_in,
			:singleton_key, :singleton_on, :created_on, :completed_on)
		ON CONFLICT DO NOTHING`
	archiveCondition = `(completed_on < ? OR (state = ? AND substr(name, 1, ?) = ? AND created_on < ?))`
)

// Store implements jobx.Store on SQLite.
type Store struct {
	db *sqlx.DB
}

var _ jobx.Store = (*Store)(nil)

// Open opens the database at path with the settings the store relies on:
// immediate write transactions, a busy timeout, case-sensitive LIKE and a
// single connection.
func Open(path string) (*sqlx.DB, error) {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Set("_busy_timeout", "5000")
	params.Set("_cslike", "1")
	params.Set("_journal_mode", "WAL")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sqlx.Open("sqlite3", "file:"+path+sep+params.Encode())
	if err != nil {
		return nil, mapError("open", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, mapError("open", err)
	}
	return db, nil
}

// New creates a store on db. Call CreateSchema once before use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, job *jobx.Job) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, insertJobQuery, toPersistence(job))
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
	err := s.db.SelectContext(ctx, &rows, `
		UPDATE job SET
			retry_count = CASE WHEN state = ? THEN retry_count + 1 ELSE retry_count END,
			state = ?,
			started_on = ?
		WHERE id IN (
			SELECT id FROM job
			WHERE state < ? AND name LIKE ? ESCAPE '\' AND start_after <= ?
			ORDER BY priority DESC, created_on, id
			LIMIT ?
		)
		RETURNING *`,
		stateRetry, stateActive, millis(now),
		stateActive, pattern, millis(now), limit)
	if err != nil {
		return nil, mapError("claim", err)
	}

	jobs := make([]jobx.Job, len(rows))
	for i, r := range rows {
		jobs[i] = toDomain(r)
	}
	jobx.SortClaimed(jobs)
	return jobs, nil
}

func (s *Store) Transition(ctx context.Context, sel jobx.Selection, fn jobx.TransitionFunc) (int, error) {
	var (
		where []string
		args  []any
	)
	if len(sel.IDs) > 0 {
		where = append(where, "id IN (?)")
		args = append(args, sel.IDs)
	}
	if sel.State != "" {
		where = append(where, "state = ?")
		args = append(args, sel.State.Rank())
	}
	if sel.Below != "" {
		where = append(where, "state < ?")
		args = append(args, sel.Below.Rank())
	}
	if !sel.StaleAt.IsZero() {
		where = append(where, "started_on + expire_in * 1000 < ?")
		args = append(args, millis(sel.StaleAt))
	}
	if len(where) == 0 {
		where = append(where, "1 = 1")
	}

	query, args, err := sqlx.In("SELECT * FROM job WHERE "+strings.Join(where, " AND ")+" ORDER BY id", args...)
	if err != nil {
		return 0, jobx.StoreFailed("transition", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, mapError("transition", err)
	}
	defer tx.Rollback()

	var rows []jobRow
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return 0, mapError("transition", err)
	}

	for _, r := range rows {
		job := toDomain(r)
		out, err := fn(&job)
		if err != nil {
			return 0, err
		}
		t := out.Transition
		if _, err := tx.ExecContext(ctx,
			`UPDATE job SET state = ?, start_after = ?, completed_on = ? WHERE id = ?`,
			t.State.Rank(), millis(t.StartAfter), millisPtr(t.CompletedOn), job.ID); err != nil {
			return 0, mapError("transition", err)
		}
		if out.Record != nil {
			if _, err := tx.NamedExecContext(ctx, insertJobQuery, toPersistence(out.Record)); err != nil {
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
	condArgs := []any{
		millis(cutoff),
		stateCreated, len(jobx.CompletionPrefix), jobx.CompletionPrefix, millis(cutoff),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, mapError("archive", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO archive (`+jobColumns+`, archived_on)
		SELECT `+jobColumns+`, ? FROM job WHERE `+archiveCondition,
		append([]any{millis(archivedOn)}, condArgs...)...)
	if err != nil {
		return 0, mapError("archive", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("archive", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM job WHERE `+archiveCondition, condArgs...); err != nil {
		return 0, mapError("archive", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, mapError("archive", err)
	}
	return int(n), nil
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return s.exec(ctx, "purge", `DELETE FROM archive WHERE archived_on < ?`, millis(cutoff))
}

func (s *Store) CountStates(ctx context.Context) ([]jobx.StateCount, error) {
	var rows []struct {
		Name  string `db:"name"`
		State int    `db:"state"`
		Count int    `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT name, state, count(*) AS count
		FROM job
		WHERE substr(name, 1, ?) <> ?
		GROUP BY name, state`,
		len(jobx.CompletionPrefix), jobx.CompletionPrefix)
	if err != nil {
		return nil, mapError("count states", err)
	}

	detail := make([]jobx.StateCount, 0, len(rows))
	for _, r := range rows {
		st, ok := jobx.StateAt(r.State)
		if !ok {
			continue
		}
		detail = append(detail, jobx.StateCount{Name: r.Name, State: st, Count: r.Count})
	}
	return jobx.Rollup(detail), nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*jobx.Job, error) {
	var row jobRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM job WHERE id = ?`, id); err != nil {
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
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM archive WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobx.NotFound(id)
		}
		return nil, mapError("get archived job", err)
	}
	return &jobx.ArchivedJob{Job: toDomain(row.jobRow), ArchivedOn: fromMillis(row.ArchivedOn)}, nil
}

func (s *Store) DeleteQueue(ctx context.Context, name string) (int, error) {
	return s.exec(ctx, "delete queue", `DELETE FROM job WHERE name = ?`, name)
}

func (s *Store) DeleteAllQueues(ctx context.Context) error {
	_, err := s.exec(ctx, "delete all queues", `DELETE FROM job`)
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
