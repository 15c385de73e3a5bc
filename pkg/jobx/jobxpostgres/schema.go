package jobxpostgres

import (
	"context"

	"github.com/lib/pq"
)

// CreateSchema creates the schema, tables and indices if they do not exist
// and records SchemaVersion. Concurrent callers serialize on an advisory
// lock, so every process may call it at startup.
func (s *Store) CreateSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pgErrors.NewWithCause(ErrSchema, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "pgque:"+s.plans.schema); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err).WithDetail("step", "lock")
	}
	if _, err := tx.ExecContext(ctx, s.plans.createSchema); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err).WithDetail("schema", s.plans.schema)
	}
	if _, err := tx.ExecContext(ctx, s.plans.insertVersion, SchemaVersion); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err).WithDetail("step", "version")
	}
	if err := tx.Commit(); err != nil {
		return pgErrors.NewWithCause(ErrSchema, err)
	}
	return nil
}

// Version returns the schema version recorded in the database, or 0 when
// the schema has not been created.
func (s *Store) Version(ctx context.Context) (int, error) {
	var exists bool
	table := pq.QuoteIdentifier(s.plans.schema) + ".version"
	if err := s.db.GetContext(ctx, &exists, s.plans.versionExists, table); err != nil {
		return 0, mapError("version", err)
	}
	if !exists {
		return 0, nil
	}

	var v int
	if err := s.db.GetContext(ctx, &v, s.plans.getVersion); err != nil {
		return 0, mapError("version", err)
	}
	return v, nil
}
