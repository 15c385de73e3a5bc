package jobxsqlite

import "context"

// SchemaVersion is the version recorded by CreateSchema.
const SchemaVersion = 1

// States are stored as their rank so comparisons follow the lifecycle
// order: created=0 retry=1 active=2 completed=3 expired=4 cancelled=5
// failed=6.
const schema = `
CREATE TABLE IF NOT EXISTS version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS job (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	priority      INTEGER NOT NULL DEFAULT 0,
	data          TEXT,
	state         INTEGER NOT NULL DEFAULT 0,
	retry_limit   INTEGER NOT NULL DEFAULT 0,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	retry_delay   INTEGER NOT NULL DEFAULT 0,
	retry_backoff INTEGER NOT NULL DEFAULT 0,
	start_after   INTEGER NOT NULL,
	started_on    INTEGER,
	expire_in     INTEGER NOT NULL,
	singleton_key TEXT,
	singleton_on  INTEGER,
	created_on    INTEGER NOT NULL,
	completed_on  INTEGER
);

CREATE TABLE IF NOT EXISTS archive (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	priority      INTEGER NOT NULL,
	data          TEXT,
	state         INTEGER NOT NULL,
	retry_limit   INTEGER NOT NULL,
	retry_count   INTEGER NOT NULL,
	retry_delay   INTEGER NOT NULL,
	retry_backoff INTEGER NOT NULL,
	start_after   INTEGER NOT NULL,
	started_on    INTEGER,
	expire_in     INTEGER NOT NULL,
	singleton_key TEXT,
	singleton_on  INTEGER,
	created_on    INTEGER NOT NULL,
	completed_on  INTEGER,
	archived_on   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS job_name ON job (name);
CREATE INDEX IF NOT EXISTS job_fetch ON job (name, start_after) WHERE state < 2;
CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_key ON job (name, singleton_key)
	WHERE state < 3 AND singleton_on IS NULL AND singleton_key IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_on ON job (name, singleton_on)
	WHERE state < 4 AND singleton_key IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_key_on ON job (name, singleton_on, singleton_key)
	WHERE state < 4;
CREATE INDEX IF NOT EXISTS archive_archived_on ON archive (archived_on);
`

// CreateSchema creates the tables and indices if they do not exist and
// records SchemaVersion.
func (s *Store) CreateSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("create schema", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return mapError("create schema", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO version (version) VALUES (?) ON CONFLICT DO NOTHING`, SchemaVersion); err != nil {
		return mapError("create schema", err)
	}
	return mapError("create schema", tx.Commit())
}

// Version returns the recorded schema version, or 0 before CreateSchema.
func (s *Store) Version(ctx context.Context) (int, error) {
	var exists int
	if err := s.db.GetContext(ctx, &exists,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'version'`); err != nil {
		return 0, mapError("version", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v int
	if err := s.db.GetContext(ctx, &v, `SELECT coalesce(max(version), 0) FROM version`); err != nil {
		return 0, mapError("version", err)
	}
	return v, nil
}
