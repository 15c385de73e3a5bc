package jobxpostgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// SchemaVersion is the version recorded by CreateSchema.
const SchemaVersion = 1

const jobColumns = `id, name, priority, data, state,
	retry_limit, retry_count, retry_delay, retry_backoff,
	start_after, started_on, expire_in,
	singleton_key, singleton_on, created_on, completed_on`

// plans holds every statement the store runs, rendered for one schema.
type plans struct {
	schema string

	createSchema  string
	versionExists string
	getVersion    string
	insertVersion string

	insertJob       string
	claim           string
	updateJob       string
	archive         string
	purge           string
	countStates     string
	getJob          string
	getArchivedJob  string
	deleteQueue     string
	deleteAllQueues string
}

func newPlans(schema string) plans {
	s := pq.QuoteIdentifier(schema)
	r := strings.NewReplacer("{s}", s, "{cols}", jobColumns)
	sql := func(q string) string { return r.Replace(q) }

	return plans{
		schema: schema,

		createSchema: sql(`
			CREATE SCHEMA IF NOT EXISTS {s};

			CREATE TABLE IF NOT EXISTS {s}.version (
				version integer PRIMARY KEY
			);

			DO $$ BEGIN
				CREATE TYPE {s}.job_state AS ENUM (
					'created', 'retry', 'active', 'completed', 'expired', 'cancelled', 'failed'
				);
			EXCEPTION WHEN duplicate_object THEN NULL;
			END $$;

			CREATE TABLE IF NOT EXISTS {s}.job (
				id            uuid PRIMARY KEY,
				name          text NOT NULL,
				priority      integer NOT NULL DEFAULT 0,
				data          jsonb,
				state         {s}.job_state NOT NULL DEFAULT 'created',
				retry_limit   integer NOT NULL DEFAULT 0,
				retry_count   integer NOT NULL DEFAULT 0,
				retry_delay   integer NOT NULL DEFAULT 0,
				retry_backoff boolean NOT NULL DEFAULT false,
				start_after   timestamptz NOT NULL,
				started_on    timestamptz,
				expire_in     integer NOT NULL,
				singleton_key text,
				singleton_on  timestamptz,
				created_on    timestamptz NOT NULL,
				completed_on  timestamptz
			);

			CREATE TABLE IF NOT EXISTS {s}.archive (
				LIKE {s}.job INCLUDING DEFAULTS,
				archived_on timestamptz NOT NULL,
				PRIMARY KEY (id)
			);

			CREATE INDEX IF NOT EXISTS job_name ON {s}.job (name text_pattern_ops);
			CREATE INDEX IF NOT EXISTS job_fetch ON {s}.job (name text_pattern_ops, start_after)
				WHERE state < 'active';
			CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_key ON {s}.job (name, singleton_key)
				WHERE state < 'completed' AND singleton_on IS NULL AND singleton_key IS NOT NULL;
			CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_on ON {s}.job (name, singleton_on)
				WHERE state < 'expired' AND singleton_key IS NULL;
			CREATE UNIQUE INDEX IF NOT EXISTS job_singleton_key_on ON {s}.job (name, singleton_on, singleton_key)
				WHERE state < 'expired';
			CREATE INDEX IF NOT EXISTS archive_archived_on ON {s}.archive (archived_on);
		`),
		versionExists: `SELECT to_regclass($1) IS NOT NULL`,
		getVersion:    sql(`SELECT coalesce(max(version), 0) FROM {s}.version`),
		insertVersion: sql(`INSERT INTO {s}.version (version) VALUES ($1) ON CONFLICT DO NOTHING`),

		insertJob: sql(`
			INSERT INTO {s}.job ({cols})
			VALUES (:id, :name, :priority, :data, :state,
				:retry_limit, :retry_count, :retry_delay, :retry_backoff,
				:start_after, :started_on, :expire_in,
				:singleton_key, :singleton_on, :created_on, :completed_on)
			ON CONFLICT DO NOTHING`),

		claim: sql(`
			WITH next AS (
				SELECT id FROM {s}.job
				WHERE state < 'active'
					AND name LIKE $1 ESCAPE '\'
					AND start_after <= $2
				ORDER BY priority DESC, created_on, id
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			UPDATE {s}.job j SET
				state = 'active',
				started_on = $2,
				retry_count = CASE WHEN j.state = 'retry' THEN j.retry_count + 1 ELSE j.retry_count END
			FROM next
			WHERE j.id = next.id
			RETURNING j.*`),

		updateJob: sql(`
			UPDATE {s}.job SET state = $2, start_after = $3, completed_on = $4
			WHERE id = $1`),

		archive: sql(`
			WITH archived AS (
				DELETE FROM {s}.job
				WHERE completed_on < $1
					OR (state = 'created' AND left(name, char_length($3)) = $3 AND created_on < $1)
				RETURNING {cols}
			)
			INSERT INTO {s}.archive ({cols}, archived_on)
			SELECT {cols}, $2 FROM archived`),

		purge: sql(`DELETE FROM {s}.archive WHERE archived_on < $1`),

		countStates: sql(`
			SELECT name, state::text AS state, count(*) AS count
			FROM {s}.job
			WHERE left(name, char_length($1)) <> $1
			GROUP BY ROLLUP(name), ROLLUP(state)
			ORDER BY name NULLS LAST, state NULLS LAST`),

		getJob:          sql(`SELECT * FROM {s}.job WHERE id = $1`),
		getArchivedJob:  sql(`SELECT * FROM {s}.archive WHERE id = $1`),
		deleteQueue:     sql(`DELETE FROM {s}.job WHERE name = $1`),
		deleteAllQueues: sql(`TRUNCATE {s}.job`),
	}
}

// selectForTransition renders the locking read behind Store.Transition.
// Arguments are returned in placeholder order.
func (p plans) selectForTransition(ids []string, state, below string, staleAt any, skipLocked bool) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(ids) > 0 {
		where = append(where, "id = ANY("+arg(pq.Array(ids))+"::uuid[])")
	}
	if state != "" {
		where = append(where, "state = "+arg(state))
	}
	if below != "" {
		where = append(where, "state < "+arg(below))
	}
	if staleAt != nil {
		where = append(where, "started_on + expire_in * interval '1 second' < "+arg(staleAt))
	}
	if len(where) == 0 {
		where = append(where, "true")
	}

	q := fmt.Sprintf("SELECT * FROM %s.job WHERE %s ORDER BY id FOR UPDATE",
		pq.QuoteIdentifier(p.schema), strings.Join(where, " AND "))
	if skipLocked {
		q += " SKIP LOCKED"
	}
	return q, args
}
