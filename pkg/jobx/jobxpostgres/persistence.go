package jobxpostgres

import (
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

type jobRow struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	Priority     int        `db:"priority"`
	Data         *string    `db:"data"`
	State        string     `db:"state"`
	RetryLimit   int        `db:"retry_limit"`
	RetryCount   int        `db:"retry_count"`
	RetryDelay   int        `db:"retry_delay"`
	RetryBackoff bool       `db:"retry_backoff"`
	StartAfter   time.Time  `db:"start_after"`
	StartedOn    *time.Time `db:"started_on"`
	ExpireIn     int        `db:"expire_in"`
	SingletonKey *string    `db:"singleton_key"`
	SingletonOn  *time.Time `db:"singleton_on"`
	CreatedOn    time.Time  `db:"created_on"`
	CompletedOn  *time.Time `db:"completed_on"`
}

type archiveRow struct {
	jobRow
	ArchivedOn time.Time `db:"archived_on"`
}

type stateCountRow struct {
	Name  *string `db:"name"`
	State *string `db:"state"`
	Count int     `db:"count"`
}

func toPersistence(j *jobx.Job) jobRow {
	row := jobRow{
		ID:           j.ID,
		Name:         j.Name,
		Priority:     j.Priority,
		State:        string(j.State),
		RetryLimit:   j.RetryLimit,
		RetryCount:   j.RetryCount,
		RetryDelay:   j.RetryDelay,
		RetryBackoff: j.RetryBackoff,
		StartAfter:   j.StartAfter,
		StartedOn:    j.StartedOn,
		ExpireIn:     expireSeconds(j.ExpireIn),
		SingletonKey: j.SingletonKey,
		SingletonOn:  j.SingletonOn,
		CreatedOn:    j.CreatedOn,
		CompletedOn:  j.CompletedOn,
	}
	// jsonb parameters go over the wire as text; []byte would be sent as bytea.
	if len(j.Data) > 0 {
		data := string(j.Data)
		row.Data = &data
	}
	return row
}

func toDomain(r jobRow) jobx.Job {
	j := jobx.Job{
		ID:           r.ID,
		Name:         r.Name,
		Priority:     r.Priority,
		State:        jobx.State(r.State),
		RetryLimit:   r.RetryLimit,
		RetryCount:   r.RetryCount,
		RetryDelay:   r.RetryDelay,
		RetryBackoff: r.RetryBackoff,
		StartAfter:   r.StartAfter.UTC(),
		StartedOn:    utc(r.StartedOn),
		ExpireIn:     time.Duration(r.ExpireIn) * time.Second,
		SingletonKey: r.SingletonKey,
		SingletonOn:  utc(r.SingletonOn),
		CreatedOn:    r.CreatedOn.UTC(),
		CompletedOn:  utc(r.CompletedOn),
	}
	if r.Data != nil {
		j.Data = []byte(*r.Data)
	}
	return j
}

func toDomainSlice(rows []jobRow) []jobx.Job {
	jobs := make([]jobx.Job, len(rows))
	for i, r := range rows {
		jobs[i] = toDomain(r)
	}
	return jobs
}

func toStateCounts(rows []stateCountRow) []jobx.StateCount {
	out := make([]jobx.StateCount, len(rows))
	for i, r := range rows {
		if r.Name != nil {
			out[i].Name = *r.Name
		}
		if r.State != nil {
			out[i].State = jobx.State(*r.State)
		}
		out[i].Count = r.Count
	}
	return out
}

// expireSeconds rounds d up to whole seconds.
func expireSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
