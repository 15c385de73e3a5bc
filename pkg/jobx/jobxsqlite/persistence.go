package jobxsqlite

import (
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

type jobRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Priority     int     `db:"priority"`
	Data         *string `db:"data"`
	State        int     `db:"state"`
	RetryLimit   int     `db:"retry_limit"`
	RetryCount   int     `db:"retry_count"`
	RetryDelay   int     `db:"retry_delay"`
	RetryBackoff bool    `db:"retry_backoff"`
	StartAfter   int64   `db:"start_after"`
	StartedOn    *int64  `db:"started_on"`
	ExpireIn     int     `db:"expire_in"`
	SingletonKey *string `db:"singleton_key"`
	SingletonOn  *int64  `db:"singleton_on"`
	CreatedOn    int64   `db:"created_on"`
	CompletedOn  *int64  `db:"completed_on"`
}

type archiveRow struct {
	jobRow
	ArchivedOn int64 `db:"archived_on"`
}

func toPersistence(j *jobx.Job) jobRow {
	row := jobRow{
		ID:           j.ID,
		Name:         j.Name,
		Priority:     j.Priority,
		State:        j.State.Rank(),
		RetryLimit:   j.RetryLimit,
		RetryCount:   j.RetryCount,
		RetryDelay:   j.RetryDelay,
		RetryBackoff: j.RetryBackoff,
		StartAfter:   millis(j.StartAfter),
		StartedOn:    millisPtr(j.StartedOn),
		ExpireIn:     int((j.ExpireIn + time.Second - 1) / time.Second),
		SingletonKey: j.SingletonKey,
		SingletonOn:  millisPtr(j.SingletonOn),
		CreatedOn:    millis(j.CreatedOn),
		CompletedOn:  millisPtr(j.CompletedOn),
	}
	if len(j.Data) > 0 {
		data := string(j.Data)
		row.Data = &data
	}
	return row
}

func toDomain(r jobRow) jobx.Job {
	state, _ := jobx.StateAt(r.State)
	j := jobx.Job{
		ID:           r.ID,
		Name:         r.Name,
		Priority:     r.Priority,
		State:        state,
		RetryLimit:   r.RetryLimit,
		RetryCount:   r.RetryCount,
		RetryDelay:   r.RetryDelay,
		RetryBackoff: r.RetryBackoff,
		StartAfter:   fromMillis(r.StartAfter),
		StartedOn:    fromMillisPtr(r.StartedOn),
		ExpireIn:     time.Duration(r.ExpireIn) * time.Second,
		SingletonKey: r.SingletonKey,
		SingletonOn:  fromMillisPtr(r.SingletonOn),
		CreatedOn:    fromMillis(r.CreatedOn),
		CompletedOn:  fromMillisPtr(r.CompletedOn),
	}
	if r.Data != nil {
		j.Data = []byte(*r.Data)
	}
	return j
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixMilli()
	return &v
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}
