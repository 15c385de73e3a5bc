package jobxsqlite

import (
	"context"
	"errors"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/mattn/go-sqlite3"
)

// mapError classifies a driver error into the jobx taxonomy. Busy and
// locked databases are transient.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return jobx.Transient(op, err).WithDetail("sqlite_code", int(sqliteErr.Code))
		}
		return jobx.StoreFailed(op, err).WithDetail("sqlite_code", int(sqliteErr.Code))
	}
	return jobx.StoreFailed(op, err)
}
