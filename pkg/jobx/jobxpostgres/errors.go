package jobxpostgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/Abraxas-365/pgque/pkg/errx"
	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/lib/pq"
)

var pgErrors = errx.NewRegistry("JOBX_POSTGRES")

var (
	ErrSchema        = pgErrors.Register("SCHEMA", errx.TypeExternal, 500, "Failed to create queue schema")
	ErrInvalidSchema = pgErrors.Register("INVALID_SCHEMA", errx.TypeValidation, 400, "Invalid schema name")
)

// SQLSTATEs worth retrying: serialization_failure, deadlock_detected,
// lock_not_available, admin_shutdown, cannot_connect_now.
var transientCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"57P01": true,
	"57P03": true,
}

// mapError classifies a driver error into the jobx taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if transientCodes[pqErr.Code] || pqErr.Code.Class() == "08" {
			return jobx.Transient(op, err).WithDetail("sqlstate", string(pqErr.Code))
		}
		return jobx.StoreFailed(op, err).WithDetail("sqlstate", string(pqErr.Code))
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return jobx.Transient(op, err)
	}
	return jobx.StoreFailed(op, err)
}
