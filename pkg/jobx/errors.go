package jobx

import (
	"context"
	"errors"

	"github.com/Abraxas-365/pgque/pkg/errx"
)

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrJobNotFound      = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrInvalidArgument  = jobxErrors.Register("INVALID_ARGUMENT", errx.TypeValidation, 400, "Invalid argument")
	ErrStoreTransient   = jobxErrors.Register("STORE_TRANSIENT", errx.TypeExternal, 503, "Store temporarily unavailable, retry with the same ids")
	ErrStoreFailed      = jobxErrors.Register("STORE_FAILED", errx.TypeExternal, 500, "Store operation failed")
	ErrNoHandler        = jobxErrors.Register("NO_HANDLER", errx.TypeValidation, 400, "No handler registered for queue")
	ErrAlreadyRunning   = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Already running")
	ErrWakerUnavailable = jobxErrors.Register("WAKER_UNAVAILABLE", errx.TypeExternal, 502, "Wake-up channel unavailable")
)

// Errors returns the jobx error registry so store adapters build errors
// with the same codes.
func Errors() *errx.Registry { return jobxErrors }

// InvalidArgument returns a validation error for the named argument.
func InvalidArgument(arg, reason string) *errx.Error {
	return jobxErrors.New(ErrInvalidArgument).
		WithDetail("argument", arg).
		WithDetail("reason", reason)
}

// Transient wraps a store error the caller may retry.
func Transient(op string, cause error) *errx.Error {
	return jobxErrors.NewWithCause(ErrStoreTransient, cause).WithDetail("op", op)
}

// StoreFailed wraps a non-retryable store error.
func StoreFailed(op string, cause error) *errx.Error {
	return jobxErrors.NewWithCause(ErrStoreFailed, cause).WithDetail("op", op)
}

// NotFound returns the not-found error for id.
func NotFound(id string) *errx.Error {
	return jobxErrors.New(ErrJobNotFound).WithDetail("job_id", id)
}

// IsTransient reports whether err may succeed if retried unchanged.
func IsTransient(err error) bool {
	return errx.IsCode(err, ErrStoreTransient)
}

// IsNotFound reports whether err is a job-not-found error.
func IsNotFound(err error) bool {
	return errx.IsCode(err, ErrJobNotFound)
}

// IsInvalidArgument reports whether err was caused by bad input.
func IsInvalidArgument(err error) bool {
	return errx.IsCode(err, ErrInvalidArgument)
}

// IsContextDone reports whether err comes from a cancelled or expired
// context.
func IsContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
