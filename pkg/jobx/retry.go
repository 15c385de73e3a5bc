package jobx

import (
	"math"
	"time"
)

// maxBackoffExponent caps 2^n in the backoff formula.
const maxBackoffExponent = 16

// MaxRetryWait is the longest delay a retry can be scheduled out. Larger
// computed delays saturate here instead of overflowing time.Duration.
const MaxRetryWait = time.Duration(math.MaxInt64)

// Transition is the persisted effect of a state change on one job.
type Transition struct {
	State       State
	StartAfter  time.Time
	CompletedOn *time.Time
}

// Apply writes t onto j.
func (t Transition) Apply(j *Job) {
	j.State = t.State
	j.StartAfter = t.StartAfter
	j.CompletedOn = cloneTime(t.CompletedOn)
}

// NextAfterFailure decides where a failed or expired job goes next. Jobs
// with retries left move to retry with a recomputed start time; the rest
// land in terminal and are stamped completed at now. jitter must be in
// [0, 1).
func NextAfterFailure(j *Job, terminal State, now time.Time, jitter float64) Transition {
	t := Transition{State: terminal, StartAfter: j.StartAfter}

	if j.RetryCount < j.RetryLimit {
		t.State = StateRetry
	} else {
		completed := now
		t.CompletedOn = &completed
	}

	switch {
	case j.RetryCount == j.RetryLimit:
	case !j.RetryBackoff:
		t.StartAfter = now.Add(seconds(float64(j.RetryDelay)))
	default:
		t.StartAfter = now.Add(BackoffDelay(j.RetryDelay, j.RetryCount, jitter))
	}
	return t
}

// BackoffBase is the un-jittered backoff in seconds for a job that has been
// retried retryCount times: retryDelay * 2^min(16, retryCount+1) / 2.
func BackoffBase(retryDelay, retryCount int) float64 {
	exp := retryCount + 1
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	return float64(retryDelay) * math.Pow(2, float64(exp)) / 2
}

// BackoffDelay returns the jittered delay, which lies in [base, 2*base)
// whenever 2*base fits below MaxRetryWait. Beyond that it saturates at
// MaxRetryWait, so delays never decrease as retryCount grows.
func BackoffDelay(retryDelay, retryCount int, jitter float64) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	if jitter >= 1 {
		jitter = math.Nextafter(1, 0)
	}
	base := seconds(BackoffBase(retryDelay, retryCount))
	extra := time.Duration(float64(base) * jitter)
	if extra >= base && base > 0 {
		extra = base - 1
	}
	if extra > MaxRetryWait-base {
		return MaxRetryWait
	}
	return base + extra
}

// seconds converts s to a Duration, saturating at MaxRetryWait.
func seconds(s float64) time.Duration {
	ns := s * float64(time.Second)
	if ns >= float64(MaxRetryWait) {
		return MaxRetryWait
	}
	return time.Duration(ns)
}
