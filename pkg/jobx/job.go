package jobx

import (
	"encoding/json"
	"strings"
	"time"
)

// CompletionPrefix marks a job as a completion record: a notification about
// another job's outcome rather than a task.
const CompletionPrefix = "__state__completed__"

const (
	DefaultRetryLimit = 1
	DefaultRetryDelay = 1 // seconds
	DefaultExpireIn   = 7 * 24 * time.Hour
)

// Job is a row of the live job table.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Priority int             `json:"priority"`
	Data     json.RawMessage `json:"data,omitempty"`
	State    State           `json:"state"`

	RetryLimit   int  `json:"retryLimit"`
	RetryCount   int  `json:"retryCount"`
	RetryDelay   int  `json:"retryDelay"`
	RetryBackoff bool `json:"retryBackoff"`

	StartAfter time.Time     `json:"startAfter"`
	StartedOn  *time.Time    `json:"startedOn,omitempty"`
	ExpireIn   time.Duration `json:"expireIn"`

	SingletonKey *string    `json:"singletonKey,omitempty"`
	SingletonOn  *time.Time `json:"singletonOn,omitempty"`

	CreatedOn   time.Time  `json:"createdOn"`
	CompletedOn *time.Time `json:"completedOn,omitempty"`
}

// IsCompletion reports whether j is a completion record.
func (j *Job) IsCompletion() bool { return IsCompletionName(j.Name) }

// Stale reports whether an active job has outlived its expiry at now.
func (j *Job) Stale(now time.Time) bool {
	if j.State != StateActive || j.StartedOn == nil {
		return false
	}
	return j.StartedOn.Add(j.ExpireIn).Before(now)
}

// Eligible reports whether j may be claimed at now.
func (j *Job) Eligible(now time.Time) bool {
	return j.State.Claimable() && !j.StartAfter.After(now)
}

// Clone returns a deep copy of j.
func (j *Job) Clone() Job {
	c := *j
	if j.Data != nil {
		c.Data = append(json.RawMessage(nil), j.Data...)
	}
	c.StartedOn = cloneTime(j.StartedOn)
	c.CompletedOn = cloneTime(j.CompletedOn)
	c.SingletonOn = cloneTime(j.SingletonOn)
	if j.SingletonKey != nil {
		k := *j.SingletonKey
		c.SingletonKey = &k
	}
	return c
}

// ClaimedJob is what a consumer receives from Claim.
type ClaimedJob struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// ArchivedJob is a terminal job moved to cold storage.
type ArchivedJob struct {
	Job
	ArchivedOn time.Time `json:"archivedOn"`
}

// IsCompletionName reports whether name belongs to a completion record.
func IsCompletionName(name string) bool {
	return strings.HasPrefix(name, CompletionPrefix)
}

// CompletionName returns the listener queue name for completions of name.
func CompletionName(name string) string {
	return CompletionPrefix + name
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ValidatePattern rejects claim patterns that end in an unpaired escape
// character, which LIKE cannot evaluate.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return InvalidArgument("pattern", "must not be empty")
	}
	escaped := false
	for i := 0; i < len(pattern); i++ {
		switch {
		case escaped:
			escaped = false
		case pattern[i] == '\\':
			escaped = true
		}
	}
	if escaped {
		return InvalidArgument("pattern", "must not end with an unpaired escape character")
	}
	return nil
}

// EscapePattern turns a literal queue name into a claim pattern that only
// matches that name.
func EscapePattern(name string) string {
	return likeEscaper.Replace(name)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
