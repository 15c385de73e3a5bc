package jobx

import (
	"encoding/json"
	"time"
)

// CompletionRequest echoes the job a completion record reports on.
type CompletionRequest struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// CompletionEnvelope is the data payload of a completion record.
type CompletionEnvelope struct {
	Request     CompletionRequest `json:"request"`
	Response    json.RawMessage   `json:"response"`
	State       State             `json:"state"`
	RetryCount  int               `json:"retryCount"`
	CreatedOn   time.Time         `json:"createdOn"`
	StartedOn   *time.Time        `json:"startedOn"`
	CompletedOn *time.Time        `json:"completedOn"`
	Failed      bool              `json:"failed"`
}

// NewCompletionEnvelope builds the envelope for j after its terminal
// transition has been applied.
func NewCompletionEnvelope(j *Job, response json.RawMessage) CompletionEnvelope {
	data := j.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	if len(response) == 0 {
		response = json.RawMessage("null")
	}
	return CompletionEnvelope{
		Request:     CompletionRequest{ID: j.ID, Name: j.Name, Data: data},
		Response:    response,
		State:       j.State,
		RetryCount:  j.RetryCount,
		CreatedOn:   j.CreatedOn,
		StartedOn:   cloneTime(j.StartedOn),
		CompletedOn: cloneTime(j.CompletedOn),
		Failed:      j.State != StateCompleted,
	}
}

// NewCompletionRecord returns the notification job for j, or nil when j is
// itself a completion record.
func NewCompletionRecord(id string, j *Job, response json.RawMessage, now time.Time) (*Job, error) {
	if j.IsCompletion() {
		return nil, nil
	}
	payload, err := json.Marshal(NewCompletionEnvelope(j, response))
	if err != nil {
		return nil, jobxErrors.NewWithCause(ErrInvalidArgument, err).
			WithDetail("reason", "completion envelope not serializable").
			WithDetail("job_id", j.ID)
	}
	return &Job{
		ID:         id,
		Name:       CompletionName(j.Name),
		Data:       payload,
		State:      StateCreated,
		RetryLimit: 0,
		RetryDelay: 0,
		StartAfter: now,
		ExpireIn:   DefaultExpireIn,
		CreatedOn:  now,
	}, nil
}
