package jobx_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

func TestNewCompletionRecord(t *testing.T) {
	started := now.Add(-time.Minute)
	done := now
	j := &jobx.Job{
		ID:          "0b7e6f6a-3c0f-4b8e-9a51-6f7e2d3c9a10",
		Name:        "email",
		Data:        json.RawMessage(`{"to":"a@b.c"}`),
		State:       jobx.StateFailed,
		RetryCount:  2,
		CreatedOn:   now.Add(-time.Hour),
		StartedOn:   &started,
		CompletedOn: &done,
	}

	rec, err := jobx.NewCompletionRecord("rec-1", j, json.RawMessage(`{"message":"boom"}`), now)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != jobx.CompletionPrefix+"email" || !rec.IsCompletion() {
		t.Fatalf("unexpected record name %q", rec.Name)
	}
	if rec.State != jobx.StateCreated || !rec.StartAfter.Equal(now) {
		t.Fatalf("record must be claimable now, got %s at %v", rec.State, rec.StartAfter)
	}

	var env map[string]any
	if err := json.Unmarshal(rec.Data, &env); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"request", "response", "state", "retryCount", "createdOn", "startedOn", "completedOn", "failed"} {
		if _, ok := env[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}
	if env["failed"] != true || env["state"] != "failed" {
		t.Fatalf("unexpected envelope %v", env)
	}
	req := env["request"].(map[string]any)
	if req["id"] != j.ID || req["name"] != "email" {
		t.Fatalf("unexpected request %v", req)
	}
}

func TestNewCompletionRecord_SkipsCompletionRecords(t *testing.T) {
	j := &jobx.Job{Name: jobx.CompletionName("email"), State: jobx.StateCompleted}
	rec, err := jobx.NewCompletionRecord("rec-1", j, nil, now)
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %v %v", rec, err)
	}
}

func TestNewCompletionEnvelope_NullsMissingPayloads(t *testing.T) {
	env := jobx.NewCompletionEnvelope(&jobx.Job{ID: "x", Name: "q", State: jobx.StateCompleted}, nil)
	if string(env.Request.Data) != "null" || string(env.Response) != "null" {
		t.Fatalf("expected null payloads, got %s and %s", env.Request.Data, env.Response)
	}
	if env.Failed {
		t.Fatal("completed jobs are not failed")
	}
}

func TestEscapePattern(t *testing.T) {
	tests := map[string]string{
		"email":      "email",
		"a_b":        `a\_b`,
		"50%":        `50\%`,
		`back\slash`: `back\\slash`,
	}
	for in, want := range tests {
		if got := jobx.EscapePattern(in); got != want {
			t.Errorf("EscapePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
