package jobxpostgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/lib/pq"
)

func TestNewPlans_QuotesSchema(t *testing.T) {
	p := newPlans(`we"ird`)
	if !strings.Contains(p.getJob, `"we""ird".job`) {
		t.Fatalf("schema not quoted: %s", p.getJob)
	}
	if !strings.Contains(p.claim, "FOR UPDATE SKIP LOCKED") {
		t.Fatal("claim must skip locked rows")
	}
	if !strings.Contains(p.claim, `ESCAPE '\'`) {
		t.Fatal("claim must honour backslash escapes")
	}
}

func TestSelectForTransition(t *testing.T) {
	p := newPlans("pgque")
	stale := time.Now()

	q, args := p.selectForTransition(nil, "active", "", stale, true)
	want := `SELECT * FROM "pgque".job WHERE state = $1 AND started_on + expire_in * interval '1 second' < $2 ORDER BY id FOR UPDATE SKIP LOCKED`
	if q != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", q, want)
	}
	if len(args) != 2 || args[0] != "active" || args[1] != stale {
		t.Fatalf("unexpected args %v", args)
	}

	q, args = p.selectForTransition([]string{"a", "b"}, "", "completed", nil, false)
	want = `SELECT * FROM "pgque".job WHERE id = ANY($1::uuid[]) AND state < $2 ORDER BY id FOR UPDATE`
	if q != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", q, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code      pq.ErrorCode
		transient bool
	}{
		{"40001", true},
		{"40P01", true},
		{"55P03", true},
		{"08006", true},
		{"23505", false},
		{"42P01", false},
	}
	for _, tt := range tests {
		err := mapError("claim", &pq.Error{Code: tt.code})
		if got := jobx.IsTransient(err); got != tt.transient {
			t.Errorf("code %s: transient = %v, want %v", tt.code, got, tt.transient)
		}
	}

	if mapError("claim", nil) != nil {
		t.Fatal("nil stays nil")
	}
	if err := mapError("claim", errors.New("boom")); jobx.IsTransient(err) {
		t.Fatal("unknown errors are not transient")
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	key := "daily"
	on := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &jobx.Job{
		ID:           "6f1c2a1e-8c7b-4a55-9f3e-2b1d0c9e8a77",
		Name:         "report",
		State:        jobx.StateRetry,
		RetryLimit:   3,
		RetryCount:   1,
		RetryDelay:   2,
		RetryBackoff: true,
		StartAfter:   on,
		ExpireIn:     90 * time.Second,
		SingletonKey: &key,
		SingletonOn:  &on,
		CreatedOn:    on,
	}

	row := toPersistence(j)
	if row.Data != nil {
		t.Fatal("empty data must be stored as NULL")
	}
	if row.ExpireIn != 90 {
		t.Fatalf("expected 90 seconds, got %d", row.ExpireIn)
	}

	back := toDomain(row)
	if back.State != jobx.StateRetry || back.ExpireIn != j.ExpireIn || *back.SingletonKey != key {
		t.Fatalf("round trip changed the job: %+v", back)
	}
}

func TestExpireSeconds_RoundsUp(t *testing.T) {
	if got := expireSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := expireSeconds(time.Minute); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
}
