package jobxsqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/pgque/pkg/jobx"
	"github.com/mattn/go-sqlite3"
)

func TestMapError(t *testing.T) {
	if err := mapError("claim", sqlite3.Error{Code: sqlite3.ErrBusy}); !jobx.IsTransient(err) {
		t.Fatalf("busy must be transient, got %v", err)
	}
	if err := mapError("claim", sqlite3.Error{Code: sqlite3.ErrLocked}); !jobx.IsTransient(err) {
		t.Fatalf("locked must be transient, got %v", err)
	}
	if err := mapError("insert", sqlite3.Error{Code: sqlite3.ErrConstraint}); jobx.IsTransient(err) {
		t.Fatal("constraint violations are not transient")
	}
	if err := mapError("claim", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("context errors pass through, got %v", err)
	}
	if mapError("claim", nil) != nil {
		t.Fatal("nil stays nil")
	}
}
