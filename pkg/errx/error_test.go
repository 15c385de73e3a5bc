package errx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Abraxas-365/pgque/pkg/errx"
)

var testErrors = errx.NewRegistry("TEST")

var (
	errBusy    = testErrors.Register("BUSY", errx.TypeExternal, 503, "Store busy")
	errMissing = testErrors.Register("MISSING", errx.TypeNotFound, 404, "Row missing")
)

func TestRegistry_PrefixesCode(t *testing.T) {
	err := testErrors.New(errBusy)
	if err.Code != "TEST_BUSY" {
		t.Fatalf("expected TEST_BUSY, got %s", err.Code)
	}
	if err.HTTPStatus != 503 {
		t.Fatalf("expected status 503, got %d", err.HTTPStatus)
	}
	if got, ok := testErrors.Get("BUSY"); !ok || got != errBusy {
		t.Fatal("registered code not retrievable")
	}
}

func TestError_IsMatchesOnCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("claim: %w", testErrors.NewWithCause(errBusy, cause).WithDetail("queue", "q"))

	if !errors.Is(err, testErrors.New(errBusy)) {
		t.Fatal("expected errors.Is to match on code")
	}
	if errors.Is(err, testErrors.New(errMissing)) {
		t.Fatal("different code must not match")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should stay reachable through Unwrap")
	}
}

func TestIsCode_WalksWrappedErrors(t *testing.T) {
	inner := testErrors.New(errBusy)
	outer := errx.Wrap(inner, "sweep failed", errx.TypeInternal)

	if !errx.IsCode(outer, errBusy) {
		t.Fatal("expected IsCode to find code through Wrap")
	}
	if errx.IsCode(outer, errMissing) {
		t.Fatal("unexpected match")
	}
	if errx.IsCode(nil, errBusy) {
		t.Fatal("nil error never matches")
	}
}

func TestIsType(t *testing.T) {
	if !errx.IsType(testErrors.New(errMissing), errx.TypeNotFound) {
		t.Fatal("expected not found type")
	}
	if errx.IsType(errors.New("plain"), errx.TypeNotFound) {
		t.Fatal("plain errors have no type")
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	if errx.Wrap(nil, "x", errx.TypeInternal) != nil {
		t.Fatal("wrapping nil must return nil")
	}
}
