package jobx_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

func TestLocalWaker_DeliversToSubscribedNames(t *testing.T) {
	w := jobx.NewLocalWaker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := w.Subscribe(ctx, "email")
	if err != nil {
		t.Fatal(err)
	}

	_ = w.Notify(ctx, "sms")
	_ = w.Notify(ctx, "email")

	select {
	case name := <-ch:
		if name != "email" {
			t.Fatalf("expected email, got %q", name)
		}
	case <-time.After(time.Second):
		t.Fatal("no wake-up received")
	}

	select {
	case name := <-ch:
		t.Fatalf("unexpected wake-up for %q", name)
	default:
	}
}

func TestLocalWaker_ClosesOnCancel(t *testing.T) {
	w := jobx.NewLocalWaker()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := w.Subscribe(ctx, "email")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	if err := w.Notify(context.Background(), "email"); err != nil {
		t.Fatal(err)
	}
}
