package jobxredis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/errx"
	"github.com/Abraxas-365/pgque/pkg/jobx/jobxredis"
	"github.com/redis/go-redis/v9"
)

func TestWaker_Channel(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	if got := jobxredis.NewWaker(rdb).Channel("email"); got != "pgque:wake:email" {
		t.Fatalf("unexpected channel %q", got)
	}
	if got := jobxredis.NewWaker(rdb, jobxredis.WithPrefix("staging:")).Channel("email"); got != "staging:email" {
		t.Fatalf("unexpected channel %q", got)
	}
}

func TestWaker_NotifyWrapsErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	err := jobxredis.NewWaker(rdb).Notify(context.Background(), "email")
	if !errx.IsCode(err, jobxredis.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestWaker_PubSub(t *testing.T) {
	addr := os.Getenv("PGQUE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PGQUE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	w := jobxredis.NewWaker(rdb, jobxredis.WithPrefix("pgque-test:"+time.Now().Format("150405.000")+":"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := w.Subscribe(ctx, "email")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Notify(ctx, "sms"); err != nil {
		t.Fatal(err)
	}
	if err := w.Notify(ctx, "email"); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-ch:
		if name != "email" {
			t.Fatalf("expected email, got %q", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no wake-up received")
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
