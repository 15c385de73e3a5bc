package jobx_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/pgque/pkg/jobx"
)

func TestSingletonBucket(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 45, 500, time.UTC)

	tests := []struct {
		name           string
		window, offset int
		want           time.Time
	}{
		{"minute window", 60, 0, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"hour window", 3600, 0, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"offset crosses boundary", 60, 30, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)},
		{"offset stays in bucket", 60, 10, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jobx.SingletonBucket(at, tt.window, tt.offset)
			if got == nil || !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSingletonBucket_NoWindow(t *testing.T) {
	if got := jobx.SingletonBucket(time.Now(), 0, 30); got != nil {
		t.Fatalf("expected nil bucket, got %v", got)
	}
}

func TestSingletonBucket_SameWindowSameBucket(t *testing.T) {
	a := jobx.SingletonBucket(time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), 300, 0)
	b := jobx.SingletonBucket(time.Date(2024, 1, 1, 0, 4, 59, 0, time.UTC), 300, 0)
	c := jobx.SingletonBucket(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), 300, 0)
	if !a.Equal(*b) {
		t.Fatalf("expected same bucket, got %v and %v", a, b)
	}
	if a.Equal(*c) {
		t.Fatal("expected a new bucket at the window boundary")
	}
}
