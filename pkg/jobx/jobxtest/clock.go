// Package jobxtest holds helpers shared by the store tests: a manual clock
// and a behaviour suite every jobx.Store must pass.
package jobxtest

import (
	"io"
	"sync"
	"time"

	"github.com/Abraxas-365/pgque/pkg/logx"
)

// Epoch is where test clocks start.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a time source that only moves when told to.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// QuietLogger returns a logger that drops everything.
func QuietLogger() *logx.Logger {
	return logx.NewLogger(&logx.Config{
		Level:      logx.LevelOff,
		Format:     logx.FormatJSON,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}
