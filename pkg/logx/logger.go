package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// callerDepth is the stack distance from callerOf to the code that called
// an Entry level method.
const callerDepth = 3

// Logger writes records at or above its level to one output.
type Logger struct {
	level     atomic.Int32
	formatter Formatter
	caller    bool
	now       func() time.Time
	exitFunc  func(int)

	mu  sync.Mutex
	out io.Writer
}

func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{
		caller:   cfg.Caller,
		now:      time.Now,
		exitFunc: os.Exit,
		out:      cfg.Output,
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if cfg.Format == FormatJSON {
		l.formatter = NewJSONFormatter(cfg)
	} else {
		l.formatter = NewConsoleFormatter(cfg)
	}
	l.level.Store(int32(cfg.Level))
	return l
}

func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *Logger) Level() Level { return Level(l.level.Load()) }

// Enabled reports whether a record at level would be written.
func (l *Logger) Enabled(level Level) bool {
	floor := l.Level()
	return floor != LevelOff && level >= floor
}

func (l *Logger) entry() *Entry { return &Entry{logger: l} }

// Component returns an entry whose records carry the component name, so a
// subsystem's lines can be filtered together.
func (l *Logger) Component(name string) *Entry {
	e := l.entry()
	e.component = name
	return e
}

func (l *Logger) WithField(key string, value any) *Entry { return l.entry().WithField(key, value) }

func (l *Logger) WithFields(fields Fields) *Entry { return l.entry().WithFields(fields) }

func (l *Logger) WithError(err error) *Entry { return l.entry().WithError(err) }

func (l *Logger) write(rec *Record) {
	line, err := l.formatter.Format(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(line); err != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", err)
	}
}

func (l *Logger) exit(code int) { l.exitFunc(code) }

func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
