package logx

import (
	"fmt"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(LoadFromEnv()))
}

// SetDefaultLogger replaces the logger behind the package-level functions.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

func GetDefaultLogger() *Logger { return defaultLogger.Load() }

func std() *Entry { return defaultLogger.Load().entry() }

func Info(msg string) { std().emit(callerDepth, LevelInfo, msg) }
func Warn(msg string) { std().emit(callerDepth, LevelWarn, msg) }

func Infof(format string, args ...any) {
	std().emit(callerDepth, LevelInfo, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	std().emit(callerDepth, LevelError, fmt.Sprintf(format, args...))
}

// Fatalf logs and exits the process with status 1.
func Fatalf(format string, args ...any) {
	l := defaultLogger.Load()
	l.entry().emit(callerDepth, LevelFatal, fmt.Sprintf(format, args...))
	l.exit(1)
}

func WithFields(fields Fields) *Entry { return std().WithFields(fields) }

func WithError(err error) *Entry { return std().WithError(err) }
