package logx

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiGray   = "\033[90m"
	ansiCyan   = "\033[36m"
	ansiRed    = "\033[31m"
	ansiBold   = "\033[1m"
	ansiGreen  = "\033[1;32m"
	ansiYellow = "\033[1;33m"
	ansiBRed   = "\033[1;31m"
)

var levelColors = map[Level]string{
	LevelDebug: ansiCyan,
	LevelInfo:  ansiGreen,
	LevelWarn:  ansiYellow,
	LevelError: ansiBRed,
	LevelFatal: ansiBRed,
}

// ConsoleFormatter writes human-readable lines:
//
//	2024-01-01T00:00:00Z [INFO ] queue: jobs claimed claimed=3 pattern=email
type ConsoleFormatter struct {
	timeFormat string
	color      bool
}

func NewConsoleFormatter(cfg *Config) *ConsoleFormatter {
	return &ConsoleFormatter{timeFormat: cfg.TimeFormat, color: cfg.Color}
}

func (f *ConsoleFormatter) Format(r *Record) ([]byte, error) {
	var b strings.Builder

	if ts, ok := timestamp(r.Time, f.timeFormat); ok {
		f.paint(&b, ansiGray, ts)
		b.WriteByte(' ')
	}
	f.paint(&b, levelColors[r.Level], fmt.Sprintf("[%-5s]", r.Level))
	b.WriteByte(' ')

	if r.Caller != "" {
		f.paint(&b, ansiGray, r.Caller)
		b.WriteByte(' ')
	}
	if r.Component != "" {
		f.paint(&b, ansiBold, r.Component+":")
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)

	for _, k := range r.sortedKeys() {
		b.WriteByte(' ')
		f.paint(&b, ansiCyan, k+"=")
		b.WriteString(quoteValue(r.Fields[k]))
	}
	if r.Err != nil {
		b.WriteByte(' ')
		f.paint(&b, ansiRed, "error="+quoteValue(r.Err.Error()))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) paint(b *strings.Builder, color, s string) {
	if !f.color || color == "" {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

// quoteValue quotes values that would not survive a key=value split.
func quoteValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		return strconv.Quote(s)
	}
	return s
}
