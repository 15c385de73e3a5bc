package logx

import (
	"sort"
	"strconv"
	"time"
)

// Fields are structured key/value pairs attached to a record.
type Fields map[string]any

// Record is one log line before encoding.
type Record struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
	Fields    Fields
	Err       error
	Caller    string
}

// Formatter encodes a record as one line, newline included.
type Formatter interface {
	Format(r *Record) ([]byte, error)
}

// sortedKeys gives formatters a stable field order.
func (r *Record) sortedKeys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// timestamp renders t per layout; ok is false when timestamps are off.
func timestamp(t time.Time, layout string) (s string, ok bool) {
	switch layout {
	case "":
		return "", false
	case "unix":
		return strconv.FormatInt(t.Unix(), 10), true
	case "unixmilli":
		return strconv.FormatInt(t.UnixMilli(), 10), true
	}
	return t.Format(layout), true
}
