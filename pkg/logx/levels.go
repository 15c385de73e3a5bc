package logx

import "strings"

// Level is a log severity. Records below the logger's level are dropped.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	// LevelOff silences the logger.
	LevelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values fall back to
// info; "trace" is accepted as debug.
func ParseLevel(s string) Level {
	switch s = strings.ToUpper(strings.TrimSpace(s)); s {
	case "TRACE":
		return LevelDebug
	case "WARNING":
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return LevelInfo
}
