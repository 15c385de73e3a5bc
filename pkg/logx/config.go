package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format selects the line encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config configures a Logger.
type Config struct {
	Level  Level
	Format Format
	// Color enables ANSI colors in console output.
	Color bool
	// Caller adds file:line of the logging call.
	Caller bool
	// TimeFormat is a time layout, "unix" or "unixmilli". Empty omits the
	// timestamp.
	TimeFormat string
	Output     io.Writer
}

// DefaultConfig is colored console output at info level on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatConsole,
		Color:      true,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	}
}

var timeFormats = map[string]string{
	"RFC3339":     time.RFC3339,
	"RFC3339NANO": time.RFC3339Nano,
	"KITCHEN":     time.Kitchen,
	"UNIX":        "unix",
	"UNIXMILLI":   "unixmilli",
	"NONE":        "",
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR, LOG_CALLER and
// LOG_TIME_FORMAT over DefaultConfig.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if v := strings.ToLower(os.Getenv("LOG_FORMAT")); v == string(FormatJSON) || v == string(FormatConsole) {
		cfg.Format = Format(v)
	}
	cfg.Color = envFlag("LOG_COLOR", cfg.Color)
	cfg.Caller = envFlag("LOG_CALLER", cfg.Caller)

	if v := os.Getenv("LOG_TIME_FORMAT"); v != "" {
		if layout, ok := timeFormats[strings.ToUpper(v)]; ok {
			cfg.TimeFormat = layout
		} else {
			cfg.TimeFormat = v
		}
	}
	return cfg
}

func envFlag(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}
