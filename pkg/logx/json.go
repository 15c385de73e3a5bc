package logx

import "encoding/json"

// JSONFormatter writes one JSON object per line. Reserved keys (level,
// message, time, component, caller, error) win over fields of the same
// name.
type JSONFormatter struct {
	timeFormat string
}

func NewJSONFormatter(cfg *Config) *JSONFormatter {
	return &JSONFormatter{timeFormat: cfg.TimeFormat}
}

func (f *JSONFormatter) Format(r *Record) ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+6)
	for k, v := range r.Fields {
		out[k] = v
	}

	out["level"] = r.Level.String()
	out["message"] = r.Message
	switch f.timeFormat {
	case "":
	case "unix":
		out["time"] = r.Time.Unix()
	case "unixmilli":
		out["time"] = r.Time.UnixMilli()
	default:
		out["time"] = r.Time.Format(f.timeFormat)
	}
	if r.Component != "" {
		out["component"] = r.Component
	}
	if r.Caller != "" {
		out["caller"] = r.Caller
	}
	if r.Err != nil {
		out["error"] = r.Err.Error()
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
