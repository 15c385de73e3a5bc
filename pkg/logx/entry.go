package logx

import "fmt"

// Entry is a logger bound to a component and a set of fields. With*
// methods return a new Entry, so a shared entry can be extended freely.
type Entry struct {
	logger    *Logger
	component string
	fields    Fields
	err       error
}

func (e *Entry) clone(extra int) *Entry {
	fields := make(Fields, len(e.fields)+extra)
	for k, v := range e.fields {
		fields[k] = v
	}
	return &Entry{logger: e.logger, component: e.component, fields: fields, err: e.err}
}

func (e *Entry) WithField(key string, value any) *Entry {
	n := e.clone(1)
	n.fields[key] = value
	return n
}

func (e *Entry) WithFields(fields Fields) *Entry {
	n := e.clone(len(fields))
	for k, v := range fields {
		n.fields[k] = v
	}
	return n
}

func (e *Entry) WithError(err error) *Entry {
	n := e.clone(0)
	n.err = err
	return n
}

// WithJob tags the entry with a job id and the queue name it belongs to.
func (e *Entry) WithJob(id, queue string) *Entry {
	return e.WithFields(Fields{"job_id": id, "queue": queue})
}

func (e *Entry) Debug(msg string) { e.emit(callerDepth, LevelDebug, msg) }
func (e *Entry) Info(msg string)  { e.emit(callerDepth, LevelInfo, msg) }
func (e *Entry) Warn(msg string)  { e.emit(callerDepth, LevelWarn, msg) }
func (e *Entry) Error(msg string) { e.emit(callerDepth, LevelError, msg) }

func (e *Entry) Infof(format string, args ...any) {
	e.emitf(LevelInfo, format, args)
}

func (e *Entry) Warnf(format string, args ...any) {
	e.emitf(LevelWarn, format, args)
}

func (e *Entry) Errorf(format string, args ...any) {
	e.emitf(LevelError, format, args)
}

func (e *Entry) emitf(level Level, format string, args []any) {
	if !e.logger.Enabled(level) {
		return
	}
	e.emit(callerDepth+1, level, fmt.Sprintf(format, args...))
}

func (e *Entry) emit(depth int, level Level, msg string) {
	if !e.logger.Enabled(level) {
		return
	}
	rec := &Record{
		Time:      e.logger.now(),
		Level:     level,
		Component: e.component,
		Message:   msg,
		Fields:    e.fields,
		Err:       e.err,
	}
	if e.logger.caller {
		rec.Caller = callerOf(depth)
	}
	e.logger.write(rec)
}
