package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage is one entry captured by a TestLogger
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// TestLogger records entries in memory. Children created with WithField,
// WithFields or WithError share the parent's record.
type TestLogger struct {
	rec    *record
	fields map[string]interface{}
	err    error
}

type record struct {
	mu      sync.Mutex
	entries []LogMessage
}

func NewTestLogger() *TestLogger {
	return &TestLogger{rec: &record{}}
}

func (l *TestLogger) Debug(msg string) { l.add("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.add("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.add("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.add("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, f map[string]interface{}) { l.add("DEBUG", msg, f) }
func (l *TestLogger) InfoWithFields(msg string, f map[string]interface{})  { l.add("INFO", msg, f) }
func (l *TestLogger) WarnWithFields(msg string, f map[string]interface{})  { l.add("WARN", msg, f) }
func (l *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) { l.add("ERROR", msg, f) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.child(map[string]interface{}{key: value}, l.err)
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.child(fields, l.err)
}

func (l *TestLogger) WithError(err error) Logger {
	return l.child(nil, err)
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}

func (l *TestLogger) child(fields map[string]interface{}, err error) *TestLogger {
	return &TestLogger{rec: l.rec, fields: combine(l.fields, fields), err: err}
}

func (l *TestLogger) add(level, msg string, fields map[string]interface{}) {
	entry := LogMessage{Level: level, Message: msg, Fields: combine(l.fields, fields), Error: l.err}
	l.rec.mu.Lock()
	l.rec.entries = append(l.rec.entries, entry)
	l.rec.mu.Unlock()
}

func combine(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetMessages returns a snapshot of everything logged so far
func (l *TestLogger) GetMessages() []LogMessage {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	return append([]LogMessage(nil), l.rec.entries...)
}

// GetMessagesByLevel filters GetMessages by level name (DEBUG, INFO, WARN, ERROR)
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var out []LogMessage
	for _, m := range l.GetMessages() {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

// HasMessage reports whether any entry has exactly this message
func (l *TestLogger) HasMessage(text string) bool {
	for _, m := range l.GetMessages() {
		if m.Message == text {
			return true
		}
	}
	return false
}

func (l *TestLogger) Clear() {
	l.rec.mu.Lock()
	l.rec.entries = nil
	l.rec.mu.Unlock()
}
