// Package memory provides a logger backend that keeps entries in memory so
// tests can assert on what the pipeline reported.
package memory

import (
	"fmt"
	"sync"
)

// Entry is one recorded log call.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// MemoryLogger implements LoggerInstance by recording every call.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (m *MemoryLogger) record(level, message string, keyvals []any) {
	fields := make(map[string]any, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fields[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: message, Fields: fields})
}

// Entries returns a copy of everything recorded so far.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Level returns the recorded entries of one level.
func (m *MemoryLogger) Level(level string) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryLogger) Log(message string, keyvals ...any)   { m.record("log", message, keyvals) }
func (m *MemoryLogger) Debug(message string, keyvals ...any) { m.record("debug", message, keyvals) }
func (m *MemoryLogger) Info(message string, keyvals ...any)  { m.record("info", message, keyvals) }
func (m *MemoryLogger) Warn(message string, keyvals ...any)  { m.record("warn", message, keyvals) }
func (m *MemoryLogger) Error(message string, keyvals ...any) { m.record("error", message, keyvals) }

// Fatal records the entry without terminating the process.
func (m *MemoryLogger) Fatal(message string, keyvals ...any) { m.record("fatal", message, keyvals) }
