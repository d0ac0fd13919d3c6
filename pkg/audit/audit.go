// Package audit records which documents and orders were looked at or
// downloaded.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of an audited action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event is one audited node action
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
}

// Logger stores audit events
type Logger interface {
	Log(event *Event) error
}

// stamp fills in the id and timestamp when the caller left them empty
func stamp(e *Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

// MemoryLogger keeps the most recent events in a ring buffer
type MemoryLogger struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	count  int
}

// NewMemoryLogger keeps up to size events
func NewMemoryLogger(size int) *MemoryLogger {
	if size <= 0 {
		size = 1
	}
	return &MemoryLogger{events: make([]*Event, size)}
}

func (l *MemoryLogger) Log(event *Event) error {
	stamp(event)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = event
	l.next = (l.next + 1) % len(l.events)
	if l.count < len(l.events) {
		l.count++
	}
	return nil
}

// Recent returns up to n events, newest first
func (l *MemoryLogger) Recent(n int) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n = min(n, l.count)
	out := make([]*Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}
