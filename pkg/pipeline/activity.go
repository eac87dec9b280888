package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// DefaultActivityCapacity bounds the in-memory activity log.
const DefaultActivityCapacity = 256

// Level classifies an activity entry.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one recorded activity event.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// ActivityLog is a bounded ring of recent events. Appending past capacity
// overwrites the oldest entry; readers get copies and never block writers
// for long.
type ActivityLog struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	size    int
}

// NewActivityLog creates a log holding at most capacity entries.
// Non-positive capacity uses DefaultActivityCapacity.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &ActivityLog{entries: make([]Entry, capacity)}
}

// Append records an event, evicting the oldest when full.
func (l *ActivityLog) Append(level Level, format string, args ...any) {
	entry := Entry{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	tail := (l.head + l.size) % len(l.entries)
	l.entries[tail] = entry
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.head = (l.head + 1) % len(l.entries)
	}
}

// Recent returns up to n entries, oldest first. n <= 0 returns everything.
func (l *ActivityLog) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.size
	if n > 0 && n < count {
		count = n
	}
	out := make([]Entry, 0, count)
	start := l.size - count
	for i := start; i < l.size; i++ {
		out = append(out, l.entries[(l.head+i)%len(l.entries)])
	}
	return out
}

// Len returns the number of stored entries.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}
