package stats

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an Event for filtering and UI rendering.
type EventKind int

const (
	EventInfo EventKind = iota
	EventWarning
	EventBest
	EventAccepted
	EventRejected
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInfo:
		return "info"
	case EventWarning:
		return "warning"
	case EventBest:
		return "best"
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single entry in the bounded event log. ID is a
// correlation UUID so a single request/submission can be traced
// across the ring buffer and the structured log.
type Event struct {
	ID        string
	Timestamp time.Time
	Kind      EventKind
	Message   string
}

// EventLog is a bounded FIFO log of Events: once Capacity is reached,
// the oldest entry is evicted to make room for the newest.
type EventLog struct {
	mu       sync.Mutex
	entries  []Event
	capacity int
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventLog{entries: make([]Event, 0, capacity), capacity: capacity}
}

// Append records an event, evicting the oldest entry if the log is at
// capacity.
func (l *EventLog) Append(kind EventKind, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, Event{ID: uuid.NewString(), Timestamp: time.Now(), Kind: kind, Message: message})
}

// Recent returns a copy of the log's current entries, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
