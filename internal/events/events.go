// Package events is the in-process pub/sub channel that carries issue change
// notifications to live sessions.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the subscriber channel buffer size.
const DefaultBufferSize = 16

// IssueChanged is the name of the change notification emitted when editable
// fields of an issue change.
const IssueChanged = "issue.changed"

// Event is one notification.
type Event struct {
	Name      string    `json:"name"`
	IssueKey  string    `json:"issueKey,omitempty"`
	EpicKey   string    `json:"epicKey,omitempty"`
	Fields    []string  `json:"fields,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans events out to subscribers. Delivery never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufferSize  int
	closed      bool
	logger      *slog.Logger
}

// NewBus creates a bus. A non-positive bufferSize uses DefaultBufferSize.
func NewBus(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{bufferSize: bufferSize, logger: logger}
}

// Publish delivers event to every subscriber. It is a no-op after Close.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped: subscriber channel full", "event", event.Name, "issue", event.IssueKey)
		}
	}
}

// Subscribe returns a channel of events and a function that cancels the
// subscription and closes the channel. The cancel function is idempotent.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers = append(b.subscribers, ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(ch) })
	}
}

func (b *Bus) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
