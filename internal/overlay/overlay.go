// Package overlay holds pending field edits so they can be shown before the
// tracker confirms them. Entries expire after a fixed window.
package overlay

import (
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays visible.
const DefaultTTL = 30 * time.Second

// Entry is one pending edit. Entries are replaced, never modified.
type Entry struct {
	EntityKey   string    `json:"entityKey"`
	FieldName   string    `json:"fieldName"`
	Value       any       `json:"value"`
	DisplayName string    `json:"displayName,omitempty"`
	IconURL     string    `json:"iconUrl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	seq uint64
}

// Overlay is a TTL map keyed by entity key and field name. It is safe for
// concurrent use.
type Overlay struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	seq     uint64
	entries map[string]Entry
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithTTL overrides the expiry window. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *Overlay) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Overlay) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an empty overlay.
func New(opts ...Option) *Overlay {
	o := &Overlay{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TTL returns the expiry window.
func (o *Overlay) TTL() time.Duration {
	return o.ttl
}

// SetOption decorates a Set call.
type SetOption func(*Entry)

// WithDisplayName records the label shown for the value, e.g. a priority name.
func WithDisplayName(name string) SetOption {
	return func(e *Entry) { e.DisplayName = name }
}

// WithIcon records an icon or avatar reference for the value.
func WithIcon(url string) SetOption {
	return func(e *Entry) { e.IconURL = url }
}

func entryKey(entityKey, fieldName string) string {
	return entityKey + ":" + fieldName
}

// Set inserts or replaces the entry with a fresh timestamp.
func (o *Overlay) Set(entityKey, fieldName string, value any, opts ...SetOption) Entry {
	e := Entry{
		EntityKey: entityKey,
		FieldName: fieldName,
		Value:     copyValue(value),
	}
	for _, opt := range opts {
		opt(&e)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	e.seq = o.seq
	e.Timestamp = o.now()
	o.entries[entryKey(entityKey, fieldName)] = e
	return e
}

// Get returns the pending value. Expired entries are evicted and reported
// absent.
func (o *Overlay) Get(entityKey, fieldName string) (any, bool) {
	e, ok := o.Entry(entityKey, fieldName)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Entry returns the live entry for the key and field.
func (o *Overlay) Entry(entityKey, fieldName string) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.liveLocked(entryKey(entityKey, fieldName))
}

// Has reports whether a live entry exists.
func (o *Overlay) Has(entityKey, fieldName string) bool {
	_, ok := o.Entry(entityKey, fieldName)
	return ok
}

// Clear removes one entry.
func (o *Overlay) Clear(entityKey, fieldName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, entryKey(entityKey, fieldName))
}

// ClearIf removes the entry for e's key and field only while it is still e,
// so a late rollback cannot drop a newer edit. It reports whether e was
// current.
func (o *Overlay) ClearIf(e Entry) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := entryKey(e.EntityKey, e.FieldName)
	if cur, ok := o.entries[key]; !ok || cur.seq != e.seq {
		return false
	}
	delete(o.entries, key)
	return true
}

// Current reports whether e is still the entry stored for its key and field.
func (o *Overlay) Current(e Entry) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.entries[entryKey(e.EntityKey, e.FieldName)]
	return ok && cur.seq == e.seq
}

// ClearAll removes every entry for the entity.
func (o *Overlay) ClearAll(entityKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k, e := range o.entries {
		if e.EntityKey == entityKey {
			delete(o.entries, k)
		}
	}
}

// Reset drops every entry.
func (o *Overlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]Entry)
}

// Live returns every unexpired entry, evicting the rest.
func (o *Overlay) Live() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, 0, len(o.entries))
	for k := range o.entries {
		if e, ok := o.liveLocked(k); ok {
			out = append(out, e)
		}
	}
	return out
}

func (o *Overlay) liveLocked(key string) (Entry, bool) {
	e, ok := o.entries[key]
	if !ok {
		return Entry{}, false
	}
	if o.now().Sub(e.Timestamp) > o.ttl {
		delete(o.entries, key)
		return Entry{}, false
	}
	return e, true
}

func copyValue(value any) any {
	if labels, ok := value.([]string); ok {
		out := make([]string, len(labels))
		copy(out, labels)
		return out
	}
	return value
}
