// Package bus internal/infrastructure/bus/bus.go
package bus

import (
	"sync"
)

// MessageType tags a broadcast message
type MessageType string

const (
	// TypeUpdated announces a newly activated asset generation
	TypeUpdated MessageType = "SW_UPDATED"
	// TypeSkipWaiting commands the agent to promote immediately
	TypeSkipWaiting MessageType = "SKIP_WAITING"
)

// Message is the typed payload exchanged between the asset cache
// agent and running application instances
type Message struct {
	Type         MessageType `json:"type"`
	Version      string      `json:"version,omitempty"`
	BuildVersion string      `json:"buildVersion,omitempty"`
	Timestamp    int64       `json:"timestamp,omitempty"`
}

// publishedCap bounds the retained message log; a long-running
// process must not accumulate history without limit
const publishedCap = 64

// Bus is an in-process broadcast channel between the agent and
// application instances. Publishing is fire-and-forget: a subscriber
// with a full buffer misses the message rather than blocking the
// publisher.
type Bus struct {
	mu        sync.RWMutex
	subs      map[int]chan Message
	nextID    int
	published []Message // last publishedCap messages, for diagnostics and tests
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		subs: make(map[int]chan Message),
	}
}

// Subscribe registers a listener and returns its channel plus a
// cancel function. The buffer bounds how far a slow listener may lag.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Message, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Publish broadcasts a message to every subscriber without blocking.
// The lock also excludes a concurrent cancel from closing a channel
// mid-send.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.published) >= publishedCap {
		copy(b.published, b.published[1:])
		b.published = b.published[:publishedCap-1]
	}
	b.published = append(b.published, msg)

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; no delivery guarantee by design
		}
	}
}

// Published returns the most recently broadcast messages, oldest first
func (b *Bus) Published() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Message, len(b.published))
	copy(out, b.published)
	return out
}
