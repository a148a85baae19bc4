// Package events is a small publish/subscribe bus for orchestrator signals.
package events

import (
	"log"
	"sync"
)

// Kind names a signal.
type Kind string

const (
	// UploadComplete fires once per capture operation, or once per batch.
	UploadComplete Kind = "UploadComplete"
	// URLCaptureFailed fires when a clipboard URL cannot be fetched as an image.
	URLCaptureFailed Kind = "UrlCaptureFailed"
)

// Event is one published signal.
type Event struct {
	Kind Kind
	// Link is the artifact link for UploadComplete, or the URL for URLCaptureFailed.
	Link string
	Err  error
}

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe returns a channel receiving every event published afterwards.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers ev to all subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("events: subscriber full, dropped %s", ev.Kind)
		}
	}
}

// Close closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
