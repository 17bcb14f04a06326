// Package event provides the change-notification bus the viewer core
// publishes on. The GUI layer (out of scope here) subscribes to redraw,
// update readouts, or keep sibling views in sync, without the core ever
// depending on a UI toolkit.
package event

import "sync"

// Topic identifies one class of viewer notification.
type Topic int

const (
	// NewImage fires when the volume stack is replaced.
	NewImage Topic = iota

	// MaskChanged fires after a mask edit that actually changed voxels,
	// at most once per logical edit operation.
	MaskChanged

	// MaskUndone fires after an undo restored an earlier mask.
	MaskUndone

	// NewSlice fires after any state change that requires a redraw.
	NewSlice

	// NewMousePos fires when the pointer moves over content. Used for
	// intensity readouts only; it carries no core semantics.
	NewMousePos
)

// Handler receives the payload published with a notification. Payload
// types are topic-specific and documented at the publish site.
type Handler func(payload interface{})

// Bus is a per-topic list of subscriber callbacks. Publishing is
// synchronous: handlers run on the caller's goroutine, in subscription
// order. The viewer runs on a single event-loop thread, but the bus is
// still mutex-guarded so a misbehaving collaborator cannot corrupt the
// subscriber lists.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Topic]map[int]Handler
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe registers a handler for a topic and returns a function that
// removes the subscription. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers payload to every handler subscribed to topic.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	ids := make([]int, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	// Map iteration order is randomized; deliver in subscription order.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		handlers = append(handlers, b.subs[topic][id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
