// Package state provides the observable upload queue shared by the CLI
// commands and the submission driver.
package state

import (
	"slices"
	"sync"
	"time"

	"github.com/aiverify/aiv-upload/internal/collector"
	"github.com/aiverify/aiv-upload/internal/events"
	"github.com/aiverify/aiv-upload/internal/notify"
	"github.com/aiverify/aiv-upload/internal/registry"
)

// QueueState holds the current registry and publishes events on changes.
// Every mutation is applied to the latest registry value under the lock.
type QueueState struct {
	eventBus *events.EventBus
	reg      registry.Registry
	mu       sync.Mutex
}

// NewQueueState creates an empty queue. eventBus may be nil.
func NewQueueState(eventBus *events.EventBus) *QueueState {
	return &QueueState{eventBus: eventBus, reg: registry.New()}
}

// Snapshot returns the current registry value.
func (s *QueueState) Snapshot() registry.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg
}

// Add merges one collection pass into the queue and returns the notice for it.
func (s *QueueState) Add(entries []collector.Entry) *notify.Notification {
	var n *notify.Notification
	s.apply(func(r registry.Registry) (registry.Registry, bool) {
		var next registry.Registry
		next, n = r.Add(entries)
		return next, n != nil
	})
	s.Notify(n)
	return n
}

// Remove drops a folder. It reports whether the folder was queued.
func (s *QueueState) Remove(name string) bool {
	found := false
	s.apply(func(r registry.Registry) (registry.Registry, bool) {
		_, found = r.Get(name)
		return r.Remove(name), found
	})
	return found
}

// Clear empties the queue.
func (s *QueueState) Clear() {
	s.apply(func(r registry.Registry) (registry.Registry, bool) {
		return r.Clear(), r.Count() > 0
	})
}

// Update replaces the registry with fn(current). A change event is published
// when the folder list or the total file count changed.
func (s *QueueState) Update(fn func(registry.Registry) registry.Registry) registry.Registry {
	return s.apply(func(r registry.Registry) (registry.Registry, bool) {
		next := fn(r)
		return next, next.TotalFileCount() != r.TotalFileCount() || !slices.Equal(next.Names(), r.Names())
	})
}

// apply replaces the registry with fn's result and publishes a change event
// when fn reports one.
func (s *QueueState) apply(fn func(registry.Registry) (registry.Registry, bool)) registry.Registry {
	s.mu.Lock()
	next, changed := fn(s.reg)
	s.reg = next
	s.mu.Unlock()

	if changed {
		s.eventBus.Publish(&events.QueueChangedEvent{
			BaseEvent:  events.BaseEvent{EventType: events.EventQueueChanged, Time: time.Now()},
			Folders:    next.Names(),
			TotalFiles: next.TotalFileCount(),
		})
	}
	return next
}

// Notify publishes a notification. nil is ignored.
func (s *QueueState) Notify(n *notify.Notification) {
	if n == nil {
		return
	}
	s.eventBus.Publish(&events.NoticeEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventNotice, Time: time.Now()},
		Kind:      n.Kind.String(),
		Lines:     n.Lines,
	})
}
