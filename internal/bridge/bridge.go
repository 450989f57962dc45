// Package bridge routes host page signals and preference change
// notifications to the reconciliation entry points. Every event source in
// the agent publishes into a Hub; bridges subscribe and decide what kind of
// re-application each event demands.
package bridge

import (
	"context"
	"sync"
)

// Event is a page or preference lifecycle event.
type Event interface {
	event()
}

// NavigationFinished fires when the host completes an in-page navigation.
type NavigationFinished struct {
	URL string
}

// PageDataUpdated fires when the host refreshes page data without
// navigating.
type PageDataUpdated struct {
	URL string
}

// PrefsChanged fires when stored preferences changed, locally or remotely.
type PrefsChanged struct {
	Keys []string
	Area string
}

func (NavigationFinished) event() {}
func (PageDataUpdated) event()    {}
func (PrefsChanged) event()       {}

// Handler consumes events.
type Handler func(ctx context.Context, ev Event)

// Source delivers events to subscribed handlers.
type Source interface {
	Subscribe(fn Handler)
}

// Hub is the in-process Source: synchronous fan-out to every subscriber in
// subscription order.
type Hub struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a handler. Handlers cannot be removed; subscription
// happens once at agent wiring time.
func (h *Hub) Subscribe(fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, fn)
}

// Publish delivers ev to every subscriber on the caller's goroutine.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	h.mu.RLock()
	handlers := h.handlers
	h.mu.RUnlock()
	for _, fn := range handlers {
		fn(ctx, ev)
	}
}
