package event

import (
	"slices"
	"sync"

	"github.com/photolab/backend/internal/domain/shared"
)

// subscription binds a handler to a set of event types; an empty set matches all
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps handler subscriptions in registration order
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes.
// With no event types the handler receives every event.
// Registering the same handler again extends its types.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.subs {
		if r.subs[i].handler != handler {
			continue
		}
		if len(eventTypes) == 0 {
			r.subs[i].types = nil
			return
		}
		if r.subs[i].types == nil {
			return
		}
		for _, t := range eventTypes {
			r.subs[i].types[t] = struct{}{}
		}
		return
	}

	sub := subscription{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = struct{}{}
		}
	}
	r.subs = append(r.subs, sub)
}

// Unregister removes handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool { return s.handler == handler })
}

// GetHandlers returns the handlers subscribed to eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.matches(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// GetAllHandlers returns every registered handler
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]shared.EventHandler, len(r.subs))
	for i, s := range r.subs {
		out[i] = s.handler
	}
	return out
}
