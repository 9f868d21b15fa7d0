// Package roes implements the event channel between the server and the ROES
// order editor running in the customer's browser. Server-side code emits
// events that the browser polls for, and the browser delivers its replies
// back through the HTTP bridge. Every session belongs to the studio that
// first used it; other studios can neither read nor answer it.
package roes

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names used in the ROES handshake
const (
	EventAPIKey       = "roes:apikey"
	EventImages       = "roes:images"
	EventCart         = "roes:cart"
	EventCartCaptured = "roes:cart-captured"
	EventReady        = "roes:ready"
)

const (
	defaultPendingLimit = 100
	defaultPendingTTL   = 2 * time.Minute
)

// Event is one message on the channel. Session ties a request to its reply.
type Event struct {
	Name      string          `json:"name"`
	Session   string          `json:"session"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Payload, v)
}

// Listener receives events delivered to the bus
type Listener func(Event)

// Subscription is returned by On and passed to Off
type Subscription struct {
	id   uint64
	name string
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// ErrForeignSession is returned when a session is used by a studio that does not own it
var ErrForeignSession = errors.New("roes: session belongs to another studio")

type sessionState struct {
	owner    uuid.UUID
	events   []Event
	lastSeen time.Time
}

// Bus routes events between server code and ROES clients
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]listenerEntry
	sessions  map[string]*sessionState
	limit     int
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Bus
type Option func(*Bus)

// WithPendingLimit caps the events queued per session
func WithPendingLimit(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithPendingTTL forgets sessions left idle for d, together with their queue and owner
func WithPendingTTL(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		listeners: make(map[string][]listenerEntry),
		sessions:  make(map[string]*sessionState),
		limit:     defaultPendingLimit,
		ttl:       defaultPendingTTL,
		now:       time.Now,
		logger:    logger.Named("roes_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewEvent builds an event with payload marshalled to JSON
func NewEvent(name, session string, payload any) (Event, error) {
	e := Event{Name: name, Session: session}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = raw
	}
	return e, nil
}

// Emit sends an event towards the browser. It is queued for the session and
// also handed to server-side listeners.
func (b *Bus) Emit(owner uuid.UUID, e Event) error {
	b.mu.Lock()
	st, err := b.claimLocked(owner, e.Session)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if e.EmittedAt.IsZero() {
		e.EmittedAt = b.now()
	}
	st.events = append(st.events, e)
	if over := len(st.events) - b.limit; over > 0 {
		st.events = st.events[over:]
		b.logger.Warn("ROES pending queue full, dropping oldest events",
			zap.String("session", e.Session),
			zap.Int("dropped", over),
		)
	}
	listeners := slices.Clone(b.listeners[e.Name])
	b.mu.Unlock()

	b.dispatch(e, listeners)
	return nil
}

// Deliver hands an event received from the browser to server-side listeners
func (b *Bus) Deliver(owner uuid.UUID, e Event) error {
	b.mu.Lock()
	if _, err := b.claimLocked(owner, e.Session); err != nil {
		b.mu.Unlock()
		return err
	}
	if e.EmittedAt.IsZero() {
		e.EmittedAt = b.now()
	}
	listeners := slices.Clone(b.listeners[e.Name])
	b.mu.Unlock()

	if len(listeners) == 0 {
		b.logger.Debug("ROES event has no listener",
			zap.String("event", e.Name),
			zap.String("session", e.Session),
		)
		return nil
	}
	b.dispatch(e, listeners)
	return nil
}

// Pending drains the events queued for session. Polling an unknown session
// claims it for owner, so a storefront can open its session before checkout.
func (b *Bus) Pending(owner uuid.UUID, session string) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, err := b.claimLocked(owner, session)
	if err != nil {
		return nil, err
	}
	events := st.events
	st.events = nil
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// Claim binds session to owner unless another studio holds it
func (b *Bus) Claim(owner uuid.UUID, session string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.claimLocked(owner, session)
	return err
}

// On registers a listener for events named name
func (b *Bus) On(name string, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[name] = append(b.listeners[name], listenerEntry{id: b.nextID, fn: fn})
	return Subscription{id: b.nextID, name: name}
}

// Off removes a listener. Removing twice is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := slices.DeleteFunc(b.listeners[sub.name], func(l listenerEntry) bool {
		return l.id == sub.id
	})
	if len(entries) == 0 {
		delete(b.listeners, sub.name)
		return
	}
	b.listeners[sub.name] = entries
}

// ListenerCount returns the number of listeners registered for name
func (b *Bus) ListenerCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[name])
}

// Expect registers a one-shot listener for the first event named name that
// matches session, after claiming session for owner. Register it before
// emitting the request so the reply cannot be missed.
func (b *Bus) Expect(owner uuid.UUID, name, session string) (*Waiter, error) {
	if err := b.Claim(owner, session); err != nil {
		return nil, err
	}
	w := &Waiter{bus: b, ch: make(chan Event, 1)}
	w.sub = b.On(name, func(e Event) {
		if e.Session != session {
			return
		}
		select {
		case w.ch <- e:
		default:
		}
	})
	return w, nil
}

// Await waits up to timeout for a matching event. It emits nothing.
func (b *Bus) Await(ctx context.Context, owner uuid.UUID, name, session string, timeout time.Duration) (Event, error) {
	w, err := b.Expect(owner, name, session)
	if err != nil {
		return Event{}, err
	}
	return w.Wait(ctx, timeout)
}

func (b *Bus) dispatch(e Event, listeners []listenerEntry) {
	for _, l := range listeners {
		b.safeCall(e, l.fn)
	}
}

func (b *Bus) safeCall(e Event, fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("ROES listener panicked",
				zap.String("event", e.Name),
				zap.String("session", e.Session),
				zap.Any("panic", r),
			)
		}
	}()
	fn(e)
}

func (b *Bus) claimLocked(owner uuid.UUID, session string) (*sessionState, error) {
	b.pruneLocked()
	now := b.now()
	st, ok := b.sessions[session]
	if !ok {
		st = &sessionState{owner: owner}
		b.sessions[session] = st
	}
	if st.owner != owner {
		b.logger.Warn("ROES session used by another studio",
			zap.String("session", session),
			zap.String("studio_id", owner.String()),
		)
		return nil, ErrForeignSession
	}
	st.lastSeen = now
	return st, nil
}

func (b *Bus) pruneLocked() {
	cutoff := b.now().Add(-b.ttl)
	for session, st := range b.sessions {
		if st.lastSeen.Before(cutoff) {
			delete(b.sessions, session)
		}
	}
}
