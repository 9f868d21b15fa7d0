package roes

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when no matching event arrives in time
var ErrTimeout = errors.New("roes: timed out waiting for event")

// Waiter is a pending one-shot listener created by Bus.Expect
type Waiter struct {
	bus  *Bus
	sub  Subscription
	ch   chan Event
	once sync.Once
}

// Wait blocks until the event arrives, the timeout elapses or ctx is done.
// The listener is removed in every case.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) (Event, error) {
	defer w.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-w.ch:
		return e, nil
	case <-timer.C:
		return Event{}, ErrTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Cancel removes the listener without waiting
func (w *Waiter) Cancel() {
	w.once.Do(func() {
		w.bus.Off(w.sub)
	})
}
