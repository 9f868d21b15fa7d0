package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingHandler struct {
	err   error
	panic bool
}

func (h *failingHandler) Handle(context.Context, shared.DomainEvent) error {
	if h.panic {
		panic("boom")
	}
	return h.err
}

func (h *failingHandler) EventTypes() []string { return nil }

func startedBus(t *testing.T) (*InMemoryEventBus, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus, logs
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus, _ := startedBus(t)
	submitted := newRecordingHandler(fulfillment.EventTypeCheckoutSubmitted)
	all := newRecordingHandler()
	bus.Subscribe(submitted)
	bus.Subscribe(all)

	e := newSubmittedEvent()
	failed := fulfillment.NewCheckoutFailedEvent(uuid.New(), uuid.New(), fulfillment.ProviderWHCC, "boom", nil)
	require.NoError(t, bus.Publish(context.Background(), e, failed))

	assert.Equal(t, []shared.DomainEvent{e}, submitted.handled)
	assert.Len(t, all.handled, 2)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus, logs := startedBus(t)
	bus.Subscribe(&failingHandler{err: errors.New("nope")})
	bus.Subscribe(&failingHandler{panic: true})
	after := newRecordingHandler()
	bus.Subscribe(after)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent()))

	assert.Len(t, after.handled, 1)
	failures := logs.FilterMessage("handler failed to process event").All()
	require.Len(t, failures, 2)
	assert.Contains(t, failures[1].ContextMap()["error"], "panicked")
}

func TestInMemoryEventBus_StoppedDropsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	h := newRecordingHandler()
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent()))
	assert.Empty(t, h.handled)
	assert.Equal(t, 1, logs.FilterMessage("event bus stopped, dropping event").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus, _ := startedBus(t)
	h := newRecordingHandler()
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newSubmittedEvent()))
	assert.Empty(t, h.handled)
}
