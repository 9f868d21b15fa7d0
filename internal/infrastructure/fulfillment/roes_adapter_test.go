package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/roes"
	"github.com/photolab/backend/internal/infrastructure/storage"
)

var roesCreds = domain.Credentials{APIKey: "roes-key"}

func newTestROESRequest() domain.SubmitRequest {
	req := newTestSubmitRequest(domain.ProviderROES, roesCreds)
	req.ROESSession = "browser-" + req.CheckoutID.String()
	return req
}

// captureOnCart plays the browser side: when the cart arrives it replies.
func captureOnCart(bus *roes.Bus, owner uuid.UUID, payload any) {
	bus.On(roes.EventCart, func(e roes.Event) {
		reply, _ := roes.NewEvent(roes.EventCartCaptured, e.Session, payload)
		go func() { _ = bus.Deliver(owner, reply) }()
	})
}

func TestROESAdapter_Submit(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	req := newTestROESRequest()
	captureOnCart(bus, req.StudioID, map[string]string{"order_id": "ROES-77"})
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver("https://cdn.test"), time.Second, zap.NewNop())

	result, err := adapter.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderROES, result.Provider)
	assert.Equal(t, "ROES-77", result.OrderID)
	assert.Equal(t, "Cart captured by ROES", result.Message)
	assert.Equal(t, 0, bus.ListenerCount(roes.EventCartCaptured), "listener removed after reply")

	pending, err := bus.Pending(req.StudioID, req.ROESSession)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, roes.EventAPIKey, pending[0].Name)
	assert.Equal(t, roes.EventImages, pending[1].Name)
	assert.Equal(t, roes.EventCart, pending[2].Name)

	var key roesAPIKeyPayload
	require.NoError(t, pending[0].Decode(&key))
	assert.Equal(t, "roes-key", key.APIKey)

	var images roesImagesPayload
	require.NoError(t, pending[1].Decode(&images))
	assert.Len(t, images.Images, 3)

	var cart roesCartPayload
	require.NoError(t, pending[2].Decode(&cart))
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	require.NotNil(t, cart.Lines[0].Images[0].Crop)
	assert.Equal(t, 50.0, cart.Lines[0].Images[0].Crop.Width)
	assert.Len(t, cart.Lines[1].Images, 2)
}

func TestROESAdapter_Submit_IgnoresOtherSessions(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	req := newTestROESRequest()
	bus.On(roes.EventCart, func(e roes.Event) {
		go func() {
			_ = bus.Deliver(req.StudioID, roes.Event{Name: roes.EventCartCaptured, Session: "someone-else"})
		}()
	})
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), 50*time.Millisecond, zap.NewNop())

	_, err := adapter.Submit(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrROESTimeout)
}

func TestROESAdapter_Submit_Timeout(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), 20*time.Millisecond, zap.NewNop())

	_, err := adapter.Submit(context.Background(), newTestROESRequest())
	assert.ErrorIs(t, err, domain.ErrROESTimeout)
	assert.Equal(t, 0, bus.ListenerCount(roes.EventCartCaptured), "listener removed after timeout")
}

func TestROESAdapter_Submit_FallsBackToCheckoutID(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	req := newTestROESRequest()
	captureOnCart(bus, req.StudioID, nil)
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())

	result, err := adapter.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.CheckoutID.String(), result.OrderID)
}

func TestROESAdapter_Submit_MissingAPIKey(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())

	req := newTestROESRequest()
	req.Settings.Credentials = domain.Credentials{}
	_, err := adapter.Submit(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.Equal(t, 0, bus.ListenerCount(roes.EventCartCaptured))
}

func TestROESAdapter_Submit_RequiresSession(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())

	_, err := adapter.Submit(context.Background(), newTestSubmitRequest(domain.ProviderROES, roesCreds))
	assert.ErrorIs(t, err, domain.ErrROESSessionRequired)
	assert.Equal(t, 0, bus.ListenerCount(roes.EventCartCaptured))
}

func TestROESAdapter_Submit_ForeignSession(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())

	req := newTestROESRequest()
	require.NoError(t, bus.Claim(uuid.New(), req.ROESSession))

	_, err := adapter.Submit(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrROESSessionForeign)
	assert.ErrorIs(t, err, roes.ErrForeignSession)
	assert.Equal(t, 0, bus.ListenerCount(roes.EventCartCaptured))
}

func TestROESAdapter_TestConnection(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), 50*time.Millisecond, zap.NewNop())
	studioID := uuid.New()
	settings := domain.ProviderSettings{StudioID: studioID, Provider: domain.ProviderROES, Credentials: roesCreds}

	err := adapter.TestConnection(context.Background(), settings)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable, "no client connected")

	bus.On(roes.EventAPIKey, func(e roes.Event) {
		go func() { _ = bus.Deliver(studioID, roes.Event{Name: roes.EventReady, Session: e.Session}) }()
	})
	assert.NoError(t, adapter.TestConnection(context.Background(), settings))
}

func TestROESAdapter_TestConnection_UsesContextSession(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())
	studioID := uuid.New()
	settings := domain.ProviderSettings{StudioID: studioID, Provider: domain.ProviderROES, Credentials: roesCreds}

	var seen string
	bus.On(roes.EventAPIKey, func(e roes.Event) {
		seen = e.Session
		go func() { _ = bus.Deliver(studioID, roes.Event{Name: roes.EventReady, Session: e.Session}) }()
	})

	ctx := domain.WithROESSession(context.Background(), "admin-page-1")
	require.NoError(t, adapter.TestConnection(ctx, settings))
	assert.Equal(t, "admin-page-1", seen)

	other := settings
	other.StudioID = uuid.New()
	assert.ErrorIs(t, adapter.TestConnection(ctx, other), domain.ErrROESSessionForeign)
}

func TestROESAdapter_TestConnection_ConcurrentTestsDoNotShareSession(t *testing.T) {
	bus := roes.NewBus(zap.NewNop())
	adapter := NewROESAdapter(bus, storage.NewStubPhotoResolver(""), time.Second, zap.NewNop())
	studioID := uuid.New()
	settings := domain.ProviderSettings{StudioID: studioID, Provider: domain.ProviderROES, Credentials: roesCreds}

	var mu sync.Mutex
	sessions := map[string]bool{}
	bus.On(roes.EventAPIKey, func(e roes.Event) {
		mu.Lock()
		sessions[e.Session] = true
		mu.Unlock()
		go func() { _ = bus.Deliver(studioID, roes.Event{Name: roes.EventReady, Session: e.Session}) }()
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, adapter.TestConnection(context.Background(), settings))
		}()
	}
	wg.Wait()

	assert.Len(t, sessions, 2, "each test runs on its own session")
	for session := range sessions {
		assert.Contains(t, session, "test-")
		assert.NotEqual(t, "test-"+studioID.String(), session)
	}
}
