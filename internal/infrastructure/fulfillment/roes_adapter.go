package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/roes"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

const defaultROESCaptureTimeout = 10 * time.Second

// ROESChannel is the part of the ROES bus the adapter uses
type ROESChannel interface {
	Emit(owner uuid.UUID, e roes.Event) error
	Expect(owner uuid.UUID, name, session string) (*roes.Waiter, error)
}

type roesAPIKeyPayload struct {
	APIKey  string `json:"api_key"`
	Sandbox bool   `json:"sandbox"`
}

type roesImage struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MD5      string `json:"md5,omitempty"`
	FileName string `json:"file_name"`
}

type roesImagesPayload struct {
	Images []roesImage `json:"images"`
}

type roesLineImage struct {
	ID   string       `json:"id"`
	Crop *domain.Crop `json:"crop,omitempty"`
}

type roesCartLine struct {
	LineID      string          `json:"line_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	Images      []roesLineImage `json:"images"`
}

type roesCartPayload struct {
	Customer domain.Customer        `json:"customer"`
	ShipTo   domain.ShippingAddress `json:"ship_to"`
	Lines    []roesCartLine         `json:"lines"`
}

type roesCapturedPayload struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// ROESAdapter hands the cart to the ROES editor through the event bus.
// The storefront opens a bridge session for its studio and sends it with the
// checkout; events and the capture reply travel on that session.
type ROESAdapter struct {
	bus            ROESChannel
	photos         domain.PhotoResolver
	captureTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// NewROESAdapter creates a ROES adapter
func NewROESAdapter(bus ROESChannel, photos domain.PhotoResolver, captureTimeout time.Duration, logger *zap.Logger) *ROESAdapter {
	if captureTimeout <= 0 {
		captureTimeout = defaultROESCaptureTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ROESAdapter{
		bus:            bus,
		photos:         photos,
		captureTimeout: captureTimeout,
		now:            time.Now,
		logger:         logger.Named("roes"),
	}
}

// Code returns the provider code
func (a *ROESAdapter) Code() domain.ProviderCode {
	return domain.ProviderROES
}

// Submit runs the handshake and waits for ROES to capture the cart
func (a *ROESAdapter) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.OrderResult, error) {
	if !req.Settings.HasCredentials() {
		return nil, fmt.Errorf("%w: ROES API key", domain.ErrMissingCredentials)
	}

	ctx, span := telemetry.StartClientSpan(ctx, "roes.submit",
		telemetry.SpanAttrProvider, domain.ProviderROES.String(),
		telemetry.SpanAttrStudioID, req.StudioID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)
	defer span.End()

	session := req.ROESSession
	if session == "" {
		telemetry.RecordError(span, domain.ErrROESSessionRequired)
		return nil, domain.ErrROESSessionRequired
	}
	images, lines, err := a.buildCart(ctx, req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	waiter, err := a.bus.Expect(req.StudioID, roes.EventCartCaptured, session)
	if err != nil {
		err = sessionError(err, session)
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer waiter.Cancel()

	steps := []struct {
		name    string
		payload any
	}{
		{roes.EventAPIKey, roesAPIKeyPayload{APIKey: req.Settings.Credentials.APIKey, Sandbox: req.Settings.Sandbox}},
		{roes.EventImages, roesImagesPayload{Images: images}},
		{roes.EventCart, roesCartPayload{Customer: req.Customer, ShipTo: req.ShippingAddress, Lines: lines}},
	}
	for _, step := range steps {
		event, err := roes.NewEvent(step.name, session, step.payload)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("roes: encode %s: %w", step.name, err)
		}
		if err := a.bus.Emit(req.StudioID, event); err != nil {
			err = sessionError(err, session)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	reply, err := waiter.Wait(ctx, a.captureTimeout)
	if errors.Is(err, roes.ErrTimeout) {
		err = fmt.Errorf("%w after %s", domain.ErrROESTimeout, a.captureTimeout)
	}
	if err != nil {
		a.logger.Warn("ROES cart not captured",
			zap.String("session", session),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var captured roesCapturedPayload
	if err := reply.Decode(&captured); err != nil {
		err = fmt.Errorf("%w: ROES: %v", domain.ErrProviderInvalidResponse, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	orderID := firstNonBlank(captured.OrderID, req.CheckoutID.String())

	a.logger.Info("ROES cart captured",
		zap.String("studio_id", req.StudioID.String()),
		zap.String("session", session),
		zap.String("order_id", orderID),
	)

	return &domain.OrderResult{
		Provider:    domain.ProviderROES,
		OrderID:     orderID,
		Message:     firstNonBlank(captured.Message, "Cart captured by ROES"),
		SubmittedAt: a.now().UTC(),
	}, nil
}

// TestConnection checks that a ROES client answers the API key handshake.
// The admin page passes its bridge session through the context; without one
// every test gets a fresh session.
func (a *ROESAdapter) TestConnection(ctx context.Context, settings domain.ProviderSettings) error {
	if !settings.HasCredentials() {
		return fmt.Errorf("%w: ROES API key", domain.ErrMissingCredentials)
	}
	session, ok := domain.ROESSessionFrom(ctx)
	if !ok {
		session = "test-" + uuid.NewString()
	}
	waiter, err := a.bus.Expect(settings.StudioID, roes.EventReady, session)
	if err != nil {
		return sessionError(err, session)
	}
	defer waiter.Cancel()

	event, err := roes.NewEvent(roes.EventAPIKey, session, roesAPIKeyPayload{
		APIKey:  settings.Credentials.APIKey,
		Sandbox: settings.Sandbox,
	})
	if err != nil {
		return err
	}
	if err := a.bus.Emit(settings.StudioID, event); err != nil {
		return sessionError(err, session)
	}

	if _, err := waiter.Wait(ctx, a.captureTimeout); err != nil {
		if errors.Is(err, roes.ErrTimeout) {
			return fmt.Errorf("%w: no ROES client answered", domain.ErrProviderUnavailable)
		}
		return err
	}
	return nil
}

func sessionError(err error, session string) error {
	if errors.Is(err, roes.ErrForeignSession) {
		return fmt.Errorf("%w: %s: %w", domain.ErrROESSessionForeign, session, err)
	}
	return err
}

func (a *ROESAdapter) buildCart(ctx context.Context, items []domain.CartItem) ([]roesImage, []roesCartLine, error) {
	seen := make(map[string]bool)
	var images []roesImage
	lines := make([]roesCartLine, 0, len(items))
	for _, item := range items {
		line := roesCartLine{
			LineID:      item.ID,
			ProductCode: firstNonBlank(item.Product.ROESProductCode, item.Product.ID),
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Images:      make([]roesLineImage, 0, len(item.Photos)),
		}
		if item.Size != nil {
			line.Size = item.Size.Name
		}
		for _, photo := range item.Photos {
			line.Images = append(line.Images, roesLineImage{ID: photo.PhotoID, Crop: photo.Crop})
			if seen[photo.PhotoID] {
				continue
			}
			seen[photo.PhotoID] = true
			asset, err := a.photos.Resolve(ctx, photo.PhotoID)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve photo %s: %w", photo.PhotoID, err)
			}
			images = append(images, roesImage{
				ID:       photo.PhotoID,
				URL:      asset.URL,
				MD5:      asset.MD5,
				FileName: firstNonBlank(photo.FileName, asset.FileName),
			})
		}
		lines = append(lines, line)
	}
	return images, lines, nil
}
