package fulfillment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

// MpixAdapter submits orders to the Mpix print API
type MpixAdapter struct {
	config *MpixConfig
	client *apiClient
	photos domain.PhotoResolver
	now    func() time.Time
	logger *zap.Logger
}

// NewMpixAdapter creates an Mpix adapter
func NewMpixAdapter(cfg *MpixConfig, photos domain.PhotoResolver, opts ...Option) (*MpixAdapter, error) {
	if photos == nil {
		return nil, errors.New("mpix: photo resolver is required")
	}
	cfg.applyDefaults()
	client := newAPIClient(domain.ProviderMpix, cfg.Timeout, opts...)
	return &MpixAdapter{
		config: cfg,
		client: client,
		photos: photos,
		now:    time.Now,
		logger: client.logger,
	}, nil
}

// Code returns the provider code
func (a *MpixAdapter) Code() domain.ProviderCode {
	return domain.ProviderMpix
}

// Submit places the order
func (a *MpixAdapter) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.OrderResult, error) {
	if !req.Settings.HasCredentials() {
		return nil, fmt.Errorf("%w: Mpix API key and secret", domain.ErrMissingCredentials)
	}

	ctx, span := telemetry.StartClientSpan(ctx, "mpix.submit",
		telemetry.SpanAttrProvider, domain.ProviderMpix.String(),
		telemetry.SpanAttrStudioID, req.StudioID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)
	defer span.End()

	order, err := a.BuildOrderRequest(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	endpoint := a.config.BaseURL(req.Settings.Sandbox) + "/Order"
	resp, err := a.client.do(ctx, http.MethodPost, endpoint, order, basicAuth(req.Settings.Credentials))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var out mpixOrderResponse
	if err := decodeJSON(domain.ProviderMpix, resp.Body, &out); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.OrderID == "" {
		err := fmt.Errorf("%w: Mpix returned no orderId: %s", domain.ErrProviderInvalidResponse, firstNonBlank(out.Message, snippet(resp.Body)))
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, out.OrderID)

	a.logger.Info("Mpix order submitted",
		zap.String("studio_id", req.StudioID.String()),
		zap.String("checkout_id", req.CheckoutID.String()),
		zap.String("order_id", out.OrderID),
		zap.Int("prints", len(order.Items)),
	)

	return &domain.OrderResult{
		Provider:    domain.ProviderMpix,
		OrderID:     out.OrderID,
		Message:     firstNonBlank(out.Message, "Order submitted to Mpix"),
		SubmittedAt: a.now().UTC(),
	}, nil
}

// TestConnection reads the account with the studio's credentials
func (a *MpixAdapter) TestConnection(ctx context.Context, settings domain.ProviderSettings) error {
	if !settings.HasCredentials() {
		return fmt.Errorf("%w: Mpix API key and secret", domain.ErrMissingCredentials)
	}
	resp, err := a.client.do(ctx, http.MethodGet, a.config.BaseURL(settings.Sandbox)+"/Account", nil, basicAuth(settings.Credentials))
	if err != nil {
		return err
	}
	var account mpixAccountResponse
	return decodeJSON(domain.ProviderMpix, resp.Body, &account)
}

// BuildOrderRequest translates the cart into an Mpix order.
// Every photo of a cart item becomes one print with the item's quantity.
func (a *MpixAdapter) BuildOrderRequest(ctx context.Context, req domain.SubmitRequest) (*MpixOrderRequest, error) {
	items := make([]MpixOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		sku := item.Product.MpixSKU
		if sku == "" {
			sku = a.config.DefaultSKU
		}
		for _, photo := range item.Photos {
			asset, err := a.photos.Resolve(ctx, photo.PhotoID)
			if err != nil {
				return nil, fmt.Errorf("resolve photo %s: %w", photo.PhotoID, err)
			}
			line := MpixOrderItem{SKU: sku, Quantity: item.Quantity, ImageURL: asset.URL}
			if c := photo.Crop; c != nil {
				line.Crop = &MpixCrop{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
			}
			items = append(items, line)
		}
	}

	ship := req.ShippingAddress
	return &MpixOrderRequest{
		ExternalID: req.CheckoutID.String(),
		Customer: MpixCustomer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
		ShipTo: MpixAddress{
			Name:     ship.Name,
			Address1: ship.Line1,
			Address2: ship.Line2,
			City:     ship.City,
			State:    ship.State,
			Zip:      ship.Zip,
			Country:  ship.Country,
			Phone:    ship.Phone,
		},
		Items: items,
	}, nil
}

func basicAuth(creds domain.Credentials) http.Header {
	h := http.Header{}
	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
	h.Set("Authorization", "Basic "+token)
	return h
}
