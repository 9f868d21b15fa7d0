package fulfillment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/cache"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

const (
	// whccTokenMargin is subtracted from the token expiry before caching
	whccTokenMargin = time.Minute
	// whccFallbackTokenTTL is used when the expiry cannot be parsed
	whccFallbackTokenTTL = 10 * time.Minute
)

var whccExpirationLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
	"1/2/2006 3:04:05 PM",
}

// WHCCAdapter submits orders to the WHCC Order Submit API.
// Each submit is a two step import then submit; access tokens are cached per
// consumer key and concurrent cache misses share one token request.
type WHCCAdapter struct {
	config *WHCCConfig
	client *apiClient
	tokens cache.TokenStore
	photos domain.PhotoResolver
	group  singleflight.Group
	now    func() time.Time
	logger *zap.Logger
}

// NewWHCCAdapter creates a WHCC adapter
func NewWHCCAdapter(cfg *WHCCConfig, tokens cache.TokenStore, photos domain.PhotoResolver, opts ...Option) (*WHCCAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("whcc: token store is required")
	}
	if photos == nil {
		return nil, errors.New("whcc: photo resolver is required")
	}
	client := newAPIClient(domain.ProviderWHCC, cfg.Timeout, opts...)
	return &WHCCAdapter{
		config: cfg,
		client: client,
		tokens: tokens,
		photos: photos,
		now:    time.Now,
		logger: client.logger,
	}, nil
}

// Code returns the provider code
func (a *WHCCAdapter) Code() domain.ProviderCode {
	return domain.ProviderWHCC
}

// Submit imports the order and confirms it
func (a *WHCCAdapter) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.OrderResult, error) {
	if !req.Settings.HasCredentials() {
		return nil, fmt.Errorf("%w: WHCC consumer key and secret", domain.ErrMissingCredentials)
	}

	ctx, span := telemetry.StartClientSpan(ctx, "whcc.submit",
		telemetry.SpanAttrProvider, domain.ProviderWHCC.String(),
		telemetry.SpanAttrStudioID, req.StudioID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
		"whcc.sandbox", req.Settings.Sandbox,
	)
	defer span.End()

	order, err := a.BuildOrderRequest(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	token, err := a.accessToken(ctx, req.Settings)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	base := a.config.BaseURL(req.Settings.Sandbox)
	imported, err := a.importOrder(ctx, base, token, order)
	if err != nil {
		a.dropTokenOnAuthFailure(ctx, req.Settings, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	submitted, err := a.submitOrder(ctx, base, token, imported.ConfirmationID)
	if err != nil {
		a.dropTokenOnAuthFailure(ctx, req.Settings, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	confirmationID := submitted.ConfirmationID
	if confirmationID == "" {
		confirmationID = imported.ConfirmationID
	}
	message := submitted.Confirmation
	if message == "" {
		message = "Order submitted to WHCC"
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrConfirmationID, confirmationID)

	a.logger.Info("WHCC order submitted",
		zap.String("studio_id", req.StudioID.String()),
		zap.String("checkout_id", req.CheckoutID.String()),
		zap.String("confirmation_id", confirmationID),
		zap.Int("items", len(order.Orders[0].OrderItems)),
	)

	return &domain.OrderResult{
		Provider:       domain.ProviderWHCC,
		OrderID:        confirmationID,
		ConfirmationID: confirmationID,
		Message:        message,
		SubmittedAt:    a.now().UTC(),
	}, nil
}

// TestConnection requests a fresh access token
func (a *WHCCAdapter) TestConnection(ctx context.Context, settings domain.ProviderSettings) error {
	if !settings.HasCredentials() {
		return fmt.Errorf("%w: WHCC consumer key and secret", domain.ErrMissingCredentials)
	}
	_, _, err := a.fetchToken(ctx, settings)
	return err
}

// BuildOrderRequest translates the cart into a WHCC import.
// Each cart item becomes one order item; each photo becomes one asset.
func (a *WHCCAdapter) BuildOrderRequest(ctx context.Context, req domain.SubmitRequest) (*WHCCOrderRequest, error) {
	items := make([]WHCCOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productUID := item.Product.WHCCProductUID
		if productUID == 0 {
			productUID = a.config.DefaultProductUID
		}
		if productUID == 0 {
			return nil, fmt.Errorf("%w: %q has no WHCC product UID", domain.ErrMissingProduct, item.Product.Name)
		}
		nodeID := item.Product.WHCCNodeID
		if nodeID == 0 {
			nodeID = a.config.DefaultNodeID
		}

		assets := make([]WHCCItemAsset, 0, len(item.Photos))
		for i, photo := range item.Photos {
			asset, err := a.photos.Resolve(ctx, photo.PhotoID)
			if err != nil {
				return nil, fmt.Errorf("resolve photo %s: %w", photo.PhotoID, err)
			}
			// multi-opening templates number their nodes consecutively
			assets = append(assets, newWHCCItemAsset(nodeID+i, photo, asset))
		}

		attrs := make([]WHCCAttributeRef, 0, len(item.Product.WHCCAttributeUIDs))
		for _, uid := range item.Product.WHCCAttributeUIDs {
			attrs = append(attrs, WHCCAttributeRef{AttributeUID: uid})
		}

		items = append(items, WHCCOrderItem{
			ProductUID:     productUID,
			Quantity:       item.Quantity,
			LineItemID:     item.ID,
			ItemAssets:     assets,
			ItemAttributes: attrs,
		})
	}

	ship := req.ShippingAddress
	from := a.config.ShipFrom
	return &WHCCOrderRequest{
		EntryID: req.CheckoutID.String(),
		Orders: []WHCCOrder{{
			SequenceNumber: 1,
			Reference:      shortReference(req.CheckoutID.String()),
			ShipToAddress: WHCCAddress{
				Name:    ship.Name,
				Attn:    ship.Attn,
				Addr1:   ship.Line1,
				Addr2:   ship.Line2,
				City:    ship.City,
				State:   ship.State,
				Zip:     ship.Zip,
				Country: ship.Country,
				Phone:   ship.Phone,
			},
			ShipFromAddress: WHCCAddress{
				Name:    from.Name,
				Addr1:   from.Line1,
				City:    from.City,
				State:   from.State,
				Zip:     from.Zip,
				Country: from.Country,
				Phone:   from.Phone,
			},
			OrderAttributes: []WHCCAttributeRef{
				{AttributeUID: a.config.ShippingAttributeUID},
				{AttributeUID: a.config.PackagingAttributeUID},
			},
			OrderItems: items,
		}},
	}, nil
}

func newWHCCItemAsset(nodeID int, photo domain.PhotoRef, asset *domain.PhotoAsset) WHCCItemAsset {
	name := photo.FileName
	if name == "" {
		name = asset.FileName
	}
	if name == "" {
		name = photo.PhotoID + ".jpg"
	}
	out := WHCCItemAsset{
		ProductNodeID:   nodeID,
		AssetPath:       asset.URL,
		ImageHash:       asset.MD5,
		PrintedFileName: name,
		AutoRotate:      true,
		X:               50,
		Y:               50,
		ZoomX:           100,
		ZoomY:           100,
	}
	if c := photo.Crop; c != nil {
		out.X = c.CenterX()
		out.Y = c.CenterY()
		out.ZoomX = 100 * 100 / c.Width
		out.ZoomY = 100 * 100 / c.Height
	}
	return out
}

func (a *WHCCAdapter) importOrder(ctx context.Context, base, token string, order *WHCCOrderRequest) (*whccImportResponse, error) {
	resp, err := a.client.do(ctx, http.MethodPost, base+"/api/OrderImport", order, bearer(token))
	if err != nil {
		return nil, err
	}
	var out whccImportResponse
	if err := decodeJSON(domain.ProviderWHCC, resp.Body, &out); err != nil {
		return nil, err
	}
	if out.ConfirmationID == "" {
		return nil, fmt.Errorf("%w: WHCC import returned no confirmation id: %s",
			domain.ErrProviderInvalidResponse, firstNonBlank(out.Message, snippet(resp.Body)))
	}
	return &out, nil
}

func (a *WHCCAdapter) submitOrder(ctx context.Context, base, token, confirmationID string) (*whccSubmitResponse, error) {
	endpoint := base + "/api/OrderImport/Submit/" + url.PathEscape(confirmationID)
	resp, err := a.client.do(ctx, http.MethodPost, endpoint, nil, bearer(token))
	if err != nil {
		return nil, err
	}
	var out whccSubmitResponse
	if err := decodeJSON(domain.ProviderWHCC, resp.Body, &out); err != nil {
		return nil, err
	}
	if out.ErrorNumber != "" {
		return nil, fmt.Errorf("%w: WHCC submit error %s: %s", domain.ErrProviderRequestFailed, out.ErrorNumber, out.Message)
	}
	return &out, nil
}

// accessToken returns a cached token or fetches a new one
func (a *WHCCAdapter) accessToken(ctx context.Context, settings domain.ProviderSettings) (string, error) {
	key := whccTokenKey(settings)
	if token, err := a.tokens.Get(ctx, key); err == nil && token != "" {
		return token, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		a.logger.Warn("WHCC token cache read failed", zap.Error(err))
	}

	v, err, shared := a.group.Do(key, func() (any, error) {
		token, ttl, err := a.fetchToken(ctx, settings)
		if err != nil {
			return "", err
		}
		if ttl > 0 {
			if err := a.tokens.Set(ctx, key, token, ttl); err != nil {
				a.logger.Warn("WHCC token cache write failed", zap.Error(err))
			}
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		a.logger.Debug("WHCC token request shared")
	}
	return v.(string), nil
}

func (a *WHCCAdapter) fetchToken(ctx context.Context, settings domain.ProviderSettings) (string, time.Duration, error) {
	q := url.Values{}
	q.Set("grant_type", "consumer_credentials")
	q.Set("consumer_key", settings.Credentials.ConsumerKey)
	q.Set("consumer_secret", settings.Credentials.ConsumerSecret)
	endpoint := a.config.BaseURL(settings.Sandbox) + "/api/AccessToken?" + q.Encode()

	resp, err := a.client.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return "", 0, err
	}
	var out whccTokenResponse
	if err := decodeJSON(domain.ProviderWHCC, resp.Body, &out); err != nil {
		return "", 0, err
	}
	if out.Token == "" {
		return "", 0, fmt.Errorf("%w: WHCC issued no token: %s", domain.ErrProviderAuthFailed, out.Message)
	}
	return out.Token, a.tokenTTL(out.ExpirationDate), nil
}

// tokenTTL returns how long a token may be cached; zero means do not cache
func (a *WHCCAdapter) tokenTTL(expiration string) time.Duration {
	for _, layout := range whccExpirationLayouts {
		if exp, err := time.Parse(layout, expiration); err == nil {
			if ttl := exp.Sub(a.now()) - whccTokenMargin; ttl > 0 {
				return ttl
			}
			return 0
		}
	}
	return whccFallbackTokenTTL
}

func (a *WHCCAdapter) dropTokenOnAuthFailure(ctx context.Context, settings domain.ProviderSettings, err error) {
	if !errors.Is(err, domain.ErrProviderAuthFailed) {
		return
	}
	if derr := a.tokens.Delete(ctx, whccTokenKey(settings)); derr != nil {
		a.logger.Warn("WHCC token cache delete failed", zap.Error(derr))
	}
}

// whccTokenKey scopes tokens by environment and consumer key
func whccTokenKey(settings domain.ProviderSettings) string {
	env := "production"
	if settings.Sandbox {
		env = "sandbox"
	}
	sum := sha256.Sum256([]byte(settings.Credentials.ConsumerKey))
	return "whcc:token:" + env + ":" + hex.EncodeToString(sum[:8])
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func shortReference(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
