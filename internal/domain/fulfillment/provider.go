package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProviderCode identifies a fulfillment path
type ProviderCode string

const (
	// ProviderWHCC is White House Custom Colour
	ProviderWHCC ProviderCode = "whcc"
	// ProviderMpix is the Mpix print API
	ProviderMpix ProviderCode = "mpix"
	// ProviderROES is the embedded ROES order editor
	ProviderROES ProviderCode = "roes"
	// ProviderStandard stores the order locally for the studio to fulfil
	ProviderStandard ProviderCode = "standard"
)

// Priority is the order in which external labs are considered.
// The first enabled lab wins; the standard path is used when none is enabled.
var Priority = []ProviderCode{ProviderWHCC, ProviderMpix, ProviderROES}

// IsValid returns true if the provider code is known
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderWHCC, ProviderMpix, ProviderROES, ProviderStandard:
		return true
	default:
		return false
	}
}

// IsExternal returns true for labs reached over the network
func (c ProviderCode) IsExternal() bool {
	return c.IsValid() && c != ProviderStandard
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the provider
func (c ProviderCode) DisplayName() string {
	switch c {
	case ProviderWHCC:
		return "WHCC"
	case ProviderMpix:
		return "Mpix"
	case ProviderROES:
		return "ROES"
	case ProviderStandard:
		return "Standard"
	default:
		return string(c)
	}
}

// ParseProviderCode parses a provider code, rejecting unknown values
func ParseProviderCode(s string) (ProviderCode, error) {
	code := ProviderCode(s)
	if !code.IsValid() {
		return "", ErrInvalidProviderCode
	}
	return code, nil
}

// SubmitRequest is everything an adapter needs to place one order.
// CheckoutID identifies the dispatch; labs that accept an external
// reference receive it. ROESSession is the bridge session the storefront
// polls; only the ROES path reads it.
type SubmitRequest struct {
	CheckoutID      uuid.UUID
	StudioID        uuid.UUID
	Items           []CartItem
	Customer        Customer
	ShippingAddress ShippingAddress
	Settings        ProviderSettings
	ROESSession     string
}

// OrderResult describes an order accepted by a provider
type OrderResult struct {
	Provider       ProviderCode
	OrderID        string
	ConfirmationID string
	Message        string
	SubmittedAt    time.Time
}

// FulfillmentProvider is the port implemented by each lab adapter.
// Submit is called at most once per checkout and is never retried.
type FulfillmentProvider interface {
	Code() ProviderCode
	Submit(ctx context.Context, req SubmitRequest) (*OrderResult, error)
}

// ConnectionTester is implemented by adapters that can verify credentials
// without placing an order
type ConnectionTester interface {
	TestConnection(ctx context.Context, settings ProviderSettings) error
}

type roesSessionKey struct{}

// WithROESSession attaches the bridge session a connection test should use
func WithROESSession(ctx context.Context, session string) context.Context {
	if session == "" {
		return ctx
	}
	return context.WithValue(ctx, roesSessionKey{}, session)
}

// ROESSessionFrom returns the session set by WithROESSession
func ROESSessionFrom(ctx context.Context) (string, bool) {
	session, ok := ctx.Value(roesSessionKey{}).(string)
	return session, ok && session != ""
}

// PhotoAsset is a print-ready reference to a stored photo
type PhotoAsset struct {
	PhotoID  string
	URL      string
	MD5      string
	FileName string
}

// PhotoResolver turns photo ids into URLs the labs can download
type PhotoResolver interface {
	Resolve(ctx context.Context, photoID string) (*PhotoAsset, error)
}
