package fulfillment

import "errors"

var (
	// Checkout input errors
	ErrEmptyCart           = errors.New("fulfillment: cart is empty")
	ErrInvalidQuantity     = errors.New("fulfillment: quantity must be positive")
	ErrInvalidPrice        = errors.New("fulfillment: price cannot be negative")
	ErrMissingPhoto        = errors.New("fulfillment: cart item has no photo")
	ErrInvalidCrop         = errors.New("fulfillment: crop rectangle is out of bounds")
	ErrMissingProduct      = errors.New("fulfillment: cart item has no product")
	ErrInvalidCustomer     = errors.New("fulfillment: customer requires first name, last name and email")
	ErrInvalidProviderCode = errors.New("fulfillment: invalid provider code")

	// Provider errors
	ErrProviderNotRegistered   = errors.New("fulfillment: no adapter registered for provider")
	ErrMissingCredentials      = errors.New("fulfillment: provider credentials are not configured")
	ErrProviderUnavailable     = errors.New("fulfillment: provider temporarily unavailable")
	ErrProviderRequestFailed   = errors.New("fulfillment: provider request failed")
	ErrProviderInvalidResponse = errors.New("fulfillment: unexpected provider response")
	ErrProviderAuthFailed      = errors.New("fulfillment: provider authentication failed")
	ErrCircuitOpen             = errors.New("fulfillment: provider circuit is open")
	ErrROESTimeout             = errors.New("fulfillment: ROES did not capture the cart in time")
	ErrROESSessionRequired     = errors.New("fulfillment: ROES checkout requires a session")
	ErrROESSessionForeign      = errors.New("fulfillment: ROES session belongs to another studio")
	ErrPhotoNotFound           = errors.New("fulfillment: photo not found")

	// Persistence errors
	ErrOrderNotFound      = errors.New("fulfillment: order not found")
	ErrInvalidOrderStatus = errors.New("fulfillment: invalid order status")
)
