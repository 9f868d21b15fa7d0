package checkout

import (
	"fmt"

	"github.com/google/uuid"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
)

// CheckoutError reports that the selected provider did not accept the order
type CheckoutError struct {
	CheckoutID uuid.UUID
	Provider   domain.ProviderCode
	Err        error
}

// Error implements the error interface
func (e *CheckoutError) Error() string {
	return fmt.Sprintf("%s checkout failed: %v", e.Provider.DisplayName(), e.Err)
}

// Unwrap returns the provider error
func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the customer
func (e *CheckoutError) Message() string {
	return fmt.Sprintf("%s order failed: %v", e.Provider.DisplayName(), e.Err)
}
