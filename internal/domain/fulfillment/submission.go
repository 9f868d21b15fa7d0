package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionStatus is the outcome of one dispatch
type SubmissionStatus string

const (
	SubmissionSucceeded SubmissionStatus = "SUCCEEDED"
	SubmissionFailed    SubmissionStatus = "FAILED"
)

// Submission is the audit record of one checkout dispatch
type Submission struct {
	ID              uuid.UUID
	CheckoutID      uuid.UUID
	StudioID        uuid.UUID
	Provider        ProviderCode
	Status          SubmissionStatus
	ExternalOrderID string
	Message         string
	ItemCount       int
	Subtotal        decimal.Decimal
	CreatedAt       time.Time
}

// SubmissionRepository stores dispatch audit records
type SubmissionRepository interface {
	Save(ctx context.Context, s *Submission) error
	FindRecent(ctx context.Context, studioID uuid.UUID, limit int) ([]Submission, error)
}
