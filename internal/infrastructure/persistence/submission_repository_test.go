package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSubmissionRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormSubmissionRepository(db)
	ctx := context.Background()
	studioID := uuid.New()
	base := time.Now().Add(-time.Hour)

	checkoutID := uuid.New()
	first := &fulfillment.Submission{
		CheckoutID:      checkoutID,
		StudioID:        studioID,
		Provider:        fulfillment.ProviderMpix,
		Status:          fulfillment.SubmissionSucceeded,
		ExternalOrderID: "MPX-1",
		ItemCount:       1,
		Subtotal:        decimal.RequireFromString("19.98"),
		CreatedAt:       base,
	}
	require.NoError(t, repo.Save(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	t.Run("ignores a duplicate checkout", func(t *testing.T) {
		dup := *first
		dup.ID = uuid.Nil
		dup.Message = "replayed"
		require.NoError(t, repo.Save(ctx, &dup))

		recent, err := repo.FindRecent(ctx, studioID, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Empty(t, recent[0].Message)
	})

	require.NoError(t, repo.Save(ctx, &fulfillment.Submission{
		CheckoutID: uuid.New(),
		StudioID:   studioID,
		Provider:   fulfillment.ProviderWHCC,
		Status:     fulfillment.SubmissionFailed,
		Message:    "upstream error",
		ItemCount:  2,
		Subtotal:   decimal.RequireFromString("5"),
		CreatedAt:  base.Add(time.Minute),
	}))

	t.Run("returns newest first", func(t *testing.T) {
		recent, err := repo.FindRecent(ctx, studioID, 0)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, fulfillment.ProviderWHCC, recent[0].Provider)
		assert.Equal(t, fulfillment.SubmissionFailed, recent[0].Status)
		assert.Equal(t, "MPX-1", recent[1].ExternalOrderID)
	})

	t.Run("scoped by studio", func(t *testing.T) {
		recent, err := repo.FindRecent(ctx, uuid.New(), 10)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})
}
