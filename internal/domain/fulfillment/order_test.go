package fulfillment

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	studioID := uuid.New()
	item := newTestItem()
	item.Size = &SizeRef{ID: "4x6", Name: "4x6", Price: decimal.RequireFromString("1.50")}
	item.Photos = append(item.Photos, PhotoRef{PhotoID: "photo-2"})

	order, err := NewOrder(studioID, Customer{FirstName: "A", LastName: "B", Email: "a@b.com"}, ShippingAddress{Name: "A B"}, Cart{item})
	require.NoError(t, err)

	assert.Equal(t, studioID, order.StudioID)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "PO-"))
	require.Len(t, order.Items, 1)
	assert.Equal(t, []string{"photo-1", "photo-2"}, order.Items[0].PhotoIDs)
	assert.Equal(t, "4x6", order.Items[0].SizeName)
	assert.True(t, decimal.RequireFromString("3.00").Equal(order.Subtotal))
}

func TestNewOrder_EmptyCart(t *testing.T) {
	_, err := NewOrder(uuid.New(), Customer{}, ShippingAddress{}, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrder_StatusTransitions(t *testing.T) {
	order, err := NewOrder(uuid.New(), Customer{}, ShippingAddress{}, Cart{newTestItem()})
	require.NoError(t, err)

	require.NoError(t, order.MarkFulfilled())
	assert.Equal(t, OrderStatusFulfilled, order.Status)
	assert.Error(t, order.Cancel())

	order2, err := NewOrder(uuid.New(), Customer{}, ShippingAddress{}, Cart{newTestItem()})
	require.NoError(t, err)
	require.NoError(t, order2.Cancel())
	assert.Error(t, order2.MarkFulfilled())
}
