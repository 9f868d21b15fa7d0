package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/photolab/backend/internal/domain/fulfillment"
)

// CheckoutRequest is the cart posted by the storefront
type CheckoutRequest struct {
	Customer        CustomerDTO         `json:"customer" binding:"required"`
	Items           []CartItemDTO       `json:"items" binding:"required,min=1,dive"`
	ShippingAddress *ShippingAddressDTO `json:"shippingAddress"`
	// ROESSession is the bridge session the storefront polls; required when the studio routes to ROES
	ROESSession string `json:"roesSession" binding:"omitempty,max=128"`
}

// CustomerDTO identifies the buyer
type CustomerDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
}

// CartItemDTO is one cart line with its captured prices
type CartItemDTO struct {
	ID       string     `json:"id"`
	Photos   []PhotoDTO `json:"photos" binding:"required,min=1,dive"`
	Product  ProductDTO `json:"product" binding:"required"`
	Size     *SizeDTO   `json:"size"`
	Quantity int        `json:"quantity" binding:"required,min=1"`
	AddedAt  *time.Time `json:"addedAt"`
}

// PhotoDTO references a stored photo
type PhotoDTO struct {
	ID       string   `json:"id" binding:"required"`
	FileName string   `json:"fileName"`
	Crop     *CropDTO `json:"crop"`
}

// CropDTO is a rectangle in percent of the source image
type CropDTO struct {
	X      float64 `json:"x" binding:"gte=0,lte=100"`
	Y      float64 `json:"y" binding:"gte=0,lte=100"`
	Width  float64 `json:"width" binding:"gt=0,lte=100"`
	Height float64 `json:"height" binding:"gt=0,lte=100"`
}

// ProductDTO is the product snapshot with optional lab identifiers
type ProductDTO struct {
	ID                string          `json:"id" binding:"required"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	WHCCProductUID    int             `json:"whccProductUid"`
	WHCCNodeID        int             `json:"whccNodeId"`
	WHCCAttributeUIDs []int           `json:"whccAttributeUids"`
	MpixSKU           string          `json:"mpixSku"`
	ROESProductCode   string          `json:"roesProductCode"`
}

// SizeDTO is the selected print size
type SizeDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	WidthIn  float64         `json:"widthIn"`
	HeightIn float64         `json:"heightIn"`
}

// ShippingAddressDTO is the optional destination; empty fields are defaulted
type ShippingAddressDTO struct {
	Name    string `json:"name"`
	Attn    string `json:"attn"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// CheckoutResponse is returned for both accepted and rejected orders
type CheckoutResponse struct {
	Success        bool   `json:"success"`
	Provider       string `json:"provider"`
	OrderID        string `json:"orderId,omitempty"`
	ConfirmationID string `json:"confirmationId,omitempty"`
	CheckoutID     string `json:"checkoutId,omitempty"`
	Message        string `json:"message"`
}

// ToCustomer converts to the domain customer
func (c CustomerDTO) ToCustomer() fulfillment.Customer {
	return fulfillment.Customer{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}

// ToCart converts the request lines to a domain cart
func (r CheckoutRequest) ToCart() fulfillment.Cart {
	cart := make(fulfillment.Cart, len(r.Items))
	for i, it := range r.Items {
		item := fulfillment.CartItem{
			ID:       it.ID,
			Photos:   make([]fulfillment.PhotoRef, len(it.Photos)),
			Quantity: it.Quantity,
			Product: fulfillment.ProductRef{
				ID:                it.Product.ID,
				Name:              it.Product.Name,
				Price:             it.Product.Price,
				WHCCProductUID:    it.Product.WHCCProductUID,
				WHCCNodeID:        it.Product.WHCCNodeID,
				WHCCAttributeUIDs: it.Product.WHCCAttributeUIDs,
				MpixSKU:           it.Product.MpixSKU,
				ROESProductCode:   it.Product.ROESProductCode,
			},
		}
		if it.AddedAt != nil {
			item.AddedAt = *it.AddedAt
		}
		if it.Size != nil {
			item.Size = &fulfillment.SizeRef{
				ID:       it.Size.ID,
				Name:     it.Size.Name,
				Price:    it.Size.Price,
				WidthIn:  it.Size.WidthIn,
				HeightIn: it.Size.HeightIn,
			}
		}
		for j, p := range it.Photos {
			ref := fulfillment.PhotoRef{PhotoID: p.ID, FileName: p.FileName}
			if p.Crop != nil {
				ref.Crop = &fulfillment.Crop{X: p.Crop.X, Y: p.Crop.Y, Width: p.Crop.Width, Height: p.Crop.Height}
			}
			item.Photos[j] = ref
		}
		cart[i] = item
	}
	return cart
}

// ToShippingAddress converts the optional address
func (r CheckoutRequest) ToShippingAddress() fulfillment.ShippingAddress {
	if r.ShippingAddress == nil {
		return fulfillment.ShippingAddress{}
	}
	a := r.ShippingAddress
	return fulfillment.ShippingAddress{
		Name:    a.Name,
		Attn:    a.Attn,
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Phone:   a.Phone,
	}
}

// UpdateProviderRequest changes one lab configuration
type UpdateProviderRequest struct {
	Enabled     *bool           `json:"enabled"`
	Sandbox     *bool           `json:"sandbox"`
	Credentials *CredentialsDTO `json:"credentials"`
}

// CredentialsDTO carries lab secrets; blank fields keep the stored value
type CredentialsDTO struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	APIKey         string `json:"api_key"`
	APISecret      string `json:"api_secret"`
}

// ToCredentials converts to the domain credentials
func (c *CredentialsDTO) ToCredentials() *fulfillment.Credentials {
	if c == nil {
		return nil
	}
	return &fulfillment.Credentials{
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		APIKey:         c.APIKey,
		APISecret:      c.APISecret,
	}
}

// ConnectionTestResponse reports a lab connection test
type ConnectionTestResponse struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
}

// ROESEventRequest is an event pushed by the embedded ROES script
type ROESEventRequest struct {
	Name    string          `json:"name" binding:"required"`
	Session string          `json:"session" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// OrderListRequest filters the studio order list
type OrderListRequest struct {
	ListRequest
	Status   string `form:"status" binding:"omitempty,oneof=PENDING FULFILLED CANCELLED"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}
