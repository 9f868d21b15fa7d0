package fulfillment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Crop is a rectangle in percent of the source image (0-100 on each axis)
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate checks the rectangle lies inside the image
func (c Crop) Validate() error {
	if c.X < 0 || c.Y < 0 || c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidCrop
	}
	if c.X+c.Width > 100 || c.Y+c.Height > 100 {
		return ErrInvalidCrop
	}
	return nil
}

// CenterX returns the horizontal center of the crop in percent
func (c Crop) CenterX() float64 {
	return c.X + c.Width/2
}

// CenterY returns the vertical center of the crop in percent
func (c Crop) CenterY() float64 {
	return c.Y + c.Height/2
}

// PhotoRef references a stored photo and an optional crop
type PhotoRef struct {
	PhotoID  string `json:"photo_id"`
	FileName string `json:"file_name,omitempty"`
	Crop     *Crop  `json:"crop,omitempty"`
}

// ProductRef is the product snapshot taken when the item was added to the cart.
// Lab-specific identifiers are optional; adapters fall back to their defaults.
type ProductRef struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	WHCCProductUID    int             `json:"whcc_product_uid,omitempty"`
	WHCCNodeID        int             `json:"whcc_node_id,omitempty"`
	WHCCAttributeUIDs []int           `json:"whcc_attribute_uids,omitempty"`
	MpixSKU           string          `json:"mpix_sku,omitempty"`
	ROESProductCode   string          `json:"roes_product_code,omitempty"`
}

// SizeRef is the selected print size snapshot
type SizeRef struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	WidthIn  float64         `json:"width_in,omitempty"`
	HeightIn float64         `json:"height_in,omitempty"`
}

// CartItem is one priced line in a cart.
// Prices are captured when the item is added and never recomputed.
type CartItem struct {
	ID       string     `json:"id"`
	Photos   []PhotoRef `json:"photos"`
	Product  ProductRef `json:"product"`
	Size     *SizeRef   `json:"size,omitempty"`
	Quantity int        `json:"quantity"`
	AddedAt  time.Time  `json:"added_at"`
}

// UnitPrice returns the size price when a size is selected, otherwise the product price
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.Size != nil && !i.Size.Price.IsZero() {
		return i.Size.Price
	}
	return i.Product.Price
}

// LineTotal returns unit price times quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PrimaryPhoto returns the first photo of the item
func (i CartItem) PrimaryPhoto() (PhotoRef, bool) {
	if len(i.Photos) == 0 {
		return PhotoRef{}, false
	}
	return i.Photos[0], true
}

// Validate checks the item is submittable
func (i CartItem) Validate() error {
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.Product.ID == "" {
		return ErrMissingProduct
	}
	if i.Product.Price.IsNegative() || (i.Size != nil && i.Size.Price.IsNegative()) {
		return ErrInvalidPrice
	}
	if len(i.Photos) == 0 {
		return ErrMissingPhoto
	}
	for _, p := range i.Photos {
		if p.PhotoID == "" {
			return ErrMissingPhoto
		}
		if p.Crop != nil {
			if err := p.Crop.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cart is the ordered list of items being checked out
type Cart []CartItem

// Validate checks the cart is non-empty and every item is valid
func (c Cart) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCart
	}
	for _, item := range c {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal sums every line total
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalQuantity sums item quantities
func (c Cart) TotalQuantity() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}
