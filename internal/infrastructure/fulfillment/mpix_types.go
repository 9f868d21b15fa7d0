package fulfillment

// MpixOrderRequest is the body of POST /Order
type MpixOrderRequest struct {
	ExternalID string          `json:"externalId"`
	Customer   MpixCustomer    `json:"customer"`
	ShipTo     MpixAddress     `json:"shipTo"`
	Items      []MpixOrderItem `json:"items"`
}

// MpixCustomer is the buyer
type MpixCustomer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// MpixAddress is a postal address
type MpixAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// MpixOrderItem is one print. Crop is in percent of the source image.
type MpixOrderItem struct {
	SKU      string    `json:"sku"`
	Quantity int       `json:"quantity"`
	ImageURL string    `json:"imageUrl"`
	Crop     *MpixCrop `json:"crop,omitempty"`
}

// MpixCrop is a crop rectangle in percent
type MpixCrop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type mpixOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type mpixAccountResponse struct {
	AccountID string `json:"accountId,omitempty"`
	Name      string `json:"name,omitempty"`
}
