package fulfillment

// WHCC API payloads. Field names follow the WHCC Order Submit API.

// whccTokenResponse is returned by GET /api/AccessToken
type whccTokenResponse struct {
	Token          string `json:"Token"`
	ClientID       string `json:"ClientId,omitempty"`
	ConsumerKey    string `json:"ConsumerKey,omitempty"`
	ExpirationDate string `json:"ExpirationDate"`
	ErrorNumber    string `json:"ErrorNumber,omitempty"`
	Message        string `json:"Message,omitempty"`
}

// WHCCOrderRequest is the body of POST /api/OrderImport
type WHCCOrderRequest struct {
	EntryID string      `json:"EntryId"`
	Orders  []WHCCOrder `json:"Orders"`
}

// WHCCOrder is one shipment in an import
type WHCCOrder struct {
	SequenceNumber  int                `json:"SequenceNumber"`
	Reference       string             `json:"Reference,omitempty"`
	Instructions    string             `json:"Instructions,omitempty"`
	SendNotifyEmail string             `json:"SendNotificationEmailAddress,omitempty"`
	ShipToAddress   WHCCAddress        `json:"ShipToAddress"`
	ShipFromAddress WHCCAddress        `json:"ShipFromAddress"`
	OrderAttributes []WHCCAttributeRef `json:"OrderAttributes"`
	OrderItems      []WHCCOrderItem    `json:"OrderItems"`
}

// WHCCAddress is a postal address
type WHCCAddress struct {
	Name    string `json:"Name"`
	Attn    string `json:"Attn,omitempty"`
	Addr1   string `json:"Addr1"`
	Addr2   string `json:"Addr2,omitempty"`
	City    string `json:"City"`
	State   string `json:"State"`
	Zip     string `json:"Zip"`
	Country string `json:"Country"`
	Phone   string `json:"Phone,omitempty"`
}

// WHCCAttributeRef selects a product or order option
type WHCCAttributeRef struct {
	AttributeUID int `json:"AttributeUID"`
}

// WHCCOrderItem is one product line
type WHCCOrderItem struct {
	ProductUID     int                `json:"ProductUID"`
	Quantity       int                `json:"Quantity"`
	LineItemID     string             `json:"LineItemID,omitempty"`
	ItemAssets     []WHCCItemAsset    `json:"ItemAssets"`
	ItemAttributes []WHCCAttributeRef `json:"ItemAttributes,omitempty"`
}

// WHCCItemAsset places one image on a product node.
// X and Y are the crop center in percent; ZoomX and ZoomY are percentages
// where 100 shows the whole image.
type WHCCItemAsset struct {
	ProductNodeID   int     `json:"ProductNodeID"`
	AssetPath       string  `json:"AssetPath"`
	ImageHash       string  `json:"ImageHash,omitempty"`
	PrintedFileName string  `json:"PrintedFileName"`
	AutoRotate      bool    `json:"AutoRotate"`
	X               float64 `json:"X"`
	Y               float64 `json:"Y"`
	ZoomX           float64 `json:"ZoomX"`
	ZoomY           float64 `json:"ZoomY"`
}

// whccImportResponse is returned by POST /api/OrderImport
type whccImportResponse struct {
	Account        string `json:"Account,omitempty"`
	ConfirmationID string `json:"ConfirmationID"`
	EntryID        string `json:"EntryID,omitempty"`
	Key            string `json:"Key,omitempty"`
	NumberOfOrders int    `json:"NumberOfOrders,omitempty"`
	Received       string `json:"Received,omitempty"`
	ErrorNumber    string `json:"ErrorNumber,omitempty"`
	Message        string `json:"Message,omitempty"`
}

// whccSubmitResponse is returned by POST /api/OrderImport/Submit/{id}
type whccSubmitResponse struct {
	Account        string `json:"Account,omitempty"`
	ConfirmationID string `json:"ConfirmationID"`
	Confirmation   string `json:"Confirmation,omitempty"`
	EntryID        string `json:"EntryID,omitempty"`
	Received       string `json:"Received,omitempty"`
	ErrorNumber    string `json:"ErrorNumber,omitempty"`
	Message        string `json:"Message,omitempty"`
}
