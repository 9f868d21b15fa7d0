package fulfillment

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Customer identifies the buyer
type Customer struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// FullName returns "First Last"
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Validate requires a name and a well-formed email
func (c Customer) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return ErrInvalidCustomer
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidCustomer
	}
	return nil
}

// AddressDefaults are substituted for empty shipping address fields
type AddressDefaults struct {
	Name    string
	Line1   string
	City    string
	State   string
	Zip     string
	Country string
	Phone   string
}

// ShippingAddress is where the lab ships the prints
type ShippingAddress struct {
	Name    string `json:"name,omitempty"`
	Attn    string `json:"attn,omitempty"`
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// WithDefaults returns a copy with every empty field filled.
// Name and phone come from the customer first, then the configured defaults.
// It never fails: a checkout with no address ships to the defaults.
func (a ShippingAddress) WithDefaults(customer Customer, d AddressDefaults) ShippingAddress {
	out := a
	out.Name = firstNonEmpty(a.Name, customer.FullName(), d.Name)
	out.Line1 = firstNonEmpty(a.Line1, d.Line1)
	out.City = firstNonEmpty(a.City, d.City)
	out.State = upper(firstNonEmpty(a.State, d.State))
	out.Zip = firstNonEmpty(a.Zip, d.Zip)
	out.Country = upper(firstNonEmpty(a.Country, d.Country))
	out.Phone = firstNonEmpty(a.Phone, customer.Phone, d.Phone)
	return out
}

// IsComplete reports whether the address has every field a lab requires
func (a ShippingAddress) IsComplete() bool {
	return a.Name != "" && a.Line1 != "" && a.City != "" && a.State != "" && a.Zip != "" && a.Country != ""
}

// A Caser is stateful, so one is built per call.
func upper(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
