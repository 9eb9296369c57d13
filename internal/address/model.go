package address

import (
	"net/url"
	"strings"

	"storefront-be/internal/form"
)

// Role is the slot an address fills on a sale.
type Role string

const (
	RoleShipment Role = "shipment"
	RoleInvoice  Role = "invoice"
)

type Address struct {
	ID             int64
	PartyID        int64
	Name           string
	Street         string
	Streetbis      string
	Zip            string
	City           string
	Country        string
	Subdivision    string
	PhoneContactID *int64
	// Phone is the number behind PhoneContactID, filled on reads.
	Phone string
}

// Lines renders the postal address for display, skipping empty parts.
func (a *Address) Lines() []string {
	var out []string
	for _, l := range []string{
		a.Name,
		a.Street,
		a.Streetbis,
		strings.TrimSpace(a.Zip + " " + a.City),
		strings.TrimSpace(a.Subdivision + " " + a.Country),
	} {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Form is a submitted postal address.
type Form struct {
	Name        string `form:"name" validate:"required,max=128"`
	Street      string `form:"street" validate:"required,max=255"`
	Streetbis   string `form:"streetbis" validate:"omitempty,max=255"`
	Zip         string `form:"zip" validate:"required,max=32"`
	City        string `form:"city" validate:"required,max=128"`
	Country     string `form:"country" validate:"required,max=64"`
	Subdivision string `form:"subdivision" validate:"required,max=64"`
	Phone       string `form:"phone" validate:"omitempty,max=32"`
}

// FormFromValues reads an address form whose field names carry prefix,
// e.g. "new_billing_address-" for nested one step checkout forms.
func FormFromValues(values url.Values, prefix string) Form {
	var f Form
	_ = form.Decode(&f, form.Sub(values, prefix))
	return f
}

// FormFromAddress pre-fills a form with a stored address.
func FormFromAddress(a *Address) Form {
	return Form{
		Name:        a.Name,
		Street:      a.Street,
		Streetbis:   a.Streetbis,
		Zip:         a.Zip,
		City:        a.City,
		Country:     a.Country,
		Subdivision: a.Subdivision,
		Phone:       a.Phone,
	}
}

// Values flattens the form back into request values under prefix.
func (f Form) Values(prefix string) url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(prefix+k, val)
		}
	}
	set("name", f.Name)
	set("street", f.Street)
	set("streetbis", f.Streetbis)
	set("zip", f.Zip)
	set("city", f.City)
	set("country", f.Country)
	set("subdivision", f.Subdivision)
	set("phone", f.Phone)
	return v
}
