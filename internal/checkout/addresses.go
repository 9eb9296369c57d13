package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"storefront-be/internal/address"
	"storefront-be/internal/form"
)

type addressStep struct {
	template string
	title    string
	path     string
}

var (
	shippingStep = addressStep{template: "shipping_address", title: "Shipping address", path: PathShippingAddress}
	billingStep  = addressStep{template: "billing_address", title: "Billing address", path: PathBillingAddress}
)

func (h *Handler) shippingAddressPage(w http.ResponseWriter, r *http.Request, c *Context) {
	h.renderAddress(w, r, c, shippingStep, c.Sale.ShipmentAddressID, nil, nil)
}

func (h *Handler) shippingAddress(w http.ResponseWriter, r *http.Request, c *Context) {
	ctx := r.Context()

	a, err := h.resolveAddress(ctx, c, address.RoleShipment, r.PostForm, c.Sale.ShipmentAddressID)
	if err != nil {
		h.addressFailed(w, r, c, shippingStep, err)
		return
	}
	if err := h.sales.SetShipmentAddress(ctx, c.Sale.ID, a.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	c.Sale.ShipmentAddressID = &a.ID

	next := PathDeliveryMethod
	if c.Policy.ValidateAddress {
		next = PathValidateAddress
	}
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *Handler) billingAddressPage(w http.ResponseWriter, r *http.Request, c *Context) {
	h.renderAddress(w, r, c, billingStep, c.Sale.InvoiceAddressID, nil, nil)
}

func (h *Handler) billingAddress(w http.ResponseWriter, r *http.Request, c *Context) {
	if err := h.applyBilling(r.Context(), c, r.PostForm); err != nil {
		h.addressFailed(w, r, c, billingStep, err)
		return
	}
	http.Redirect(w, r, PathPayment, http.StatusFound)
}

// addressChoice is a stored address picked on an address step.
type addressChoice struct {
	AddressID          int64 `form:"address"`
	UseShipmentAddress bool  `form:"use_shipment_address"`
}

// applyBilling sets the sale's invoice address from a billing form. With
// use_shipment_address the invoice address is the shipment address itself.
func (h *Handler) applyBilling(ctx context.Context, c *Context, values url.Values) error {
	s := c.Sale

	var choice addressChoice
	_ = form.Decode(&choice, values)

	if choice.UseShipmentAddress {
		if s.ShipmentAddressID == nil {
			return form.Invalid("use_shipment_address", "Set a shipping address first.")
		}
		id := *s.ShipmentAddressID
		if err := h.sales.SetInvoiceAddress(ctx, s.ID, id); err != nil {
			return err
		}
		s.InvoiceAddressID = &id
		return nil
	}

	// An invoice address shared with the shipment must not be edited in
	// place, or the shipment address would change with it.
	current := s.InvoiceAddressID
	if current != nil && s.ShipmentAddressID != nil && *current == *s.ShipmentAddressID {
		current = nil
	}

	a, err := h.resolveAddress(ctx, c, address.RoleInvoice, values, current)
	if err != nil {
		return err
	}
	if err := h.sales.SetInvoiceAddress(ctx, s.ID, a.ID); err != nil {
		return err
	}
	s.InvoiceAddressID = &a.ID
	return nil
}

func (h *Handler) resolveAddress(ctx context.Context, c *Context, role address.Role, values url.Values, current *int64) (*address.Address, error) {
	p := address.ResolveParams{
		Role:      role,
		PartyID:   c.PartyID(),
		Guest:     c.Guest(),
		CurrentID: current,
		Form:      address.FormFromValues(values, ""),
	}
	var choice addressChoice
	_ = form.Decode(&choice, values)
	if choice.AddressID > 0 {
		p.SelectedID = choice.AddressID
	}

	return h.addresses.Resolve(ctx, p)
}

// addressFailed answers a rejected address submission: a foreign address
// is a notice on the same step, bad fields re-render the form.
func (h *Handler) addressFailed(w http.ResponseWriter, r *http.Request, c *Context, st addressStep, err error) {
	var verr *form.ValidationError
	switch {
	case errors.Is(err, address.ErrAddressNotOwned):
		h.flashRedirect(w, r, c, msgAddressNotOwned, st.path)
	case errors.As(err, &verr):
		h.renderAddress(w, r, c, st, nil, r.PostForm, verr.Fields)
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) renderAddress(w http.ResponseWriter, r *http.Request, c *Context, st addressStep, current *int64, values url.Values, errs form.Errors) {
	ctx := r.Context()
	p := h.page(r, st.title)
	if errs != nil {
		p.Errors = errs
	}

	if values == nil && current != nil {
		if a, err := h.addresses.Get(ctx, *current); err == nil {
			values = address.FormFromAddress(a).Values("")
		}
	}
	if values != nil {
		p.Form = values
	}

	if !c.Guest() {
		list, err := h.addresses.ListForParty(ctx, c.PartyID())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		p.Data["Addresses"] = list
	}

	h.render.HTML(w, http.StatusOK, st.template, p)
}
