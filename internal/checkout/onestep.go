package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"storefront-be/internal/address"
	"storefront-be/internal/form"
)

const (
	prefixNewBilling  = "new_billing_address"
	prefixNewShipping = "new_shipping_address"

	msgCheckAddress = "Please correct the address."
)

// OneStepForm is the single page checkout. Registered users pick stored
// addresses where 0 means "new address"; guests always type the billing
// address along with their email.
type OneStepForm struct {
	Registered bool `form:"-"`

	BillingAddress *int64       `form:"billing_address"`
	NewBilling     address.Form `form:"-"`
	Email          string       `form:"-"`

	ShippingSameAsBilling bool         `form:"shipping_same_as_billing"`
	ShippingAddress       *int64       `form:"shipping_address"`
	NewShipping           address.Form `form:"-"`

	ShipmentMethod *int64 `form:"shipment_method"`
	PaymentMethod  *int64 `form:"payment_method"`
}

type guestEmail struct {
	Email string `form:"email" validate:"required,email,max=254"`
}

func OneStepFormFromValues(v url.Values, registered bool) OneStepForm {
	var f OneStepForm
	_ = form.Decode(&f, v)
	f.Registered = registered
	if !registered {
		f.BillingAddress = nil
		f.ShippingAddress = nil
	}

	billing := form.Sub(v, prefixNewBilling+"-")
	var guest guestEmail
	_ = form.Decode(&guest, billing)
	f.Email = guest.Email
	_ = form.Decode(&f.NewBilling, billing)
	_ = form.Decode(&f.NewShipping, form.Sub(v, prefixNewShipping+"-"))
	return f
}

// Validate checks the form against the party's stored addresses and the
// offered payment methods. Nested address errors are keyed as
// "<prefix>-<field>" and flag the prefix itself.
func (f OneStepForm) Validate(addresses, payments map[int64]bool) form.Errors {
	errs := form.Errors{}

	if f.ShipmentMethod == nil {
		errs.Add("shipment_method", form.MsgRequired)
	}
	switch {
	case f.PaymentMethod == nil:
		errs.Add("payment_method", form.MsgRequired)
	case !payments[*f.PaymentMethod]:
		errs.Add("payment_method", form.MsgInvalidChoice)
	}

	if !f.Registered {
		validateAddress(errs, prefixNewBilling, f.NewBilling)
		if err := form.Validate(guestEmail{Email: f.Email}); err != nil {
			mergeValidation(errs, prefixNewBilling, err)
		}
		if !f.ShippingSameAsBilling {
			validateAddress(errs, prefixNewShipping, f.NewShipping)
		}
		return errs
	}

	if choiceIsNew(errs, "billing_address", f.BillingAddress, addresses) {
		validateAddress(errs, prefixNewBilling, f.NewBilling)
	}
	if !f.ShippingSameAsBilling && choiceIsNew(errs, "shipping_address", f.ShippingAddress, addresses) {
		validateAddress(errs, prefixNewShipping, f.NewShipping)
	}
	return errs
}

func choiceIsNew(errs form.Errors, field string, id *int64, choices map[int64]bool) bool {
	switch {
	case id == nil:
		errs.Add(field, form.MsgInvalidChoice)
	case *id == 0:
		return true
	case !choices[*id]:
		errs.Add(field, form.MsgInvalidChoice)
	}
	return false
}

func validateAddress(errs form.Errors, prefix string, a address.Form) {
	if err := form.Validate(a); err != nil {
		mergeValidation(errs, prefix, err)
	}
}

func mergeValidation(errs form.Errors, prefix string, err error) {
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		errs.Add(prefix, err.Error())
		return
	}
	errs.Merge(prefix, verr.Fields)
	if !errs.Has(prefix) {
		errs.Add(prefix, msgCheckAddress)
	}
}

func (h *Handler) oneStepPage(w http.ResponseWriter, r *http.Request, c *Context) {
	h.renderOneStep(w, r, c, url.Values{}, nil)
}

func (h *Handler) oneStep(w http.ResponseWriter, r *http.Request, c *Context) {
	ctx := r.Context()
	values := r.PostForm

	if u := c.User(); u != nil && !c.Session.IsFresh(c.Policy.FreshLoginWindow, c.Policy.now()) {
		http.Redirect(w, r, PathSignIn, http.StatusFound)
		return
	}

	f := OneStepFormFromValues(values, !c.Guest())

	choices := map[int64]bool{}
	if u := c.User(); u != nil {
		list, err := h.addresses.ListForParty(ctx, u.PartyID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		for _, a := range list {
			choices[a.ID] = true
		}
	}
	payments := map[int64]bool{}
	for _, m := range h.payments.Alternates() {
		payments[m.ID] = true
	}

	if errs := f.Validate(choices, payments); len(errs) > 0 {
		h.renderOneStep(w, r, c, values, errs)
		return
	}

	if c.Guest() {
		err := h.identities.SignInGuest(ctx, c, f.Email)
		switch {
		case errors.Is(err, ErrEmailInUse):
			h.flashRedirect(w, r, c, msgRegistrationExists, PathSignIn)
			return
		case err != nil:
			h.fail(w, r, err)
			return
		}
	} else if err := h.identities.Rehome(ctx, c); err != nil {
		h.fail(w, r, err)
		return
	}

	if errs, err := h.applyOneStepAddresses(r, c, f); err != nil {
		h.fail(w, r, err)
		return
	} else if len(errs) > 0 {
		h.renderOneStep(w, r, c, values, errs)
		return
	}

	h.withPaymentLock(w, r, c, PathOneStep, func() {
		res, err := h.dispatch(ctx, c, nil, f.PaymentMethod, nil)
		var verr *form.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderOneStep(w, r, c, values, form.Invalid("payment_method", form.MsgInvalidChoice).Fields)
			return
		case isPaymentRetry(err):
			c.Session.AddFlash(msgPaymentFailed)
			h.renderOneStep(w, r, c, values, nil)
			return
		case err != nil:
			h.fail(w, r, err)
			return
		}

		h.confirmAndRedirect(w, r, c, res, f.PaymentMethod)
	})
}

// applyOneStepAddresses resolves both addresses of the form and writes
// them to the sale. Field problems come back as form errors.
func (h *Handler) applyOneStepAddresses(r *http.Request, c *Context, f OneStepForm) (form.Errors, error) {
	ctx := r.Context()
	s := c.Sale

	billing := address.ResolveParams{
		Role:      address.RoleInvoice,
		PartyID:   c.PartyID(),
		Guest:     c.Guest(),
		CurrentID: s.InvoiceAddressID,
		Form:      f.NewBilling,
	}
	if f.BillingAddress != nil && *f.BillingAddress > 0 {
		billing.SelectedID = *f.BillingAddress
	}
	invoice, errs, err := h.resolveOneStep(ctx, billing, "billing_address", prefixNewBilling)
	if err != nil || errs != nil {
		return errs, err
	}

	shipmentID := invoice.ID
	if !f.ShippingSameAsBilling {
		current := s.ShipmentAddressID
		if current != nil && s.InvoiceAddressID != nil && *current == *s.InvoiceAddressID {
			current = nil
		}
		shipping := address.ResolveParams{
			Role:      address.RoleShipment,
			PartyID:   c.PartyID(),
			Guest:     c.Guest(),
			CurrentID: current,
			Form:      f.NewShipping,
		}
		if f.ShippingAddress != nil && *f.ShippingAddress > 0 {
			shipping.SelectedID = *f.ShippingAddress
		}
		shipment, errs, err := h.resolveOneStep(ctx, shipping, "shipping_address", prefixNewShipping)
		if err != nil || errs != nil {
			return errs, err
		}
		shipmentID = shipment.ID
	}

	if err := h.sales.SetInvoiceAddress(ctx, s.ID, invoice.ID); err != nil {
		return nil, err
	}
	if err := h.sales.SetShipmentAddress(ctx, s.ID, shipmentID); err != nil {
		return nil, err
	}
	s.InvoiceAddressID = &invoice.ID
	s.ShipmentAddressID = &shipmentID
	return nil, nil
}

// resolveOneStep maps address failures onto the one step form fields.
func (h *Handler) resolveOneStep(ctx context.Context, p address.ResolveParams, field, prefix string) (*address.Address, form.Errors, error) {
	a, err := h.addresses.Resolve(ctx, p)
	var verr *form.ValidationError
	switch {
	case err == nil:
		return a, nil, nil
	case errors.Is(err, address.ErrAddressNotOwned):
		return nil, form.Invalid(field, form.MsgInvalidChoice).Fields, nil
	case errors.As(err, &verr):
		errs := form.Errors{}
		mergeValidation(errs, prefix, err)
		return nil, errs, nil
	default:
		return nil, nil, err
	}
}

func (h *Handler) renderOneStep(w http.ResponseWriter, r *http.Request, c *Context, values url.Values, errs form.Errors) {
	p := h.page(r, "Checkout")
	p.Form = withoutSecrets(values)
	if errs != nil {
		p.Errors = errs
	}

	p.Data["Sale"] = c.Sale
	p.Data["Registered"] = !c.Guest()
	p.Data["Alternates"] = h.payments.Alternates()

	if u := c.User(); u != nil {
		list, err := h.addresses.ListForParty(r.Context(), u.PartyID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		p.Data["Addresses"] = list
	}

	h.render.HTML(w, http.StatusOK, "one_step", p)
}
