package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront-be/internal/address"
	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/payment"

	"go.uber.org/zap"
)

func (h *Handler) paymentPage(w http.ResponseWriter, r *http.Request, c *Context) {
	h.renderPayment(w, r, c, url.Values{}, nil)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request, c *Context) {
	ctx := r.Context()
	values := r.PostForm

	h.withPaymentLock(w, r, c, PathPayment, func() {
		choice := paymentChoiceFromValues(values)
		profileID := choice.Profile

		// A saved profile brings its own address; otherwise billing runs
		// on the same form data before anything is charged.
		if c.Sale.InvoiceAddressID == nil && profileID == nil {
			if err := h.applyBilling(ctx, c, values); err != nil {
				var verr *form.ValidationError
				switch {
				case errors.Is(err, address.ErrAddressNotOwned):
					h.flashRedirect(w, r, c, msgAddressNotOwned, PathBillingAddress)
				case errors.As(err, &verr):
					http.Redirect(w, r, PathBillingAddress, http.StatusFound)
				default:
					h.fail(w, r, err)
				}
				return
			}
		}

		res, err := h.dispatch(ctx, c, profileID, choice.Alternate, cardFromValues(values))
		var verr *form.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderPayment(w, r, c, values, verr.Fields)
			return
		case isPaymentRetry(err):
			c.Session.AddFlash(msgPaymentFailed)
			h.renderPayment(w, r, c, values, nil)
			return
		case err != nil:
			h.fail(w, r, err)
			return
		}

		h.confirmAndRedirect(w, r, c, res, choice.Alternate)
	})
}

// dispatch collects payment for the sale and keeps its invoice address in
// line with the one the payment used.
func (h *Handler) dispatch(ctx context.Context, c *Context, profileID, alternateID *int64, card *payment.Card) (*payment.Result, error) {
	params := payment.DispatchParams{
		Sale:              c.Sale,
		PartyID:           c.PartyID(),
		Guest:             c.Guest(),
		InvoiceAddressID:  c.Sale.InvoiceAddressID,
		ProfileID:         profileID,
		AlternateMethodID: alternateID,
		Card:              card,
	}
	if u := c.User(); u != nil {
		params.Owner = payment.CardOwner{Name: u.Name, Email: u.Email}
	}

	res, err := h.payments.Dispatch(ctx, params)
	if err != nil {
		return nil, err
	}

	if cur := c.Sale.InvoiceAddressID; cur == nil || *cur != res.InvoiceAddressID {
		if err := h.sales.SetInvoiceAddress(ctx, c.Sale.ID, res.InvoiceAddressID); err != nil {
			return nil, err
		}
		id := res.InvoiceAddressID
		c.Sale.InvoiceAddressID = &id
	}
	return res, nil
}

// confirmAndRedirect confirms the sale, then sends the buyer to the
// gateway when it asked for it, or to the order page.
func (h *Handler) confirmAndRedirect(w http.ResponseWriter, r *http.Request, c *Context, res *payment.Result, alternateID *int64) {
	orderURL, err := h.confirmer.Confirm(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if alternateID != nil {
		for _, m := range h.payments.Alternates() {
			if m.ID == *alternateID && m.Instructions != "" {
				tx := res.Transaction
				c.Session.AddFlash(m.RenderInstructions(tx.Amount, tx.Currency, "Order #"+strconv.FormatInt(c.Sale.ID, 10)))
			}
		}
	}

	if res.RedirectURL != "" {
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, orderURL, http.StatusFound)
}

// withPaymentLock runs fn unless another submission for the same sale is
// in flight. An unreachable lock store does not block payments.
func (h *Handler) withPaymentLock(w http.ResponseWriter, r *http.Request, c *Context, busyPath string, fn func()) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.Int64("sale_id", c.Sale.ID))
	key := "sale:" + strconv.FormatInt(c.Sale.ID, 10) + ":payment"

	locked, err := h.locker.TryLock(ctx, key)
	switch {
	case err != nil:
		log.Warn("payment lock unavailable", zap.Error(err))
	case !locked:
		log.Info("duplicate payment submission")
		h.flashRedirect(w, r, c, msgPaymentInProgress, busyPath)
		return
	default:
		defer func() {
			if err := h.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("payment unlock failed", zap.Error(err))
			}
		}()
	}

	fn()
}

func (h *Handler) renderPayment(w http.ResponseWriter, r *http.Request, c *Context, values url.Values, errs form.Errors) {
	p := h.page(r, "Payment")
	p.Form = withoutSecrets(values)
	if errs != nil {
		p.Errors = errs
	}

	p.Data["Sale"] = c.Sale
	p.Data["Alternates"] = h.payments.Alternates()
	p.Data["AcceptsCards"] = h.payments.AcceptsCards()
	p.Data["Registered"] = !c.Guest()

	if u := c.User(); u != nil {
		profiles, err := h.payments.ListProfiles(r.Context(), u.PartyID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		p.Data["Profiles"] = profiles
	}

	h.render.HTML(w, http.StatusOK, "payment", p)
}

func isPaymentRetry(err error) bool {
	return errors.Is(err, payment.ErrNoPaymentOption) ||
		errors.Is(err, payment.ErrPaymentFailed) ||
		errors.Is(err, payment.ErrUnsupportedMethod)
}

// paymentChoice is the stored profile or alternate method picked on the
// payment step. Zero means none.
type paymentChoice struct {
	Profile   *int64 `form:"payment_profile"`
	Alternate *int64 `form:"alternate_payment_method"`
}

func paymentChoiceFromValues(v url.Values) paymentChoice {
	var c paymentChoice
	_ = form.Decode(&c, v)
	c.Profile = positive(c.Profile)
	c.Alternate = positive(c.Alternate)
	return c
}

func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func cardFromValues(v url.Values) *payment.Card {
	var c payment.Card
	_ = form.Decode(&c, v)
	c.Number = strings.ReplaceAll(c.Number, " ", "")
	return &c
}
