package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"storefront-be/internal/address"
	"storefront-be/internal/logger"
	"storefront-be/internal/notify"
	"storefront-be/internal/party"
	"storefront-be/internal/sale"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Confirmer turns a paid cart into a confirmed order.
type Confirmer struct {
	sales     sale.Service
	parties   party.Service
	addresses address.Service
	mailer    notify.Mailer
	mailFrom  string
	newCode   func() string
}

func NewConfirmer(sales sale.Service, parties party.Service, addresses address.Service, mailer notify.Mailer, mailFrom string) *Confirmer {
	return &Confirmer{
		sales:     sales,
		parties:   parties,
		addresses: addresses,
		mailer:    mailer,
		mailFrom:  mailFrom,
		newCode:   uuid.NewString,
	}
}

// Confirm confirms the cart's sale and detaches it from the cart. A
// failure of the state transition is returned as is; renaming the guest
// and mailing the buyer only log.
func (cf *Confirmer) Confirm(ctx context.Context, c *Context) (string, error) {
	s := c.Sale
	log := logger.FromCtx(ctx).With(
		zap.String("component", "checkout"),
		zap.String("method", "Confirm"),
		zap.Int64("sale_id", s.ID),
	)

	if s.ShipmentAddressID == nil || s.InvoiceAddressID == nil || s.PartyID == c.Policy.GuestPartyID {
		return "", ErrSaleIncomplete
	}

	var code *string
	if c.Guest() {
		v := cf.newCode()
		code = &v
	}

	if err := cf.sales.Confirm(ctx, s.ID, code); err != nil {
		log.Error("sale confirmation failed", zap.Error(err))
		return "", fmt.Errorf("confirm sale %d: %w", s.ID, err)
	}
	s.State = sale.StateConfirmed
	if code != nil {
		s.GuestAccessCode = code
	}
	c.Cart.SaleID = nil
	log.Info("sale confirmed", zap.Bool("guest", c.Guest()))

	orderURL := OrderURL(s.ID, code, true)

	invoice, err := cf.addresses.Get(ctx, *s.InvoiceAddressID)
	if err != nil {
		log.Warn("invoice address not readable", zap.Error(err))
	}
	if c.Guest() && invoice != nil && invoice.Name != "" {
		if err := cf.parties.Rename(ctx, s.PartyID, invoice.Name); err != nil {
			log.Warn("failed to rename guest party", zap.Error(err))
		}
	}

	cf.notify(ctx, log, c, invoice, orderURL)
	return orderURL, nil
}

func (cf *Confirmer) notify(ctx context.Context, log *zap.Logger, c *Context, invoice *address.Address, orderURL string) {
	var email, name string
	if u := c.User(); u != nil {
		email, name = u.Email, u.Name
	} else {
		e, err := cf.parties.Email(ctx, c.Sale.PartyID)
		if err != nil {
			log.Warn("no email for confirmation", zap.Error(err))
			return
		}
		email = e
	}
	if invoice != nil {
		name = invoice.Name
	}

	msg, err := notify.RenderConfirmation(cf.mailFrom, notify.Confirmation{
		Name:     name,
		Email:    email,
		OrderURL: orderURL,
		Sale:     c.Sale,
	})
	if err != nil {
		log.Error("failed to render confirmation", zap.Error(err))
		return
	}
	if err := cf.mailer.QueueMail(ctx, msg); err != nil {
		log.Warn("failed to queue confirmation", zap.Error(err))
	}
}

// OrderURL is the order page, carrying the access code guests need.
func OrderURL(saleID int64, accessCode *string, confirmation bool) string {
	q := url.Values{}
	if accessCode != nil && *accessCode != "" {
		q.Set("access_code", *accessCode)
	}
	if confirmation {
		q.Set("confirmation", "1")
	}
	u := "/order/" + strconv.FormatInt(saleID, 10)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
