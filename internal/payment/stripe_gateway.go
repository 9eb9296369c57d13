package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// stripeBackend is the slice of the Stripe API the gateway calls.
type stripeBackend interface {
	NewCustomer(params *stripe.CustomerParams) (*stripe.Customer, error)
	NewPaymentMethod(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	AttachPaymentMethod(id string, params *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error)
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClient struct {
	api *client.API
}

func (c stripeClient) NewCustomer(p *stripe.CustomerParams) (*stripe.Customer, error) {
	return c.api.Customers.New(p)
}

func (c stripeClient) NewPaymentMethod(p *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	return c.api.PaymentMethods.New(p)
}

func (c stripeClient) AttachPaymentMethod(id string, p *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error) {
	return c.api.PaymentMethods.Attach(id, p)
}

func (c stripeClient) NewPaymentIntent(p *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.New(p)
}

// StripeGateway captures card payments through Stripe payment intents.
// Intents that are still processing settle through the webhook.
type StripeGateway struct {
	backend       stripeBackend
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	if secretKey == "" {
		logger.L().Warn("Stripe secret key is empty")
	}
	return &StripeGateway{
		backend:       stripeClient{api: client.New(secretKey, nil)},
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) Capture(ctx context.Context, tx *Transaction, src Source) (*Outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("gateway", "stripe"),
		zap.String("transaction_id", tx.ID.String()),
	)

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits(tx.Amount)),
		Currency:           stripe.String(strings.ToLower(tx.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("transaction_id", tx.ID.String())
	params.AddMetadata("sale_id", strconv.FormatInt(tx.SaleID, 10))

	switch {
	case src.Profile != nil:
		params.Customer = stripe.String(src.Profile.ProviderCustomerID)
		params.PaymentMethod = stripe.String(src.Profile.ProviderPaymentMethod)
	case src.Card != nil:
		pm, err := g.backend.NewPaymentMethod(cardParams(ctx, *src.Card))
		if err != nil {
			log.Warn("card tokenization failed", zap.Error(err))
			return nil, fmt.Errorf("tokenize card: %w", err)
		}
		params.PaymentMethod = stripe.String(pm.ID)
	default:
		return nil, errors.New("stripe capture needs a card or a profile")
	}

	intent, err := g.backend.NewPaymentIntent(params)
	if err != nil {
		log.Warn("payment intent failed", zap.Error(err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	out := &Outcome{ProviderReference: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		out.State = StateCompleted
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		out.State = StateInProgress
	default:
		log.Info("payment intent not settled", zap.String("status", string(intent.Status)))
		out.State = StateFailed
	}
	return out, nil
}

func (g *StripeGateway) StoreCard(ctx context.Context, owner CardOwner, card Card) (*Profile, error) {
	log := logger.FromCtx(ctx).With(zap.String("gateway", "stripe"), zap.String("method", "StoreCard"))

	custParams := &stripe.CustomerParams{
		Email: stripe.String(owner.Email),
		Name:  stripe.String(owner.Name),
	}
	custParams.Context = ctx
	cust, err := g.backend.NewCustomer(custParams)
	if err != nil {
		log.Warn("customer creation failed", zap.Error(err))
		return nil, fmt.Errorf("create customer: %w", err)
	}

	pm, err := g.backend.NewPaymentMethod(cardParams(ctx, card))
	if err != nil {
		return nil, fmt.Errorf("tokenize card: %w", err)
	}

	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(cust.ID)}
	attach.Context = ctx
	pm, err = g.backend.AttachPaymentMethod(pm.ID, attach)
	if err != nil {
		return nil, fmt.Errorf("attach card: %w", err)
	}

	p := &Profile{
		ProviderCustomerID:    cust.ID,
		ProviderPaymentMethod: pm.ID,
		LastDigits:            card.LastDigits(),
		ExpiryMonth:           card.ExpiryMonth,
		ExpiryYear:            card.ExpiryYear,
	}
	if pm.Card != nil {
		p.LastDigits = pm.Card.Last4
	}
	return p, nil
}

func cardParams(ctx context.Context, c Card) *stripe.PaymentMethodParams {
	month, _ := strconv.ParseInt(c.ExpiryMonth, 10, 64)
	year, _ := strconv.ParseInt(c.ExpiryYear, 10, 64)

	p := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(c.Number),
			ExpMonth: stripe.Int64(month),
			ExpYear:  stripe.Int64(year),
			CVC:      stripe.String(c.CVV),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(c.Owner),
		},
	}
	p.Context = ctx
	return p
}

// ParseNotice verifies the Stripe-Signature header and maps payment intent
// events onto the transaction named in the intent metadata.
func (g *StripeGateway) ParseNotice(header http.Header, body []byte) (*Notice, error) {
	if g.webhookSecret == "" {
		return nil, ErrInvalidSignature
	}
	if err := webhook.ValidatePayload(body, header.Get("Stripe-Signature"), g.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil || event.Data == nil {
		return nil, fmt.Errorf("%w: malformed event", ErrInvalidNotice)
	}

	var state TransactionState
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		state = StateCompleted
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		state = StateFailed
	default:
		return nil, fmt.Errorf("%w: event %s", ErrNoticeIgnored, event.Type)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	id, err := uuid.Parse(intent.Metadata["transaction_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: intent %s has no transaction", ErrInvalidNotice, intent.ID)
	}

	n := &Notice{TransactionID: id, State: state, ProviderReference: intent.ID}
	if state == StateCompleted {
		amount := decimal.New(intent.Amount, -2)
		n.Amount = &amount
	}
	return n, nil
}

// minorUnits converts an amount to cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
