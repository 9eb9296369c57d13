package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/sale"

	"go.uber.org/zap"
)

// DispatchParams is the submitted payment form plus who is paying.
type DispatchParams struct {
	Sale    *sale.Sale
	PartyID int64
	Guest   bool
	Owner   CardOwner

	// InvoiceAddressID is the sale's current invoice address. A chosen
	// profile replaces it with the profile's own address.
	InvoiceAddressID *int64

	ProfileID         *int64
	AlternateMethodID *int64
	Card              *Card
}

type Result struct {
	Transaction      *Transaction
	RedirectURL      string
	InvoiceAddressID int64
}

type Service interface {
	// Dispatch picks the payment option from the form in priority order
	// (saved profile, alternate method, card) and captures the amount due.
	Dispatch(ctx context.Context, p DispatchParams) (*Result, error)

	// Settle applies a provider notification received on the webhook of
	// gatewayID to the transaction it names.
	Settle(ctx context.Context, gatewayID string, header http.Header, body []byte) (*Transaction, error)

	ListProfiles(ctx context.Context, partyID int64) ([]Profile, error)
	Alternates() []AlternateMethod
	AcceptsCards() bool
}

type service struct {
	repo     Repository
	gateways *Registry
	catalog  *Catalog
}

func NewService(repo Repository, gateways *Registry, catalog *Catalog) Service {
	return &service{repo: repo, gateways: gateways, catalog: catalog}
}

func (s *service) ListProfiles(ctx context.Context, partyID int64) ([]Profile, error) {
	return s.repo.ListProfiles(ctx, partyID)
}

func (s *service) Alternates() []AlternateMethod {
	return s.catalog.AlternateMethods
}

func (s *service) AcceptsCards() bool {
	return s.catalog.AcceptsCards()
}

func (s *service) Dispatch(ctx context.Context, p DispatchParams) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Payment"),
		zap.String("method", "Dispatch"),
		zap.Int64("sale_id", p.Sale.ID),
	)

	switch {
	case p.ProfileID != nil:
		return s.payWithProfile(ctx, log, p)
	case p.AlternateMethodID != nil:
		return s.payWithAlternate(ctx, log, p)
	case s.catalog.AcceptsCards() && p.Card != nil && !p.Card.IsBlank():
		return s.payWithCard(ctx, log, p)
	}

	log.Info("no payment option submitted")
	return nil, ErrNoPaymentOption
}

func (s *service) payWithProfile(ctx context.Context, log *zap.Logger, p DispatchParams) (*Result, error) {
	if p.Guest {
		return nil, form.Invalid("payment_profile", form.MsgInvalidChoice)
	}

	profile, err := s.repo.GetProfile(ctx, *p.ProfileID)
	if errors.Is(err, ErrProfileNotFound) {
		return nil, form.Invalid("payment_profile", form.MsgInvalidChoice)
	}
	if err != nil {
		return nil, err
	}
	if profile.PartyID != p.PartyID {
		log.Warn("payment profile not owned by party",
			zap.Int64("profile_id", profile.ID),
			zap.Int64("party_id", p.PartyID),
		)
		return nil, form.Invalid("payment_profile", form.MsgInvalidChoice)
	}

	tx := s.newTransaction(p, profile.GatewayID, profile.AddressID)
	tx.ProfileID = &profile.ID
	return s.capture(ctx, log, tx, Source{Profile: profile})
}

func (s *service) payWithAlternate(ctx context.Context, log *zap.Logger, p DispatchParams) (*Result, error) {
	method, ok := s.catalog.Alternate(*p.AlternateMethodID)
	if !ok {
		return nil, form.Invalid("alternate_payment_method", form.MsgInvalidChoice)
	}
	if p.InvoiceAddressID == nil {
		return nil, ErrNoPaymentOption
	}

	log.Debug("paying with alternate method", zap.String("name", method.Name))
	tx := s.newTransaction(p, method.GatewayID, *p.InvoiceAddressID)
	return s.capture(ctx, log, tx, Source{})
}

func (s *service) payWithCard(ctx context.Context, log *zap.Logger, p DispatchParams) (*Result, error) {
	if err := form.Validate(*p.Card); err != nil {
		return nil, err
	}
	if p.InvoiceAddressID == nil {
		return nil, ErrNoPaymentOption
	}

	gatewayID := s.catalog.CardGateway
	tx := s.newTransaction(p, gatewayID, *p.InvoiceAddressID)
	src := Source{Card: p.Card}

	if p.Card.AddToProfiles && !p.Guest {
		profile, err := s.saveCard(ctx, log, p, gatewayID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			tx.ProfileID = &profile.ID
			src = Source{Profile: profile}
		}
	}

	return s.capture(ctx, log, tx, src)
}

// saveCard stores the card as a profile when the card gateway can vault
// cards. It returns nil without error when it cannot.
func (s *service) saveCard(ctx context.Context, log *zap.Logger, p DispatchParams, gatewayID string) (*Profile, error) {
	g, err := s.gateways.Lookup(gatewayID)
	if err != nil {
		return nil, err
	}
	vault, ok := g.(CardVault)
	if !ok {
		log.Debug("card gateway cannot store cards", zap.String("gateway", gatewayID))
		return nil, nil
	}

	profile, err := vault.StoreCard(ctx, p.Owner, *p.Card)
	if err != nil {
		log.Warn("storing card failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	profile.PartyID = p.PartyID
	profile.AddressID = *p.InvoiceAddressID
	profile.GatewayID = gatewayID

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	log.Info("payment profile saved", zap.Int64("profile_id", profile.ID))
	return profile, nil
}

func (s *service) newTransaction(p DispatchParams, gatewayID string, addressID int64) *Transaction {
	return &Transaction{
		SaleID:    p.Sale.ID,
		PartyID:   p.PartyID,
		AddressID: addressID,
		GatewayID: gatewayID,
		Amount:    p.Sale.AmountDue(),
		Currency:  p.Sale.Currency,
		State:     StatePending,
	}
}

func (s *service) capture(ctx context.Context, log *zap.Logger, tx *Transaction, src Source) (*Result, error) {
	g, err := s.gateways.Lookup(tx.GatewayID)
	if err != nil {
		log.Error("gateway not registered", zap.String("gateway", tx.GatewayID))
		return nil, err
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	log = log.With(zap.String("transaction_id", tx.ID.String()))

	out, err := g.Capture(ctx, tx, src)
	if err != nil || out.State == StateFailed {
		ref := ""
		if out != nil {
			ref = out.ProviderReference
		}
		if uerr := s.repo.UpdateTransaction(ctx, tx.ID, StateFailed, ref); uerr != nil {
			log.Error("failed to mark transaction failed", zap.Error(uerr))
		}
		log.Warn("capture failed", zap.Error(err))
		return nil, ErrPaymentFailed
	}

	if err := s.repo.UpdateTransaction(ctx, tx.ID, out.State, out.ProviderReference); err != nil {
		return nil, err
	}
	tx.State = out.State
	tx.ProviderReference = out.ProviderReference

	log.Info("payment captured",
		zap.String("gateway", tx.GatewayID),
		zap.String("state", string(tx.State)),
		zap.String("amount", tx.Amount.StringFixed(2)),
	)
	return &Result{Transaction: tx, RedirectURL: out.RedirectURL, InvoiceAddressID: tx.AddressID}, nil
}

func (s *service) Settle(ctx context.Context, gatewayID string, header http.Header, body []byte) (*Transaction, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Payment"),
		zap.String("method", "Settle"),
		zap.String("gateway", gatewayID),
	)

	g, err := s.gateways.Lookup(gatewayID)
	if err != nil {
		return nil, err
	}
	notifier, ok := g.(Notifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s takes no notifications", ErrUnsupportedMethod, gatewayID)
	}

	n, err := notifier.ParseNotice(header, body)
	if err != nil {
		if !errors.Is(err, ErrNoticeIgnored) {
			log.Warn("rejected payment notification", zap.Error(err))
		}
		return nil, err
	}
	log = log.With(zap.String("transaction_id", n.TransactionID.String()))

	tx, err := s.repo.GetTransaction(ctx, n.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.GatewayID != gatewayID {
		log.Warn("notification for a transaction of another gateway", zap.String("owner", tx.GatewayID))
		return nil, ErrTransactionNotFound
	}

	state := n.State
	if state == StateCompleted && n.Amount != nil && !n.Amount.Equal(tx.Amount) {
		log.Error("collected amount does not match transaction",
			zap.String("expected", tx.Amount.StringFixed(2)),
			zap.String("collected", n.Amount.StringFixed(2)),
		)
		state = StateFailed
	}

	if !tx.State.IsFinal() {
		settled, err := s.repo.SettleTransaction(ctx, tx.ID, state, n.ProviderReference)
		if err != nil {
			return nil, err
		}
		if settled {
			tx.State = state
			if n.ProviderReference != "" {
				tx.ProviderReference = n.ProviderReference
			}
			log.Info("payment settled", zap.String("state", string(state)), zap.Int64("sale_id", tx.SaleID))
			return tx, nil
		}
		// another delivery settled it first
		if tx, err = s.repo.GetTransaction(ctx, tx.ID); err != nil {
			return nil, err
		}
	}

	if tx.State != state {
		log.Warn("transaction already settled",
			zap.String("state", string(tx.State)),
			zap.String("notified", string(state)),
		)
		return nil, ErrTransactionSettled
	}
	log.Debug("duplicate notification")
	return tx, nil
}
