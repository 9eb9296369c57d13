package sale

import (
	"context"
	"strings"

	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, id int64) (*Sale, error)
	// Create opens a draft sale owned by partyID in the store currency.
	Create(ctx context.Context, partyID int64) (*Sale, error)
	AddProduct(ctx context.Context, saleID, productID int64, qty decimal.Decimal) error

	SetParty(ctx context.Context, saleID, partyID int64) error
	SetShipmentAddress(ctx context.Context, saleID, addressID int64) error
	SetInvoiceAddress(ctx context.Context, saleID, addressID int64) error

	AddComment(ctx context.Context, s *Sale, comment string) error
	Confirm(ctx context.Context, saleID int64, accessCode *string) error

	// ListOrders returns the given page of the party's order history.
	// Pages start at 1; anything lower reads the first page.
	ListOrders(ctx context.Context, partyID int64, page int) (*OrderPage, error)
}

type service struct {
	repo     Repository
	currency string
}

func NewService(repo Repository, currency string) Service {
	return &service{repo: repo, currency: currency}
}

func (s *service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, partyID int64) (*Sale, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Sale"),
		zap.String("method", "Create"),
		zap.Int64("party_id", partyID),
	)

	sl := &Sale{PartyID: partyID, State: StateDraft, Currency: s.currency}
	if err := s.repo.Create(ctx, sl); err != nil {
		log.Error("failed to create sale", zap.Error(err))
		return nil, err
	}

	log.Info("sale created", zap.Int64("sale_id", sl.ID))
	return sl, nil
}

func (s *service) AddProduct(ctx context.Context, saleID, productID int64, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.repo.AddLine(ctx, saleID, p, qty)
}

func (s *service) SetParty(ctx context.Context, saleID, partyID int64) error {
	logger.FromCtx(ctx).Debug("reassigning sale",
		zap.Int64("sale_id", saleID),
		zap.Int64("party_id", partyID),
	)
	return s.repo.SetParty(ctx, saleID, partyID)
}

func (s *service) SetShipmentAddress(ctx context.Context, saleID, addressID int64) error {
	return s.repo.SetShipmentAddress(ctx, saleID, addressID)
}

func (s *service) SetInvoiceAddress(ctx context.Context, saleID, addressID int64) error {
	return s.repo.SetInvoiceAddress(ctx, saleID, addressID)
}

func (s *service) AddComment(ctx context.Context, sl *Sale, comment string) error {
	if !sl.CanComment() {
		return ErrCommentNotAllowed
	}
	return s.repo.SetComment(ctx, sl.ID, strings.TrimSpace(comment))
}

func (s *service) Confirm(ctx context.Context, saleID int64, accessCode *string) error {
	return s.repo.Confirm(ctx, saleID, accessCode)
}

func (s *service) ListOrders(ctx context.Context, partyID int64, page int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Sale"),
		zap.String("method", "ListOrders"),
		zap.Int64("party_id", partyID),
		zap.Int("page", page),
	)

	orders, total, err := s.repo.ListByParty(ctx, partyID, OrdersPerPage, (page-1)*OrdersPerPage)
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, err
	}

	log.Debug("orders listed", zap.Int("count", len(orders)), zap.Int64("total", total))
	return &OrderPage{Orders: orders, Page: page, Total: total}, nil
}
