package cart

import (
	"context"
	"errors"

	"storefront-be/internal/logger"
	"storefront-be/internal/sale"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// Open returns the visitor's cart, creating it on first use. A known
	// user's cart wins over the session's.
	Open(ctx context.Context, sessionID string, userID *int64) (*Cart, error)
	// AddProduct adds to the cart's sale, opening one for partyID when the
	// cart has none.
	AddProduct(ctx context.Context, c *Cart, partyID, productID int64, qty decimal.Decimal) error
	AttachUser(ctx context.Context, c *Cart, userID int64) error
}

type service struct {
	repo  Repository
	sales sale.Service
}

func NewService(repo Repository, sales sale.Service) Service {
	return &service{repo: repo, sales: sales}
}

func (s *service) Open(ctx context.Context, sessionID string, userID *int64) (*Cart, error) {
	if userID != nil {
		c, err := s.repo.FindByUser(ctx, *userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCartNotFound) {
			return nil, err
		}
	}

	c, err := s.repo.FindBySession(ctx, sessionID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	c = &Cart{SessionID: sessionID, UserID: userID}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) AddProduct(ctx context.Context, c *Cart, partyID, productID int64, qty decimal.Decimal) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Cart"),
		zap.String("method", "AddProduct"),
		zap.Int64("cart_id", c.ID),
		zap.Int64("product_id", productID),
	)

	if c.SaleID == nil {
		sl, err := s.sales.Create(ctx, partyID)
		if err != nil {
			return err
		}
		if err := s.repo.SetSale(ctx, c.ID, sl.ID); err != nil {
			log.Error("failed to attach sale", zap.Error(err))
			return err
		}
		c.SaleID = &sl.ID
	}

	if err := s.sales.AddProduct(ctx, *c.SaleID, productID, qty); err != nil {
		log.Warn("failed to add product", zap.Error(err))
		return err
	}

	log.Info("product added", zap.String("quantity", qty.String()))
	return nil
}

func (s *service) AttachUser(ctx context.Context, c *Cart, userID int64) error {
	if c.UserID != nil && *c.UserID == userID {
		return nil
	}
	if err := s.repo.SetUser(ctx, c.ID, userID); err != nil {
		return err
	}
	c.UserID = &userID
	return nil
}
