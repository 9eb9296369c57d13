package cart

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	FindBySession(ctx context.Context, sessionID string) (*Cart, error)
	FindByUser(ctx context.Context, userID int64) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	SetSale(ctx context.Context, cartID, saleID int64) error
	SetUser(ctx context.Context, cartID, userID int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindBySession(ctx context.Context, sessionID string) (*Cart, error) {
	const q = `
		SELECT id, session_id, user_id, sale_id
		FROM carts
		WHERE session_id = $1
	`
	return r.scanOne(ctx, "FindBySession", q, sessionID)
}

func (r *repository) FindByUser(ctx context.Context, userID int64) (*Cart, error) {
	const q = `
		SELECT id, session_id, user_id, sale_id
		FROM carts
		WHERE user_id = $1
		ORDER BY (sale_id IS NULL), id DESC
		LIMIT 1
	`
	return r.scanOne(ctx, "FindByUser", q, userID)
}

func (r *repository) scanOne(ctx context.Context, method, q string, arg any) (*Cart, error) {
	var (
		c            Cart
		user, saleID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&c.ID, &c.SessionID, &user, &saleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Cart"),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	if user.Valid {
		c.UserID = &user.Int64
	}
	if saleID.Valid {
		c.SaleID = &saleID.Int64
	}
	return &c, nil
}

func (r *repository) Create(ctx context.Context, c *Cart) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Cart"),
		zap.String("method", "Create"),
	)

	const q = `
		INSERT INTO carts (session_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING id, sale_id
	`
	var saleID sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, c.SessionID, c.UserID).Scan(&c.ID, &saleID); err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	if saleID.Valid {
		c.SaleID = &saleID.Int64
	}
	return nil
}

func (r *repository) SetSale(ctx context.Context, cartID, saleID int64) error {
	const q = `UPDATE carts SET sale_id = $1 WHERE id = $2`
	return r.exec(ctx, "SetSale", q, saleID, cartID)
}

func (r *repository) SetUser(ctx context.Context, cartID, userID int64) error {
	const q = `UPDATE carts SET user_id = $1 WHERE id = $2`
	return r.exec(ctx, "SetUser", q, userID, cartID)
}

func (r *repository) exec(ctx context.Context, method, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("update failed",
			zap.String("repo", "Cart"),
			zap.String("method", method),
			zap.Error(err),
		)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCartNotFound
	}
	return nil
}
