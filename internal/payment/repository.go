package payment

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	CreateProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	ListProfiles(ctx context.Context, partyID int64) ([]Profile, error)

	CreateTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, id uuid.UUID, state TransactionState, reference string) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// SettleTransaction moves a pending or in-progress transaction to a final
	// state. It reports false when the transaction was already final.
	SettleTransaction(ctx context.Context, id uuid.UUID, state TransactionState, reference string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const profileColumns = `
	id, party_id, address_id, gateway_id,
	provider_customer_id, provider_payment_method,
	last_digits, expiry_month, expiry_year, created_at
`

func scanProfile(row interface{ Scan(...any) error }, p *Profile) error {
	return row.Scan(
		&p.ID, &p.PartyID, &p.AddressID, &p.GatewayID,
		&p.ProviderCustomerID, &p.ProviderPaymentMethod,
		&p.LastDigits, &p.ExpiryMonth, &p.ExpiryYear, &p.CreatedAt,
	)
}

func (r *repository) CreateProfile(ctx context.Context, p *Profile) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "CreateProfile"),
		zap.Int64("party_id", p.PartyID),
	)

	const q = `
		INSERT INTO payment_profiles (
			party_id, address_id, gateway_id,
			provider_customer_id, provider_payment_method,
			last_digits, expiry_month, expiry_year
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, q,
		p.PartyID, p.AddressID, p.GatewayID,
		p.ProviderCustomerID, p.ProviderPaymentMethod,
		p.LastDigits, p.ExpiryMonth, p.ExpiryYear,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM payment_profiles WHERE id = $1`

	var p Profile
	err := scanProfile(r.db.QueryRowContext(ctx, q, id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Payment"),
			zap.String("method", "GetProfile"),
			zap.Int64("profile_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListProfiles(ctx context.Context, partyID int64) ([]Profile, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "ListProfiles"),
		zap.Int64("party_id", partyID),
	)

	q := `SELECT ` + profileColumns + ` FROM payment_profiles WHERE party_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, partyID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := scanProfile(rows, &p); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "CreateTransaction"),
		zap.Int64("sale_id", tx.SaleID),
	)

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.State == "" {
		tx.State = StatePending
	}

	const q = `
		INSERT INTO payment_transactions (
			id, sale_id, party_id, address_id, gateway_id,
			profile_id, amount, currency, state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, q,
		tx.ID, tx.SaleID, tx.PartyID, tx.AddressID, tx.GatewayID,
		tx.ProfileID, tx.Amount, tx.Currency, tx.State,
	).Scan(&tx.CreatedAt)
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) UpdateTransaction(ctx context.Context, id uuid.UUID, state TransactionState, reference string) error {
	const q = `
		UPDATE payment_transactions
		SET state = $1, provider_reference = $2, updated_at = NOW()
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, q, state, reference, id); err != nil {
		logger.FromCtx(ctx).Error("update failed",
			zap.String("repo", "Payment"),
			zap.String("method", "UpdateTransaction"),
			zap.String("transaction_id", id.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	const q = `
		SELECT id, sale_id, party_id, address_id, gateway_id,
		       profile_id, amount, currency, state, provider_reference, created_at
		FROM payment_transactions
		WHERE id = $1
	`

	var (
		tx      Transaction
		profile sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&tx.ID, &tx.SaleID, &tx.PartyID, &tx.AddressID, &tx.GatewayID,
		&profile, &tx.Amount, &tx.Currency, &tx.State, &tx.ProviderReference, &tx.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Payment"),
			zap.String("method", "GetTransaction"),
			zap.String("transaction_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if profile.Valid {
		tx.ProfileID = &profile.Int64
	}
	return &tx, nil
}

func (r *repository) SettleTransaction(ctx context.Context, id uuid.UUID, state TransactionState, reference string) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Payment"),
		zap.String("method", "SettleTransaction"),
		zap.String("transaction_id", id.String()),
	)

	const q = `
		UPDATE payment_transactions
		SET state = $1,
		    provider_reference = COALESCE(NULLIF($2, ''), provider_reference),
		    updated_at = NOW()
		WHERE id = $3 AND state IN ('pending', 'in-progress')
	`
	res, err := r.db.ExecContext(ctx, q, state, reference, id)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
