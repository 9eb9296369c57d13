package sale

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Sale, error)
	Create(ctx context.Context, s *Sale) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	// AddLine adds quantity of the product, merging with an existing line.
	AddLine(ctx context.Context, saleID int64, p *Product, qty decimal.Decimal) error

	// SetParty moves the sale to another party and clears both addresses,
	// since they belonged to the previous owner.
	SetParty(ctx context.Context, saleID, partyID int64) error
	SetShipmentAddress(ctx context.Context, saleID, addressID int64) error
	SetInvoiceAddress(ctx context.Context, saleID, addressID int64) error
	SetComment(ctx context.Context, saleID int64, comment string) error

	// Confirm moves the sale through quotation to confirmed, stores the guest
	// access code and releases it from its cart in one transaction.
	Confirm(ctx context.Context, saleID int64, accessCode *string) error

	// ListByParty pages through the party's placed orders, drafts excluded,
	// and reports how many there are in total.
	ListByParty(ctx context.Context, partyID int64, limit, offset int) ([]Summary, int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Sale, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", "GetByID"),
		zap.Int64("sale_id", id),
	)

	const q = `
		SELECT
			s.id, s.party_id,
			s.shipment_address_id, s.invoice_address_id,
			s.state, s.currency, s.guest_access_code, s.comment, s.created_at,
			COALESCE((
				SELECT SUM(t.amount) FROM payment_transactions t
				WHERE t.sale_id = s.id AND t.state IN ('completed', 'in-progress')
			), 0)
		FROM sales s
		WHERE s.id = $1
	`

	var (
		s                 Sale
		shipment, invoice sql.NullInt64
		code              sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.PartyID,
		&shipment, &invoice,
		&s.State, &s.Currency, &code, &s.Comment, &s.CreatedAt,
		&s.PaidAmount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	if shipment.Valid {
		s.ShipmentAddressID = &shipment.Int64
	}
	if invoice.Valid {
		s.InvoiceAddressID = &invoice.Int64
	}
	if code.Valid {
		s.GuestAccessCode = &code.String
	}

	const lq = `
		SELECT id, product_id, description, quantity, unit_price
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, lq, id)
	if err != nil {
		log.Error("lines query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		s.Lines = append(s.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) Create(ctx context.Context, s *Sale) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", "Create"),
		zap.Int64("party_id", s.PartyID),
	)

	const q = `
		INSERT INTO sales (party_id, state, currency)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, q, s.PartyID, s.State, s.Currency).
		Scan(&s.ID, &s.CreatedAt); err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	const q = `SELECT id, name, list_price FROM products WHERE id = $1 AND active`

	var p Product
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.ListPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Sale"),
			zap.String("method", "GetProduct"),
			zap.Error(err),
		)
		return nil, err
	}
	return &p, nil
}

func (r *repository) AddLine(ctx context.Context, saleID int64, p *Product, qty decimal.Decimal) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", "AddLine"),
		zap.Int64("sale_id", saleID),
		zap.Int64("product_id", p.ID),
	)

	const q = `
		INSERT INTO sale_lines (sale_id, product_id, description, quantity, unit_price)
		SELECT $1, $2, $3, $4, $5
		FROM sales WHERE id = $1 AND state = 'draft'
		ON CONFLICT (sale_id, product_id)
		DO UPDATE SET quantity = sale_lines.quantity + EXCLUDED.quantity
	`
	res, err := r.db.ExecContext(ctx, q, saleID, p.ID, p.Name, qty, p.ListPrice)
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSaleLocked
	}
	return nil
}

// editable limits checkout writes to sales that are not yet confirmed.
const editable = ` AND state IN ('draft', 'quotation')`

func (r *repository) SetParty(ctx context.Context, saleID, partyID int64) error {
	const q = `
		UPDATE sales
		SET party_id = $1, shipment_address_id = NULL, invoice_address_id = NULL
		WHERE id = $2` + editable
	return r.update(ctx, "SetParty", saleID, q, partyID, saleID)
}

func (r *repository) SetShipmentAddress(ctx context.Context, saleID, addressID int64) error {
	const q = `UPDATE sales SET shipment_address_id = $1 WHERE id = $2` + editable
	return r.update(ctx, "SetShipmentAddress", saleID, q, addressID, saleID)
}

func (r *repository) SetInvoiceAddress(ctx context.Context, saleID, addressID int64) error {
	const q = `UPDATE sales SET invoice_address_id = $1 WHERE id = $2` + editable
	return r.update(ctx, "SetInvoiceAddress", saleID, q, addressID, saleID)
}

func (r *repository) SetComment(ctx context.Context, saleID int64, comment string) error {
	const q = `
		UPDATE sales SET comment = $1
		WHERE id = $2 AND state IN ('confirmed', 'processing')
	`
	return r.update(ctx, "SetComment", saleID, q, comment, saleID)
}

func (r *repository) update(ctx context.Context, method string, saleID int64, q string, args ...any) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", method),
		zap.Int64("sale_id", saleID),
	)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Warn("sale not in a writable state")
		return ErrSaleLocked
	}
	return nil
}

func (r *repository) Confirm(ctx context.Context, saleID int64, accessCode *string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", "Confirm"),
		zap.Int64("sale_id", saleID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// 1. Quote
	res, err := tx.ExecContext(ctx, `
		UPDATE sales SET state = 'quotation'
		WHERE id = $1 AND state IN ('draft', 'quotation')
	`, saleID)
	if err != nil {
		log.Error("quote failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSaleLocked
	}

	// 2. Confirm, issuing the guest access code if any
	if _, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET state = 'confirmed',
		    guest_access_code = COALESCE($2, guest_access_code),
		    confirmed_at = NOW()
		WHERE id = $1 AND state = 'quotation'
	`, saleID, accessCode); err != nil {
		log.Error("confirm failed", zap.Error(err))
		return err
	}

	// 3. Detach from cart
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET sale_id = NULL WHERE sale_id = $1`, saleID,
	); err != nil {
		log.Error("cart detach failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return err
	}
	committed = true

	log.Info("sale confirmed")
	return nil
}

func (r *repository) ListByParty(ctx context.Context, partyID int64, limit, offset int) ([]Summary, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Sale"),
		zap.String("method", "ListByParty"),
		zap.Int64("party_id", partyID),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	var total int64
	const cq = `SELECT COUNT(*) FROM sales WHERE party_id = $1 AND state <> 'draft'`
	if err := r.db.QueryRowContext(ctx, cq, partyID).Scan(&total); err != nil {
		log.Error("count failed", zap.Error(err))
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	const q = `
		SELECT
			s.id, s.state, s.currency, s.created_at,
			COALESCE((
				SELECT SUM(l.quantity * l.unit_price) FROM sale_lines l
				WHERE l.sale_id = s.id
			), 0)
		FROM sales s
		WHERE s.party_id = $1 AND s.state <> 'draft'
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, q, partyID, limit, offset)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var o Summary
		if err := rows.Scan(&o.ID, &o.State, &o.Currency, &o.CreatedAt, &o.Total); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
