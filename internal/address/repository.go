package address

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Address, error)
	ListByParty(ctx context.Context, partyID int64) ([]*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectAddress = `
	SELECT
		a.id, a.party_id,
		a.name, a.street, a.streetbis,
		a.zip, a.city, a.country, a.subdivision,
		a.phone_contact_id, COALESCE(c.value, '')
	FROM addresses a
	LEFT JOIN contact_mechanisms c ON c.id = a.phone_contact_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*Address, error) {
	var (
		a     Address
		phone sql.NullInt64
	)
	if err := row.Scan(
		&a.ID, &a.PartyID,
		&a.Name, &a.Street, &a.Streetbis,
		&a.Zip, &a.City, &a.Country, &a.Subdivision,
		&phone, &a.Phone,
	); err != nil {
		return nil, err
	}
	if phone.Valid {
		a.PhoneContactID = &phone.Int64
	}
	return &a, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByID"),
		zap.Int64("address_id", id),
	)

	const q = selectAddress + ` WHERE a.id = $1`

	a, err := scanAddress(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (r *repository) ListByParty(ctx context.Context, partyID int64) ([]*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "ListByParty"),
		zap.Int64("party_id", partyID),
	)

	const q = selectAddress + ` WHERE a.party_id = $1 ORDER BY a.id`

	rows, err := r.db.QueryContext(ctx, q, partyID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r *repository) Create(ctx context.Context, a *Address) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Create"),
		zap.Int64("party_id", a.PartyID),
	)

	const q = `
		INSERT INTO addresses (
			party_id, name, street, streetbis,
			zip, city, country, subdivision, phone_contact_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, q,
		a.PartyID, a.Name, a.Street, a.Streetbis,
		a.Zip, a.City, a.Country, a.Subdivision, a.PhoneContactID,
	).Scan(&a.ID); err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}

	log.Info("address created", zap.Int64("address_id", a.ID))
	return nil
}

func (r *repository) Update(ctx context.Context, a *Address) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Update"),
		zap.Int64("address_id", a.ID),
	)

	const q = `
		UPDATE addresses SET
			name = $1, street = $2, streetbis = $3,
			zip = $4, city = $5, country = $6, subdivision = $7,
			phone_contact_id = $8
		WHERE id = $9 AND party_id = $10
	`
	res, err := r.db.ExecContext(ctx, q,
		a.Name, a.Street, a.Streetbis,
		a.Zip, a.City, a.Country, a.Subdivision,
		a.PhoneContactID, a.ID, a.PartyID,
	)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAddressNotFound
	}
	return nil
}
