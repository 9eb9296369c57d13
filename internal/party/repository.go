package party

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Party, error)
	// CreateWithEmail inserts a party and its single email contact atomically.
	CreateWithEmail(ctx context.Context, p *Party, email string) error
	UpdateName(ctx context.Context, id int64, name string) error

	FindContact(ctx context.Context, partyID int64, typ, value string) (*ContactMechanism, error)
	FirstContact(ctx context.Context, partyID int64, typ string) (*ContactMechanism, error)
	CreateContact(ctx context.Context, c *ContactMechanism) error
	UpdateContactValue(ctx context.Context, id int64, value string) error

	DeleteAbandonedGuests(ctx context.Context, createdBefore time.Time) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Party, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "GetByID"),
		zap.Int64("party_id", id),
	)

	const q = `
		SELECT id, name, guest_session_id, created_at
		FROM parties
		WHERE id = $1
	`

	var (
		p       Party
		session sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &session, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	if session.Valid {
		p.GuestSession = &session.String
	}

	return &p, nil
}

func (r *repository) CreateWithEmail(ctx context.Context, p *Party, email string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "CreateWithEmail"),
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

	const insertParty = `
		INSERT INTO parties (name, guest_session_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	if err := tx.QueryRowContext(ctx, insertParty, p.Name, p.GuestSession).
		Scan(&p.ID, &p.CreatedAt); err != nil {
		log.Error("insert party failed", zap.Error(err))
		return err
	}

	const insertContact = `
		INSERT INTO contact_mechanisms (party_id, type, value)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, insertContact, p.ID, ContactEmail, email); err != nil {
		log.Error("insert email contact failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return err
	}
	committed = true

	log.Info("guest party created", zap.Int64("party_id", p.ID))
	return nil
}

func (r *repository) UpdateName(ctx context.Context, id int64, name string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "UpdateName"),
		zap.Int64("party_id", id),
	)

	const q = `UPDATE parties SET name = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, q, name, id)
	if err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPartyNotFound
	}
	return nil
}

func (r *repository) FindContact(ctx context.Context, partyID int64, typ, value string) (*ContactMechanism, error) {
	const q = `
		SELECT id, party_id, type, value
		FROM contact_mechanisms
		WHERE party_id = $1 AND type = $2 AND value = $3
	`
	return r.scanContact(ctx, "FindContact", q, partyID, typ, value)
}

func (r *repository) FirstContact(ctx context.Context, partyID int64, typ string) (*ContactMechanism, error) {
	const q = `
		SELECT id, party_id, type, value
		FROM contact_mechanisms
		WHERE party_id = $1 AND type = $2
		ORDER BY id
		LIMIT 1
	`
	return r.scanContact(ctx, "FirstContact", q, partyID, typ)
}

func (r *repository) scanContact(ctx context.Context, method, q string, args ...any) (*ContactMechanism, error) {
	var c ContactMechanism
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&c.ID, &c.PartyID, &c.Type, &c.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Party"),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	return &c, nil
}

func (r *repository) CreateContact(ctx context.Context, c *ContactMechanism) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "CreateContact"),
		zap.Int64("party_id", c.PartyID),
		zap.String("type", c.Type),
	)

	// A concurrent submission may have inserted the same value first;
	// the unique key turns that into a read of the existing row.
	const q = `
		INSERT INTO contact_mechanisms (party_id, type, value)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, q, c.PartyID, c.Type, c.Value).Scan(&c.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		existing, ferr := r.FindContact(ctx, c.PartyID, c.Type, c.Value)
		if ferr != nil {
			return ferr
		}
		c.ID = existing.ID
		return nil
	}
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) UpdateContactValue(ctx context.Context, id int64, value string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "UpdateContactValue"),
		zap.Int64("contact_id", id),
	)

	const q = `UPDATE contact_mechanisms SET value = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, q, value, id); err != nil {
		log.Error("update failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) DeleteAbandonedGuests(ctx context.Context, createdBefore time.Time) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Party"),
		zap.String("method", "DeleteAbandonedGuests"),
	)

	const q = `
		DELETE FROM parties p
		WHERE p.guest_session_id IS NOT NULL
		  AND p.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM sales s
			WHERE s.party_id = p.id
			  AND s.state NOT IN ('draft', 'quotation')
		  )
	`
	res, err := r.db.ExecContext(ctx, q, createdBefore)
	if err != nil {
		log.Error("delete failed", zap.Error(err))
		return 0, err
	}
	return res.RowsAffected()
}
