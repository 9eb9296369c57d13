package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// Create inserts the user's party and the user in one transaction.
	Create(ctx context.Context, u *User) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectUser = `
	SELECT u.id, u.email, u.password_hash, u.party_id, p.name, u.created_at
	FROM users u
	JOIN parties p ON p.id = u.party_id
`

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const q = selectUser + ` WHERE lower(u.email) = lower($1)`
	return r.scanOne(ctx, "FindByEmail", q, strings.TrimSpace(email))
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	const q = selectUser + ` WHERE u.id = $1`
	return r.scanOne(ctx, "GetByID", q, id)
}

func (r *repository) scanOne(ctx context.Context, method, q string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.PartyID, &u.Name, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "User"),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	return &u, nil
}

func (r *repository) Create(ctx context.Context, u *User) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "User"),
		zap.String("method", "Create"),
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

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO parties (name) VALUES ($1) RETURNING id`, u.Name,
	).Scan(&u.PartyID); err != nil {
		log.Error("insert party failed", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO contact_mechanisms (party_id, type, value) VALUES ($1, 'email', $2)`,
		u.PartyID, u.Email,
	); err != nil {
		log.Error("insert email contact failed", zap.Error(err))
		return err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, party_id) VALUES ($1, $2, $3) RETURNING id, created_at`,
		u.Email, u.PasswordHash, u.PartyID,
	).Scan(&u.ID, &u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return ErrEmailExists
	}
	if err != nil {
		log.Error("insert user failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return err
	}
	committed = true

	log.Info("user created", zap.Int64("user_id", u.ID), zap.Int64("party_id", u.PartyID))
	return nil
}
