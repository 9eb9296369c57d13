package user

import (
	"context"
	"errors"
	"strings"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	// Authenticate checks email and password. Any failure collapses into
	// ErrInvalidCredentials so callers cannot tell which part was wrong.
	Authenticate(ctx context.Context, email, password string) (*User, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	Get(ctx context.Context, id int64) (*User, error)
	Register(ctx context.Context, name, email, password string) (*User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "User"),
		zap.String("method", "Authenticate"),
	)

	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		CheckPasswordHash(password, string(dummyHash))
		log.Info("login rejected")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user", zap.Error(err))
		return nil, err
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		log.Info("login rejected", zap.Int64("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	log.Info("login accepted", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if name = strings.TrimSpace(name); name == "" {
		name = email
	}

	u := &User{Name: name, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
