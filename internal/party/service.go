package party

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, id int64) (*Party, error)
	// CreateGuest provisions a party for an anonymous checkout, tagged with
	// the browser session and named after the email.
	CreateGuest(ctx context.Context, sessionID, email string) (*Party, error)
	// UpdateGuest renames a guest party and rewrites its email contact.
	UpdateGuest(ctx context.Context, partyID int64, email string) error
	Rename(ctx context.Context, partyID int64, name string) error
	Email(ctx context.Context, partyID int64) (string, error)
	// EnsurePhone returns the party's phone contact with the given number,
	// creating it only when absent.
	EnsurePhone(ctx context.Context, partyID int64, number string) (*ContactMechanism, error)
	ReapGuests(ctx context.Context, olderThan time.Duration) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Get(ctx context.Context, id int64) (*Party, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateGuest(ctx context.Context, sessionID, email string) (*Party, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmptyEmail
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Party"),
		zap.String("method", "CreateGuest"),
	)

	p := &Party{Name: email, GuestSession: &sessionID}
	if err := s.repo.CreateWithEmail(ctx, p, email); err != nil {
		log.Error("failed to create guest party", zap.Error(err))
		return nil, err
	}

	return p, nil
}

func (s *service) UpdateGuest(ctx context.Context, partyID int64, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Party"),
		zap.String("method", "UpdateGuest"),
		zap.Int64("party_id", partyID),
	)

	if err := s.repo.UpdateName(ctx, partyID, email); err != nil {
		log.Error("failed to rename guest", zap.Error(err))
		return err
	}

	current, err := s.repo.FirstContact(ctx, partyID, ContactEmail)
	switch {
	case errors.Is(err, ErrContactNotFound):
		return s.repo.CreateContact(ctx, &ContactMechanism{
			PartyID: partyID, Type: ContactEmail, Value: email,
		})
	case err != nil:
		return err
	case current.Value == email:
		return nil
	}

	log.Debug("updating guest email")
	return s.repo.UpdateContactValue(ctx, current.ID, email)
}

func (s *service) Rename(ctx context.Context, partyID int64, name string) error {
	return s.repo.UpdateName(ctx, partyID, strings.TrimSpace(name))
}

func (s *service) Email(ctx context.Context, partyID int64) (string, error) {
	c, err := s.repo.FirstContact(ctx, partyID, ContactEmail)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func (s *service) EnsurePhone(ctx context.Context, partyID int64, number string) (*ContactMechanism, error) {
	number = strings.TrimSpace(number)

	existing, err := s.repo.FindContact(ctx, partyID, ContactPhone, number)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrContactNotFound) {
		return nil, err
	}

	c := &ContactMechanism{PartyID: partyID, Type: ContactPhone, Value: number}
	if err := s.repo.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ReapGuests(ctx context.Context, olderThan time.Duration) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Party"),
		zap.String("method", "ReapGuests"),
		zap.Duration("older_than", olderThan),
	)

	n, err := s.repo.DeleteAbandonedGuests(ctx, s.now().Add(-olderThan))
	if err != nil {
		log.Error("failed to reap guest parties", zap.Error(err))
		return 0, err
	}

	log.Info("guest parties reaped", zap.Int64("deleted", n))
	return n, nil
}
