package address

import (
	"context"
	"errors"

	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/party"

	"go.uber.org/zap"
)

// PhoneBook hands out the party's phone contact for a number.
type PhoneBook interface {
	EnsurePhone(ctx context.Context, partyID int64, number string) (*party.ContactMechanism, error)
}

// ResolveParams describes one address submission for a sale role.
type ResolveParams struct {
	Role    Role
	PartyID int64
	// Guest sessions edit their current address in place.
	Guest bool
	// SelectedID picks a stored address; zero means the form is used.
	SelectedID int64
	// CurrentID is the address already set on the sale for Role.
	CurrentID *int64
	Form      Form
}

type Service interface {
	// Resolve turns a submission into a stored address owned by the party.
	// It returns ErrAddressNotOwned or a *form.ValidationError without
	// writing anything.
	Resolve(ctx context.Context, p ResolveParams) (*Address, error)
	Get(ctx context.Context, id int64) (*Address, error)
	ListForParty(ctx context.Context, partyID int64) ([]*Address, error)
}

type service struct {
	repo   Repository
	phones PhoneBook
}

func NewService(repo Repository, phones PhoneBook) Service {
	return &service{repo: repo, phones: phones}
}

func (s *service) Get(ctx context.Context, id int64) (*Address, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForParty(ctx context.Context, partyID int64) ([]*Address, error) {
	return s.repo.ListByParty(ctx, partyID)
}

func (s *service) Resolve(ctx context.Context, p ResolveParams) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Resolve"),
		zap.String("role", string(p.Role)),
		zap.Int64("party_id", p.PartyID),
	)

	if p.SelectedID > 0 {
		a, err := s.repo.GetByID(ctx, p.SelectedID)
		if errors.Is(err, ErrAddressNotFound) {
			log.Warn("selected address does not exist", zap.Int64("address_id", p.SelectedID))
			return nil, ErrAddressNotOwned
		}
		if err != nil {
			return nil, err
		}
		if a.PartyID != p.PartyID {
			log.Warn("selected address belongs to another party", zap.Int64("address_id", a.ID))
			return nil, ErrAddressNotOwned
		}
		return a, nil
	}

	if err := form.Validate(p.Form); err != nil {
		return nil, err
	}

	a := &Address{
		PartyID:     p.PartyID,
		Name:        p.Form.Name,
		Street:      p.Form.Street,
		Streetbis:   p.Form.Streetbis,
		Zip:         p.Form.Zip,
		City:        p.Form.City,
		Country:     p.Form.Country,
		Subdivision: p.Form.Subdivision,
	}

	if p.Form.Phone != "" {
		phone, err := s.phones.EnsurePhone(ctx, p.PartyID, p.Form.Phone)
		if err != nil {
			log.Error("failed to resolve phone contact", zap.Error(err))
			return nil, err
		}
		a.PhoneContactID = &phone.ID
		a.Phone = phone.Value
	}

	if p.Guest && p.CurrentID != nil {
		current, err := s.repo.GetByID(ctx, *p.CurrentID)
		switch {
		case err == nil && current.PartyID == p.PartyID:
			a.ID = current.ID
			if err := s.repo.Update(ctx, a); err != nil {
				log.Error("failed to update address", zap.Error(err))
				return nil, err
			}
			log.Debug("guest address updated in place", zap.Int64("address_id", a.ID))
			return a, nil
		case err != nil && !errors.Is(err, ErrAddressNotFound):
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		log.Error("failed to create address", zap.Error(err))
		return nil, err
	}
	return a, nil
}
