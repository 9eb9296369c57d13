package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"storefront-be/internal/cart"
	"storefront-be/internal/form"
	"storefront-be/internal/logger"
	"storefront-be/internal/party"
	"storefront-be/internal/sale"
	"storefront-be/internal/user"

	"go.uber.org/zap"
)

const (
	ModeGuest   = "guest"
	ModeAccount = "account"
)

type SignInForm struct {
	Mode     string `form:"checkout_mode" validate:"required,oneof=guest account"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password"`
}

func SignInFormFromValues(v url.Values) SignInForm {
	var f SignInForm
	_ = form.Decode(&f, v)
	f.Email = strings.ToLower(f.Email)
	f.Password = v.Get("password")
	return f
}

func (f SignInForm) Validate() error {
	errs := form.Errors{}
	if err := form.Validate(f); err != nil {
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		errs = verr.Fields
	}
	if f.Mode == ModeAccount && f.Password == "" {
		errs.Add("password", form.MsgRequired)
	}
	if len(errs) > 0 {
		return &form.ValidationError{Fields: errs}
	}
	return nil
}

// Identities settles who owns the sale being checked out.
type Identities struct {
	users   user.Service
	parties party.Service
	sales   sale.Service
	carts   cart.Service
}

func NewIdentities(users user.Service, parties party.Service, sales sale.Service, carts cart.Service) *Identities {
	return &Identities{users: users, parties: parties, sales: sales, carts: carts}
}

// SignIn applies a sign-in form to c. Credential failures come back as
// user.ErrInvalidCredentials with no hint of which part was wrong.
func (ids *Identities) SignIn(ctx context.Context, c *Context, f SignInForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Mode == ModeAccount {
		return ids.signInAccount(ctx, c, f.Email, f.Password)
	}
	if !c.Guest() {
		return ErrGuestModeSignedIn
	}
	return ids.SignInGuest(ctx, c, f.Email)
}

func (ids *Identities) signInAccount(ctx context.Context, c *Context, email, password string) error {
	log := logger.FromCtx(ctx).With(zap.String("component", "checkout"), zap.String("method", "SignInAccount"))

	u, err := ids.users.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}

	c.Session.Login(u.ID, c.Policy.now())
	c.Identity = RegisteredCheckout{User: u}

	if err := ids.carts.AttachUser(ctx, c.Cart, u.ID); err != nil {
		log.Error("failed to attach cart to user", zap.Error(err))
		return err
	}
	return ids.Rehome(ctx, c)
}

// SignInGuest makes the sale belong to a guest party of this session with
// email as its single email contact. Re-entering an email on the same
// session edits that party instead of creating another.
func (ids *Identities) SignInGuest(ctx context.Context, c *Context, email string) error {
	log := logger.FromCtx(ctx).With(zap.String("component", "checkout"), zap.String("method", "SignInGuest"))

	registered, err := ids.users.EmailRegistered(ctx, email)
	if err != nil {
		return err
	}
	if registered && !c.Policy.AllowGuestWithRegisteredEmail {
		log.Info("guest email belongs to an account")
		return ErrEmailInUse
	}

	if c.Party != nil && c.Party.IsGuestOf(c.Session.ID) {
		if err := ids.parties.UpdateGuest(ctx, c.Party.ID, email); err != nil {
			return err
		}
		c.Party.Name = email
		log.Debug("guest party updated", zap.Int64("party_id", c.Party.ID))
		return nil
	}

	p, err := ids.parties.CreateGuest(ctx, c.Session.ID, email)
	if err != nil {
		return err
	}
	log.Info("guest party created", zap.Int64("party_id", p.ID))

	c.Party = p
	return ids.rehome(ctx, c, p.ID)
}

// rehome moves the sale to partyID. The addresses it carried belonged to
// the previous owner and are dropped with it.
func (ids *Identities) rehome(ctx context.Context, c *Context, partyID int64) error {
	if c.Sale == nil || c.Sale.PartyID == partyID {
		return nil
	}
	if err := ids.sales.SetParty(ctx, c.Sale.ID, partyID); err != nil {
		return err
	}
	c.Sale.PartyID = partyID
	c.Sale.ShipmentAddressID = nil
	c.Sale.InvoiceAddressID = nil
	return nil
}

// Rehome gives a registered user's sale to their own party.
func (ids *Identities) Rehome(ctx context.Context, c *Context) error {
	u := c.User()
	if u == nil {
		return nil
	}
	if c.Sale != nil && c.Sale.PartyID != u.PartyID {
		if err := ids.rehome(ctx, c, u.PartyID); err != nil {
			return err
		}
		p, err := ids.parties.Get(ctx, u.PartyID)
		if err != nil {
			return err
		}
		c.Party = p
	}
	return nil
}
