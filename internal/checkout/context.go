package checkout

import (
	"context"
	"errors"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/party"
	"storefront-be/internal/sale"
	"storefront-be/internal/session"
	"storefront-be/internal/user"

	"go.uber.org/zap"
)

// Identity is who is checking out, decided once per request.
type Identity interface {
	checkoutIdentity()
}

type GuestCheckout struct{}

type RegisteredCheckout struct {
	User *user.User
}

func (GuestCheckout) checkoutIdentity()      {}
func (RegisteredCheckout) checkoutIdentity() {}

// Policy holds the storefront switches that change checkout behaviour.
type Policy struct {
	// GuestPartyID owns sales before anyone has signed in.
	GuestPartyID int64
	// FreshLoginWindow sends registered users back to sign-in once their
	// login is older than the window. Zero disables the check.
	FreshLoginWindow              time.Duration
	AllowGuestWithRegisteredEmail bool
	// ValidateAddress routes the shipping step through validate-address.
	ValidateAddress bool
	Now             func() time.Time
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Context is everything a checkout step reads about the current visitor.
type Context struct {
	Session  *session.Session
	Identity Identity
	Cart     *cart.Cart
	// Sale is nil while the cart has none.
	Sale *sale.Sale
	// Party owns Sale.
	Party  *party.Party
	Policy Policy
}

func (c *Context) Guest() bool {
	_, ok := c.Identity.(GuestCheckout)
	return ok
}

// User returns the signed in user, or nil for guests.
func (c *Context) User() *user.User {
	if r, ok := c.Identity.(RegisteredCheckout); ok {
		return r.User
	}
	return nil
}

// PartyID is the party new sales and addresses belong to.
func (c *Context) PartyID() int64 {
	if c.Sale != nil {
		return c.Sale.PartyID
	}
	if u := c.User(); u != nil {
		return u.PartyID
	}
	return c.Policy.GuestPartyID
}

// SignedIn reports whether the sale has a real owner for this visitor:
// the user's own party, or a guest party created by this session.
func (c *Context) SignedIn() bool {
	if c.Sale == nil || c.Sale.PartyID == c.Policy.GuestPartyID {
		return false
	}
	if u := c.User(); u != nil {
		return c.Sale.PartyID == u.PartyID &&
			c.Session.IsFresh(c.Policy.FreshLoginWindow, c.Policy.now())
	}
	return c.Party != nil && c.Party.IsGuestOf(c.Session.ID)
}

// Loader builds a Context for a request.
type Loader struct {
	carts   cart.Service
	sales   sale.Service
	parties party.Service
	users   user.Service
	policy  Policy
}

func NewLoader(carts cart.Service, sales sale.Service, parties party.Service, users user.Service, policy Policy) *Loader {
	return &Loader{carts: carts, sales: sales, parties: parties, users: users, policy: policy}
}

func (l *Loader) Load(ctx context.Context, sess *session.Session) (*Context, error) {
	log := logger.FromCtx(ctx).With(zap.String("component", "checkout"), zap.String("method", "Load"))

	c := &Context{Session: sess, Identity: GuestCheckout{}, Policy: l.policy}

	if sess.Authenticated() {
		u, err := l.users.Get(ctx, *sess.UserID)
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			log.Warn("session user no longer exists", zap.Int64("user_id", *sess.UserID))
			sess.Logout()
		case err != nil:
			return nil, err
		default:
			c.Identity = RegisteredCheckout{User: u}
		}
	}

	crt, err := l.carts.Open(ctx, sess.ID, sess.UserID)
	if err != nil {
		return nil, err
	}
	c.Cart = crt

	if crt.SaleID == nil {
		return c, nil
	}

	s, err := l.sales.Get(ctx, *crt.SaleID)
	if errors.Is(err, sale.ErrSaleNotFound) {
		log.Warn("cart points at a missing sale", zap.Int64("sale_id", *crt.SaleID))
		crt.SaleID = nil
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.Sale = s

	if s.PartyID != l.policy.GuestPartyID {
		p, err := l.parties.Get(ctx, s.PartyID)
		if err != nil && !errors.Is(err, party.ErrPartyNotFound) {
			return nil, err
		}
		c.Party = p
	}
	return c, nil
}
