package checkout

import "errors"

var (
	// ErrEmailInUse is returned when a guest signs in with the email of a
	// registered account and the policy refuses it.
	ErrEmailInUse = errors.New("email belongs to a registered account")
	// ErrSaleIncomplete means the sale lacks an address or a real customer.
	ErrSaleIncomplete = errors.New("sale cannot be confirmed yet")
	// ErrGuestModeSignedIn is a guest mode submission from a logged in session.
	ErrGuestModeSignedIn = errors.New("guest checkout while signed in")
)
