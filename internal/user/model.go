package user

import "time"

// User is a registered storefront account. Every user owns exactly one party.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	PartyID      int64
	Name         string
	CreatedAt    time.Time
}
