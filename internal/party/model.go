package party

import "time"

const (
	ContactEmail = "email"
	ContactPhone = "phone"
)

// Party is a purchaser. Guest parties carry the id of the browser session
// that created them in GuestSession.
type Party struct {
	ID           int64
	Name         string
	GuestSession *string
	CreatedAt    time.Time
}

// IsGuestOf reports whether the party was provisioned by sessionID.
func (p *Party) IsGuestOf(sessionID string) bool {
	return p.GuestSession != nil && *p.GuestSession == sessionID
}

type ContactMechanism struct {
	ID      int64
	PartyID int64
	Type    string
	Value   string
}
