package session

import (
	"context"
	"time"
)

// Session is the browser state carried in the signed session cookie.
type Session struct {
	ID      string
	UserID  *int64
	LoginAt time.Time
	flashes []string
}

func (s *Session) Authenticated() bool {
	return s.UserID != nil
}

// Login marks the session as authenticated at the given instant.
func (s *Session) Login(userID int64, at time.Time) {
	s.UserID = &userID
	s.LoginAt = at
}

func (s *Session) Logout() {
	s.UserID = nil
	s.LoginAt = time.Time{}
}

// IsFresh reports whether the login happened within window of now.
// A non-positive window accepts any login.
func (s *Session) IsFresh(window time.Duration, now time.Time) bool {
	if !s.Authenticated() {
		return false
	}
	if window <= 0 {
		return true
	}
	return now.Sub(s.LoginAt) <= window
}

func (s *Session) AddFlash(msg string) {
	s.flashes = append(s.flashes, msg)
}

// PopFlashes returns queued messages and clears them.
func (s *Session) PopFlashes() []string {
	out := s.flashes
	s.flashes = nil
	return out
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
