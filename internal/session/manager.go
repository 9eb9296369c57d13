package session

import (
	"errors"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxAge = 30 * 24 * time.Hour

type claims struct {
	UserID  *int64   `json:"uid,omitempty"`
	LoginAt int64    `json:"lat,omitempty"`
	Flashes []string `json:"fl,omitempty"`
	jwt.RegisteredClaims
}

// Manager reads and writes sessions as HS256 signed cookies.
type Manager struct {
	secret []byte
	cookie string
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(secret, cookieName string, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		cookie: cookieName,
		maxAge: defaultMaxAge,
		secure: secure,
		now:    time.Now,
	}
}

// Load returns the session carried by r, or a fresh anonymous one when the
// cookie is missing, expired or tampered with.
func (m *Manager) Load(r *http.Request) *Session {
	c, err := r.Cookie(m.cookie)
	if err != nil {
		return m.newSession()
	}

	s, err := m.decode(c.Value)
	if err != nil {
		logger.FromCtx(r.Context()).Debug("discarding session cookie", zap.Error(err))
		return m.newSession()
	}
	return s
}

func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	token, err := m.encode(s)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

func (m *Manager) encode(s *Session) (string, error) {
	now := m.now()
	c := claims{
		UserID:  s.UserID,
		Flashes: s.flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}
	if !s.LoginAt.IsZero() {
		c.LoginAt = s.LoginAt.Unix()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *Manager) decode(token string) (*Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || c.ID == "" {
		return nil, errors.New("invalid session token")
	}

	s := &Session{ID: c.ID, UserID: c.UserID, flashes: c.Flashes}
	if c.LoginAt != 0 {
		s.LoginAt = time.Unix(c.LoginAt, 0)
	}
	return s, nil
}
