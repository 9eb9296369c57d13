package session

import (
	"net/http"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// cookieWriter persists the session right before the response header is
// sent, so handlers can mutate it up to their first write.
type cookieWriter struct {
	http.ResponseWriter
	r       *http.Request
	m       *Manager
	s       *Session
	written bool
}

func (w *cookieWriter) persist() {
	if w.written {
		return
	}
	w.written = true
	if err := w.m.Save(w.ResponseWriter, w.s); err != nil {
		logger.FromCtx(w.r.Context()).Error("failed to save session", zap.Error(err))
	}
}

func (w *cookieWriter) WriteHeader(code int) {
	w.persist()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.persist()
	return w.ResponseWriter.Write(b)
}

// Middleware loads the session into the request context and writes it back
// with the response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)

		ctx := logger.WithSessionID(WithSession(r.Context(), s), s.ID)
		r = r.WithContext(ctx)

		cw := &cookieWriter{ResponseWriter: w, r: r, m: m, s: s}
		next.ServeHTTP(cw, r)
		cw.persist()
	})
}
