package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	original := log
	log = zap.New(core)
	t.Cleanup(func() { log = original })
	return logs
}

func TestInit(t *testing.T) {
	original := log
	defer func() { log = original }()

	for _, env := range []string{"production", "test", "development", ""} {
		t.Run("env="+env, func(t *testing.T) {
			log = nil
			Init(env)
			assert.NotNil(t, log)
		})
	}
}

func TestL_LazyInit(t *testing.T) {
	original := log
	defer func() { log = original }()

	log = nil
	t.Setenv("APP_ENV", "test")

	assert.NotNil(t, L())
	assert.NotNil(t, log)
}

func TestFromCtx(t *testing.T) {
	logs := observe(t)

	t.Run("tags request and session", func(t *testing.T) {
		ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
		FromCtx(ctx).Info("hello")

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "sess-1", fields["session_id"])
	})

	t.Run("plain context", func(t *testing.T) {
		FromCtx(context.Background()).Info("bare")

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].ContextMap())
	})
}

func TestContextAccessors(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))
	assert.Equal(t, "", SessionIDFrom(context.Background()))
	assert.Equal(t, "abc", RequestIDFrom(WithRequestID(context.Background(), "abc")))
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	t.Run("generates when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("preserves incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-Request-ID", "given-id")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "given-id", seen)
		assert.Equal(t, "given-id", w.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	logs := observe(t)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/checkout/sign-in", http.StatusFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/checkout/payment", nil))

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "request handled", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/checkout/payment", fields["path"])
	assert.Equal(t, int64(http.StatusFound), fields["status"])
}

func TestSync(t *testing.T) {
	assert.NotPanics(t, Sync)
}
