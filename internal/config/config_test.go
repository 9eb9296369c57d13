package config

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("SESSION_SECRET", "s3cret")
		t.Setenv("GUEST_PARTY_ID", "7")
		t.Setenv("FRESH_LOGIN_WINDOW", "15m")
		t.Setenv("ALLOW_GUEST_WITH_REGISTERED_EMAIL", "true")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
		t.Setenv("PAYMENT_CALLBACK_TOKEN", "cb-token")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "s3cret", cfg.SessionSecret)
		assert.Equal(t, int64(7), cfg.GuestPartyID)
		assert.Equal(t, 15*time.Minute, cfg.FreshLoginWindow)
		assert.True(t, cfg.AllowGuestWithRegisteredEmail)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "sk_test_123", cfg.StripeSecretKey)
		assert.Equal(t, "whsec_123", cfg.StripeWebhookSecret)
		assert.Equal(t, "cb-token", cfg.PaymentCallbackToken)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_PORT", "")
		t.Setenv("APP_ENV", "development")
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("GUEST_PARTY_ID", "")
		t.Setenv("FRESH_LOGIN_WINDOW", "")
		t.Setenv("ALLOW_GUEST_WITH_REGISTERED_EMAIL", "")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("PAYMENT_LOCK_TTL", "")

		var logs bytes.Buffer
		log.SetOutput(&logs)
		t.Cleanup(func() { log.SetOutput(os.Stderr) })

		cfg := LoadConfig()

		assert.Contains(t, logs.String(), "SESSION_SECRET is not set")

		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "storefront_session", cfg.SessionCookie)
		assert.Equal(t, "dev-session-secret", cfg.SessionSecret)
		assert.Equal(t, int64(1), cfg.GuestPartyID)
		assert.Zero(t, cfg.FreshLoginWindow)
		assert.False(t, cfg.AllowGuestWithRegisteredEmail)
		assert.Nil(t, cfg.KafkaBrokers)
		assert.Equal(t, 30*time.Second, cfg.PaymentLockTTL)
		assert.Equal(t, "configs/site.yaml", cfg.SiteConfigPath)
	})
}
