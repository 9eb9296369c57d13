package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devSessionSecret signs sessions outside production when SESSION_SECRET is unset.
const devSessionSecret = "dev-session-secret"

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	SessionSecret string
	SessionCookie string

	// GuestPartyID is the placeholder party that owns carts of anonymous visitors.
	GuestPartyID int64
	// FreshLoginWindow sends registered users back to sign-in once their
	// login is older than the window. Zero disables the check.
	FreshLoginWindow              time.Duration
	AllowGuestWithRegisteredEmail bool
	ValidateAddress               bool

	SiteConfigPath      string
	StripeSecretKey     string
	StripeWebhookSecret string
	// PaymentCallbackToken authenticates settlement callbacks from hosted
	// payment pages.
	PaymentCallbackToken string

	KafkaBrokers []string
	MailTopic    string
	MailFrom     string

	RedisAddr      string
	PaymentLockTTL time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    envOr("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionCookie: envOr("SESSION_COOKIE", "storefront_session"),

		GuestPartyID:                  envInt64("GUEST_PARTY_ID", 1),
		FreshLoginWindow:              envDuration("FRESH_LOGIN_WINDOW", 0),
		AllowGuestWithRegisteredEmail: envBool("ALLOW_GUEST_WITH_REGISTERED_EMAIL", false),
		ValidateAddress:               envBool("VALIDATE_ADDRESS", false),

		SiteConfigPath:       envOr("SITE_CONFIG", "configs/site.yaml"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PaymentCallbackToken: os.Getenv("PAYMENT_CALLBACK_TOKEN"),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		MailTopic:    envOr("MAIL_TOPIC", "storefront.mail"),
		MailFrom:     envOr("MAIL_FROM", "orders@localhost"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		PaymentLockTTL: envDuration("PAYMENT_LOCK_TTL", 30*time.Second),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}
	if cfg.SessionSecret == "" {
		if cfg.AppEnv == "production" {
			log.Fatal("SESSION_SECRET is required in production")
		}
		log.Printf("WARNING: SESSION_SECRET is not set, signing sessions with %q", devSessionSecret)
		cfg.SessionSecret = devSessionSecret
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
