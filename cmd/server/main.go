package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/cache"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/notify"
	"storefront-be/internal/party"
	"storefront-be/internal/payment"
	"storefront-be/internal/render"
	"storefront-be/internal/sale"
	"storefront-be/internal/session"
	"storefront-be/internal/user"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = http.ListenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	handler, cleanup, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.L().Info("storefront listening", zap.String("port", cfg.AppPort))
	return startServerFunc(":"+cfg.AppPort, handler)
}

// newServer wires repositories, services and the checkout handler into
// the middleware chain. cleanup releases background clients.
func newServer(cfg *config.Config, database *sql.DB) (http.Handler, func(), error) {
	catalog, err := payment.LoadCatalog(cfg.SiteConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load site config: %w", err)
	}
	registry, err := payment.BuildRegistry(catalog, payment.Credentials{
		StripeKey:           cfg.StripeSecretKey,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		CallbackToken:       cfg.PaymentCallbackToken,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build payment gateways: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return nil, nil, fmt.Errorf("parse templates: %w", err)
	}

	stop := make(chan struct{})
	closers := []func(){func() { close(stop) }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if len(cfg.KafkaBrokers) > 0 {
		km, client, err := notify.NewKafkaMailer(cfg.KafkaBrokers, cfg.MailTopic)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("kafka mailer: %w", err)
		}
		closers = append(closers, client.Close)
		mailer = km
	}

	partySvc := party.NewService(party.NewRepository(database))
	saleSvc := sale.NewService(sale.NewRepository(database), catalog.Currency)

	h := checkout.NewHandler(checkout.Deps{
		Carts:     cart.NewService(cart.NewRepository(database), saleSvc),
		Sales:     saleSvc,
		Parties:   partySvc,
		Users:     user.NewService(user.NewRepository(database)),
		Addresses: address.NewService(address.NewRepository(database), partySvc),
		Payments:  payment.NewService(payment.NewRepository(database), registry, catalog),
		Mailer:    mailer,
		Locker:    cache.NewLocker(cfg.RedisAddr, cfg.PaymentLockTTL),
		Renderer:  renderer,
		Policy: checkout.Policy{
			GuestPartyID:                  cfg.GuestPartyID,
			FreshLoginWindow:              cfg.FreshLoginWindow,
			AllowGuestWithRegisteredEmail: cfg.AllowGuestWithRegisteredEmail,
			ValidateAddress:               cfg.ValidateAddress,
		},
		MailFrom: cfg.MailFrom,
	})

	limiter := middleware.NewRateLimiter()
	go limiter.RunCleanup(time.Minute, stop)

	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionCookie, cfg.AppEnv == "production")
	return setupRouter(h, sessions, limiter), cleanup, nil
}

func setupRouter(h *checkout.Handler, sessions *session.Manager, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	h.Register(mux)

	// Metrics reads the matched pattern, so it must sit right on the mux.
	var handler http.Handler = middleware.Metrics(mux)
	handler = limiter.Middleware(handler)
	handler = sessions.Middleware(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}
