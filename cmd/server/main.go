// server runs the CoolMath Pro backend API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminservice "coolmath-pro/backend/internal/admin/service"
	"coolmath-pro/backend/internal/auth/resetstore"
	authservice "coolmath-pro/backend/internal/auth/service"
	"coolmath-pro/backend/internal/config"
	"coolmath-pro/backend/internal/db"
	devicerepo "coolmath-pro/backend/internal/device/repository"
	deviceservice "coolmath-pro/backend/internal/device/service"
	"coolmath-pro/backend/internal/events"
	"coolmath-pro/backend/internal/events/producer"
	"coolmath-pro/backend/internal/notify"
	paymentrepo "coolmath-pro/backend/internal/payment/repository"
	paymentservice "coolmath-pro/backend/internal/payment/service"
	"coolmath-pro/backend/internal/security"
	"coolmath-pro/backend/internal/telemetry"
	telemetryotel "coolmath-pro/backend/internal/telemetry/otel"
	transport "coolmath-pro/backend/internal/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "coolmath-backend", cfg.Env != "production")
	if err != nil {
		logger.Error("telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		logger.Error("metrics", "error", err)
		os.Exit(1)
	}

	var emitter events.Emitter
	if brokers := cfg.EventsKafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
		if err != nil {
			logger.Error("kafka producer", "error", err)
			os.Exit(1)
		}
		defer kp.Close()
		emitter = kp
		logger.Info("event stream enabled", "topic", cfg.EventsKafkaTopic)
	}

	var notifier notify.Notifier
	if cfg.MailAPIURL != "" {
		notifier = notify.NewMailAPIClient(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailSender)
	} else {
		notifier = notify.LogNotifier{}
		logger.Warn("MAIL_API_URL not set; reset codes are only logged")
	}

	devices := devicerepo.NewPostgresRepository(database)
	payments := paymentrepo.NewPostgresRepository(database)
	resets := resetstore.NewPostgresStore(database)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider(cfg.JWTSecret, cfg.TokenTTL())

	router := transport.NewRouter(transport.Deps{
		Activation: deviceservice.NewActivationService(devices, cfg.ActivationURLBase, emitter),
		Auth:       authservice.NewAuthService(devices, resets, notifier, hasher, tokens, cfg.OTPTTL(), emitter),
		Webhook:    paymentservice.NewWebhookService(payments, cfg.RazorpayWebhookSecret, emitter, metrics, logger),
		Stats:      adminservice.NewStatsService(devices, payments),
		Health:     transport.NewHealthHandler(database),
		Logger:     logger,
		Metrics:    metrics,
		DevOTP:     cfg.OTPReturnToClient,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	// Let in-flight async event emits finish before the producer closes.
	time.Sleep(events.ShutdownDrainDuration)
	logger.Info("http server stopped")
}
