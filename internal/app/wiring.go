package app

import (
	"fmt"

	"portal-service/internal/asset"
	"portal-service/internal/audit"
	"portal-service/internal/auth"
	"portal-service/internal/config"
	"portal-service/internal/events"
	"portal-service/internal/gateway"
	"portal-service/internal/http"
	"portal-service/internal/lifecycle"
	"portal-service/internal/notify"
	"portal-service/internal/reconcile"
	"portal-service/internal/repository/postgres"
	"portal-service/internal/storage/s3"
	"portal-service/pkg/metrics"

	"github.com/rs/zerolog"
)

// InitializeService wires up all dependencies and returns a configured Service.
func InitializeService(cfg *config.Config, log zerolog.Logger) (*Service, error) {
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("database connection established")

	svc := &Service{config: cfg, log: log, db: db}

	// The privileged inserter stays an untyped nil when no service credential
	// exists, so the fan-out drops that strategy instead of calling a nil pool.
	var privileged notify.Inserter
	if cfg.ServiceDatabase.Enabled() {
		svc.serviceDB, err = postgres.New(&cfg.ServiceDatabase)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect with service credential: %w", err)
		}
		privileged = postgres.NewNotificationRepository(svc.serviceDB)
		log.Info().Msg("service database connection established")
	}

	userRepo := postgres.NewUserRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	assetRepo := postgres.NewAssetRepository(db)

	paymentMetrics := metrics.NewPayments()
	requestMetrics := metrics.NewRequests()

	fanout := notify.NewFanout(notify.FanoutConfig{
		Directory:     userRepo,
		Privileged:    privileged,
		Authenticated: notificationRepo,
		Concurrency:   cfg.App.FanoutConcurrency,
		Metrics:       paymentMetrics,
		Logger:        log,
	})
	notifyEvents := notify.NewEvents(fanout)

	svc.publisher, err = events.NewPublisher(cfg.Messaging, log)
	if err != nil {
		svc.closeStores()
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	if svc.publisher == nil {
		log.Warn().Msg("RABBITMQ_URL not set, payment events are not published")
	}

	svc.coordinator = reconcile.New(reconcile.Config{
		Gateway:   gateway.NewClient(&cfg.Gateway, nil),
		Ledger:    paymentRepo,
		Projects:  projectRepo,
		Resolver:  lifecycle.NewResolver(paymentRepo, projectRepo, log),
		Notifier:  notifyEvents,
		Publisher: svc.publisher,
		Metrics:   paymentMetrics,
		Logger:    log,
		Currency:  cfg.Gateway.Currency,
	})

	s3Client, err := s3.NewClient(&cfg.AWS)
	if err != nil {
		svc.closeStores()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	svc.janitor = asset.NewJanitor(assetRepo, s3Client, log)

	svc.audit = audit.NewLogger(db.Pool, log)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryDuration)

	svc.server = http.NewServer(&http.ServerDependencies{
		Config:         cfg,
		Logger:         log,
		AuthMiddleware: auth.NewMiddleware(jwtService),
		Payments:       svc.coordinator,
		PaymentLookup:  paymentRepo,
		Resolver:       svc.coordinator,
		Events:         notifyEvents,
		Projects:       projectRepo,
		Notifications:  notificationRepo,
		Audit:          svc.audit,
		PaymentMetrics: paymentMetrics,
		RequestMetrics: requestMetrics,
	})

	return svc, nil
}
