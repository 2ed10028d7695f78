package app

import (
	"context"
	"errors"
	stdhttp "net/http"

	"portal-service/internal/asset"
	"portal-service/internal/audit"
	"portal-service/internal/config"
	"portal-service/internal/events"
	"portal-service/internal/http"
	"portal-service/internal/reconcile"
	"portal-service/internal/repository/postgres"

	"github.com/rs/zerolog"
)

const serverAddrPrefix = ":"

// Service owns every long-lived component of the portal backend.
type Service struct {
	config      *config.Config
	log         zerolog.Logger
	db          *postgres.DB
	serviceDB   *postgres.DB
	publisher   *events.Publisher
	coordinator *reconcile.Coordinator
	janitor     *asset.Janitor
	audit       *audit.Logger
	server      *http.Server

	stopJanitor context.CancelFunc
}

// NewService loads nothing itself; callers pass a validated config.
func NewService(cfg *config.Config, log zerolog.Logger) (*Service, error) {
	return InitializeService(cfg, log)
}

// Start runs the asset janitor in the background and blocks serving HTTP.
func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	if s.config.AWS.AssetsBucket == "" {
		s.log.Warn().Msg("ASSETS_BUCKET not set, asset janitor disabled")
	} else {
		go s.janitor.Run(ctx, s.config.App.AssetSweepInterval, s.config.App.AssetRetention)
	}

	s.log.Info().Str("port", s.config.Server.Port).Msg("starting portal service")
	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains in-flight side effects
// before closing the broker and database connections.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	if s.stopJanitor != nil {
		s.stopJanitor()
	}

	s.coordinator.Wait()
	s.audit.Wait()

	if cerr := s.publisher.Close(); cerr != nil {
		s.log.Warn().Err(cerr).Msg("failed to close event publisher")
	}
	s.closeStores()

	return err
}

func (s *Service) closeStores() {
	if s.serviceDB != nil {
		s.serviceDB.Close()
	}
	s.db.Close()
}
