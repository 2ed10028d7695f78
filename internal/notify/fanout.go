// Package notify delivers internal events to every admin as independent inbox rows.
package notify

import (
	"context"
	"sync"

	"portal-service/internal/domain/notification"
	"portal-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type RecipientDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Report describes one fan-out. It is informational only; NotifyAdmins never fails.
type Report struct {
	Recipients int
	Delivered  int
	Failed     int
	ByStrategy map[string]int
}

type FanoutConfig struct {
	Directory RecipientDirectory
	// Privileged writes under the service credential and may be nil.
	Privileged    Inserter
	Authenticated Inserter
	Concurrency   int
	Metrics       *metrics.Payments
	Logger        zerolog.Logger
}

type Fanout struct {
	directory   RecipientDirectory
	strategies  []Strategy
	concurrency int
	metrics     *metrics.Payments
	log         zerolog.Logger
}

func NewFanout(cfg FanoutConfig) *Fanout {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	log := cfg.Logger.With().Str("component", "notify").Logger()
	strategies := BuildStrategies(cfg.Privileged, cfg.Authenticated)
	if cfg.Privileged == nil {
		log.Warn().Msg("service credential not configured, privileged delivery disabled")
	}

	return &Fanout{
		directory:   cfg.Directory,
		strategies:  strategies,
		concurrency: concurrency,
		metrics:     cfg.Metrics,
		log:         log,
	}
}

// NotifyAdmins writes one row per admin. Each row is delivered independently
// and concurrently; a failed row is logged and does not affect the others.
func (f *Fanout) NotifyAdmins(ctx context.Context, title, message string, severity notification.Severity) Report {
	report := Report{ByStrategy: map[string]int{}}

	admins, err := f.directory.ListAdminIDs(ctx)
	if err != nil {
		f.log.Error().Err(err).Str("title", title).Msg("could not resolve admin recipients")
		return report
	}

	report.Recipients = len(admins)
	if len(admins) == 0 {
		f.log.Info().Str("title", title).Msg("no admin recipients, nothing to deliver")
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(f.concurrency)

	for _, adminID := range admins {
		n := notification.New(adminID, title, message, severity)
		g.Go(func() error {
			strategy, err := Failover(ctx, n, f.strategies)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				report.Failed++
				f.log.Error().
					Err(err).
					Str("recipient_id", n.RecipientID.String()).
					Str("title", title).
					Msg("notification not delivered")
				return nil
			}

			report.Delivered++
			report.ByStrategy[strategy]++
			return nil
		})
	}
	_ = g.Wait()

	for strategy, n := range report.ByStrategy {
		f.metrics.RecordNotifications(strategy, n)
	}
	f.metrics.RecordNotifications(metrics.NotificationUndelivered, report.Failed)

	f.log.Debug().
		Int("recipients", report.Recipients).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Str("title", title).
		Msg("admin notification fan-out finished")

	return report
}
