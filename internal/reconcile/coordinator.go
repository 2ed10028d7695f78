// Package reconcile makes local payment and project records agree with the
// payment gateway's outcome.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"
	"portal-service/internal/gateway"
	"portal-service/internal/lifecycle"
	"portal-service/internal/notify"
	apperrors "portal-service/pkg/errors"
	"portal-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Gateway interface {
	CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error)
	Confirm(ctx context.Context, gatewayIntentID string) gateway.StepResult
}

type Ledger interface {
	CreatePending(ctx context.Context, input payment.CreatePendingInput) (*payment.Payment, error)
	GetByIntentID(ctx context.Context, gatewayIntentID string) (*payment.Payment, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, status *payment.Status) ([]*payment.Payment, error)
	ListPending(ctx context.Context) ([]*payment.Payment, error)
	MarkSucceeded(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error)
}

type ProjectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

type StatusResolver interface {
	Resolve(ctx context.Context, projectID uuid.UUID) (*lifecycle.Resolution, error)
}

type EventNotifier interface {
	PaymentCompleted(ctx context.Context, projectName string, amount int64, currency string) notify.Report
	StatusChanged(ctx context.Context, projectName string, status project.Status) (notify.Report, bool)
}

type EventPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, p *payment.Payment) error
}

// Path names how a reconciliation reached its outcome.
type Path string

const (
	PathPrimary Path = "primary"
	// PathFallback recorded success without the gateway re-verifying it.
	PathFallback Path = "fallback"
	PathNoop     Path = "noop"
	PathForced   Path = "forced"
)

type Result struct {
	Payment    *payment.Payment
	Path       Path
	Resolution *lifecycle.Resolution
	// Transitioned is true when this call moved the payment out of pending.
	Transitioned bool
}

type Config struct {
	Gateway   Gateway
	Ledger    Ledger
	Projects  ProjectReader
	Resolver  StatusResolver
	Notifier  EventNotifier
	Publisher EventPublisher
	Metrics   *metrics.Payments
	Logger    zerolog.Logger

	Currency          string
	SideEffectTimeout time.Duration
	Now               func() time.Time
}

type Coordinator struct {
	gateway   Gateway
	ledger    Ledger
	projects  ProjectReader
	resolver  StatusResolver
	notifier  EventNotifier
	publisher EventPublisher
	metrics   *metrics.Payments
	log       zerolog.Logger

	currency          string
	sideEffectTimeout time.Duration
	now               func() time.Time

	wg sync.WaitGroup
}

func New(cfg Config) *Coordinator {
	c := &Coordinator{
		gateway:           cfg.Gateway,
		ledger:            cfg.Ledger,
		projects:          cfg.Projects,
		resolver:          cfg.Resolver,
		notifier:          cfg.Notifier,
		publisher:         cfg.Publisher,
		metrics:           cfg.Metrics,
		log:               cfg.Logger.With().Str("component", "reconcile").Logger(),
		currency:          cfg.Currency,
		sideEffectTimeout: cfg.SideEffectTimeout,
		now:               cfg.Now,
	}
	if c.currency == "" {
		c.currency = defaultCurrency
	}
	if c.sideEffectTimeout <= 0 {
		c.sideEffectTimeout = defaultSideEffectTimeout
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Reconcile records the outcome of a client-observed gateway success.
//
// The trusted confirmation path is tried first. When it cannot be reached the
// payment is marked succeeded on the client's word alone (PathFallback). A
// gateway decline marks the payment failed and returns ErrConfirmationDenied.
// An intent the gateway reports as not yet settled stays pending and the call
// returns ErrReconciliationFailed.
// If nothing could be recorded the payment stays pending and
// ErrReconciliationFailed is returned; calling again is safe.
func (c *Coordinator) Reconcile(ctx context.Context, gatewayIntentID string) (*Result, error) {
	log := c.log.With().Str("intent_id", gatewayIntentID).Logger()

	p, err := c.ledger.GetByIntentID(ctx, gatewayIntentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		return nil, apperrors.ReconciliationFailed(err)
	}

	switch p.Status {
	case payment.StatusSucceeded:
		return c.alreadySucceeded(ctx, p)
	case payment.StatusFailed, payment.StatusCanceled:
		c.metrics.RecordReconcile(metrics.OutcomeDenied)
		return nil, apperrors.ConfirmationDenied(msgPaymentAlreadyPrefix + string(p.Status))
	}

	step := c.gateway.Confirm(ctx, gatewayIntentID)

	var path Path
	switch step.Kind {
	case gateway.StepOK:
		path = PathPrimary
	case gateway.StepTransient:
		path = PathFallback
		log.Warn().Err(step.Err).Msg("confirmation path unreachable, recording client-observed success")
	case gateway.StepPending:
		c.metrics.RecordReconcile(metrics.OutcomeUnsettled)
		log.Info().Str("gateway_status", step.Status).Msg("payment not settled yet, leaving it pending")
		return nil, apperrors.ReconciliationFailed(step.Err)
	default:
		return nil, c.deny(ctx, p, step, log)
	}

	now := c.now()
	transitioned, err := c.ledger.MarkSucceeded(ctx, gatewayIntentID, now)
	if err != nil {
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		log.Error().Err(err).Str("path", string(path)).Msg("could not record payment")
		if step.Err != nil {
			err = errors.Join(step.Err, err)
		}
		return nil, apperrors.ReconciliationFailed(err)
	}

	if !transitioned {
		// A concurrent call got there first; defer to what it recorded.
		return c.afterLostRace(ctx, gatewayIntentID)
	}

	p.Status = payment.StatusSucceeded
	p.ProcessedAt = &now

	res, err := c.resolver.Resolve(ctx, p.ProjectID)
	c.afterSuccess(ctx, p, res)
	if err != nil {
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		log.Error().Err(err).Msg("payment recorded but project status not resolved")
		return nil, apperrors.ReconciliationFailed(err)
	}

	c.metrics.RecordReconcile(string(path))
	log.Info().
		Str("path", string(path)).
		Str("project_id", p.ProjectID.String()).
		Str("project_status", string(res.Current)).
		Msg("payment reconciled")

	return &Result{Payment: p, Path: path, Resolution: res, Transitioned: true}, nil
}

// alreadySucceeded re-runs the resolver so a retry after a failed resolve
// still converges. It never touches the ledger or repeats the payment notification.
func (c *Coordinator) alreadySucceeded(ctx context.Context, p *payment.Payment) (*Result, error) {
	res, err := c.resolver.Resolve(ctx, p.ProjectID)
	if err != nil {
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		return nil, apperrors.ReconciliationFailed(err)
	}
	if res.Changed {
		c.notifyStatus(ctx, p.ProjectID, res)
	}

	c.metrics.RecordReconcile(metrics.OutcomeNoop)
	return &Result{Payment: p, Path: PathNoop, Resolution: res}, nil
}

func (c *Coordinator) afterLostRace(ctx context.Context, gatewayIntentID string) (*Result, error) {
	p, err := c.ledger.GetByIntentID(ctx, gatewayIntentID)
	if err != nil {
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		return nil, apperrors.ReconciliationFailed(err)
	}

	switch p.Status {
	case payment.StatusSucceeded:
		return c.alreadySucceeded(ctx, p)
	case payment.StatusPending:
		// Cannot happen with a conditional write unless the row was reset externally.
		c.metrics.RecordReconcile(metrics.OutcomeFailed)
		return nil, apperrors.ReconciliationFailed(errors.New(errStillPending))
	default:
		c.metrics.RecordReconcile(metrics.OutcomeDenied)
		return nil, apperrors.ConfirmationDenied(msgPaymentAlreadyPrefix + string(p.Status))
	}
}

func (c *Coordinator) deny(ctx context.Context, p *payment.Payment, step gateway.StepResult, log zerolog.Logger) error {
	c.metrics.RecordReconcile(metrics.OutcomeDenied)

	if _, err := c.ledger.MarkFailed(ctx, p.IntentID(), c.now()); err != nil {
		log.Error().Err(err).Msg("could not mark declined payment as failed")
	}

	log.Info().Str("gateway_status", step.Status).Err(step.Err).Msg("payment declined")

	if step.Err != nil {
		return step.Err
	}
	return apperrors.ConfirmationDenied(msgPaymentDeclined)
}

// Resolve re-derives a project's status from its recorded payments and
// announces a change the same way a reconciliation does.
func (c *Coordinator) Resolve(ctx context.Context, projectID uuid.UUID) (*lifecycle.Resolution, error) {
	res, err := c.resolver.Resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		c.notifyStatus(ctx, projectID, res)
	}
	return res, nil
}

// Wait blocks until every in-flight notification and event has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// afterSuccess runs notifications and event publishing in the background.
// They are bounded by their own timeout and never affect the caller.
func (c *Coordinator) afterSuccess(ctx context.Context, p *payment.Payment, res *lifecycle.Resolution) {
	snapshot := *p
	c.background(ctx, func(ctx context.Context) {
		name := c.projectName(ctx, snapshot.ProjectID)

		if c.notifier != nil {
			c.notifier.PaymentCompleted(ctx, name, snapshot.Amount, snapshot.Currency)
			if res != nil && res.Changed {
				c.notifier.StatusChanged(ctx, name, res.Current)
			}
		}

		if c.publisher != nil {
			if err := c.publisher.PublishPaymentSucceeded(ctx, &snapshot); err != nil {
				c.log.Warn().Err(err).Str("payment_id", snapshot.ID.String()).Msg("payment event not published")
			}
		}
	})
}

func (c *Coordinator) notifyStatus(ctx context.Context, projectID uuid.UUID, res *lifecycle.Resolution) {
	if c.notifier == nil {
		return
	}
	c.background(ctx, func(ctx context.Context) {
		c.notifier.StatusChanged(ctx, c.projectName(ctx, projectID), res.Current)
	})
}

func (c *Coordinator) background(parent context.Context, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error().Interface("panic", r).Msg("background side effect panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.sideEffectTimeout)
		defer cancel()

		fn(ctx)
	}()
}

func (c *Coordinator) projectName(ctx context.Context, projectID uuid.UUID) string {
	if p, err := c.projects.GetByID(ctx, projectID); err == nil && p.Name != "" {
		return p.Name
	}
	return projectID.String()
}
