// Package lifecycle derives a project's status from the payments recorded against it.
package lifecycle

import (
	"context"
	"fmt"

	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	errLoadProjectFmt   = "failed to load project %s: %w"
	errListPaymentsFmt  = "failed to list succeeded payments for project %s: %w"
	errAdvanceStatusFmt = "failed to advance project %s to %s: %w"
)

// Floor is the earliest status the resolver ever writes. Statuses before it
// belong to intake and count as already reached once a project is resolved.
const Floor = project.StatusConfirmed

// Fold reduces a payment set to the status it justifies. Only succeeded
// payments count; the result is never earlier than Floor.
func Fold(payments []*payment.Payment) project.Status {
	var hasInitial, hasFinal bool
	for _, p := range payments {
		if p == nil || p.Status != payment.StatusSucceeded {
			continue
		}
		switch p.Type {
		case payment.TypeFinal:
			hasFinal = true
		case payment.TypeInitial:
			hasInitial = true
		}
	}

	switch {
	case hasFinal:
		return project.StatusCompleted
	case hasInitial:
		return project.StatusInProgress
	default:
		return Floor
	}
}

type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
	AdvanceStatus(ctx context.Context, input project.AdvanceStatusInput) (bool, error)
}

type PaymentLister interface {
	ListByProject(ctx context.Context, projectID uuid.UUID, status *payment.Status) ([]*payment.Payment, error)
}

type Resolution struct {
	ProjectID uuid.UUID
	Previous  project.Status
	Current   project.Status
	// Changed is true only when this call performed the write.
	Changed bool
}

type Resolver struct {
	payments PaymentLister
	projects ProjectStore
	log      zerolog.Logger
}

func NewResolver(payments PaymentLister, projects ProjectStore, log zerolog.Logger) *Resolver {
	return &Resolver{
		payments: payments,
		projects: projects,
		log:      log.With().Str("component", "lifecycle").Logger(),
	}
}

// Resolve recomputes the project's status from its succeeded payments and
// persists it when the result lies further along the lifecycle. The write is
// conditional on the stored status still ranking below the target, so
// concurrent calls never move a project backwards.
func (r *Resolver) Resolve(ctx context.Context, projectID uuid.UUID) (*Resolution, error) {
	p, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf(errLoadProjectFmt, projectID, err)
	}

	succeeded := payment.StatusSucceeded
	payments, err := r.payments.ListByProject(ctx, projectID, &succeeded)
	if err != nil {
		return nil, fmt.Errorf(errListPaymentsFmt, projectID, err)
	}

	res := &Resolution{ProjectID: projectID, Previous: p.Status, Current: p.Status}

	target := Fold(payments)
	if !p.Status.Before(target) {
		return res, nil
	}

	changed, err := r.projects.AdvanceStatus(ctx, project.AdvanceStatusInput{
		ProjectID: projectID,
		To:        target,
		From:      project.StatusesBefore(target),
	})
	if err != nil {
		return nil, fmt.Errorf(errAdvanceStatusFmt, projectID, target, err)
	}

	if !changed {
		// Someone else moved the project first; report what is stored now.
		if latest, err := r.projects.GetByID(ctx, projectID); err == nil {
			res.Current = latest.Status
		}
		return res, nil
	}

	res.Current = target
	res.Changed = true

	r.log.Info().
		Str("project_id", projectID.String()).
		Str("from", string(p.Status)).
		Str("to", string(target)).
		Msg("project status advanced")

	return res, nil
}
