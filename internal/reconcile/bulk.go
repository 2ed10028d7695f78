package reconcile

import (
	"context"

	"portal-service/internal/domain/payment"
	"portal-service/internal/lifecycle"
	"portal-service/pkg/metrics"

	"github.com/google/uuid"
)

type BulkResult struct {
	Scanned int
	Forced  int
	// Skipped rows were already settled by someone else or carry no intent id.
	Skipped     int
	Failed      int
	Resolutions []*lifecycle.Resolution
}

// ReconcileAllPending is an operator repair tool. It marks every pending
// payment succeeded without asking the gateway, then re-resolves each
// affected project once. Only expose it to admins.
func (c *Coordinator) ReconcileAllPending(ctx context.Context) (*BulkResult, error) {
	pending, err := c.ledger.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Warn().Int("pending", len(pending)).Msg("forcing all pending payments to succeeded")

	result := &BulkResult{Scanned: len(pending)}
	var forced []*payment.Payment
	var affected []uuid.UUID
	seen := make(map[uuid.UUID]bool)

	for _, p := range pending {
		intentID := p.IntentID()
		if intentID == "" {
			result.Skipped++
			continue
		}

		now := c.now()
		ok, err := c.ledger.MarkSucceeded(ctx, intentID, now)
		if err != nil {
			result.Failed++
			c.metrics.RecordReconcile(metrics.OutcomeFailed)
			c.log.Error().Err(err).Str("intent_id", intentID).Msg("could not force payment")
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}

		p.Status = payment.StatusSucceeded
		p.ProcessedAt = &now
		forced = append(forced, p)
		result.Forced++
		c.metrics.RecordReconcile(metrics.OutcomeForced)

		if !seen[p.ProjectID] {
			seen[p.ProjectID] = true
			affected = append(affected, p.ProjectID)
		}
	}

	resolutions := make(map[uuid.UUID]*lifecycle.Resolution, len(affected))
	for _, projectID := range affected {
		res, err := c.resolver.Resolve(ctx, projectID)
		if err != nil {
			result.Failed++
			c.log.Error().Err(err).Str("project_id", projectID.String()).Msg("could not resolve project after forced reconciliation")
			continue
		}
		resolutions[projectID] = res
		result.Resolutions = append(result.Resolutions, res)
	}

	// One status notification per project, attached to its first forced payment.
	notified := make(map[uuid.UUID]bool, len(affected))
	for _, p := range forced {
		var res *lifecycle.Resolution
		if !notified[p.ProjectID] {
			notified[p.ProjectID] = true
			res = resolutions[p.ProjectID]
		}
		c.afterSuccess(ctx, p, res)
	}

	c.log.Info().
		Int("scanned", result.Scanned).
		Int("forced", result.Forced).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("bulk reconciliation finished")

	return result, nil
}
