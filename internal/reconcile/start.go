package reconcile

import (
	"context"
	"fmt"
	"strings"

	"portal-service/internal/domain/payment"
	"portal-service/internal/gateway"
	"portal-service/internal/pricing"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
)

type StartPaymentInput struct {
	ProjectID uuid.UUID
	ClientID  uuid.UUID
	Type      payment.Type
	// Plan prices initial payments; ignored otherwise.
	Plan pricing.Plan
	// Amount is required for maintenance payments; ignored otherwise.
	Amount   int64
	Currency string
	Method   string
}

type StartedPayment struct {
	Payment   *payment.Payment
	Breakdown pricing.Breakdown
	// ClientSecret is handed to the payer's browser and never stored.
	ClientSecret string
}

// StartPayment prices the payment, creates the gateway intent and records the
// pending ledger row. The client secret is only returned once the row exists.
// Retrying with the same input reuses the same intent and row.
func (c *Coordinator) StartPayment(ctx context.Context, in StartPaymentInput) (*StartedPayment, error) {
	if err := in.Type.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	proj, err := c.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj.ClientID != in.ClientID {
		return nil, apperrors.Forbidden(errProjectNotOwned)
	}

	history, err := c.ledger.ListByProject(ctx, in.ProjectID, nil)
	if err != nil {
		return nil, apperrors.InternalServer(errLoadHistory, err)
	}
	if in.Type != payment.TypeMaintenance && paid(history, in.Type) {
		return nil, apperrors.Conflict(msgPaymentAlreadyPrefix + string(payment.StatusSucceeded))
	}

	breakdown, err := price(proj.Price, in, history)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = c.currency
	}

	key := IdempotencyKey(in.ProjectID, in.Type, breakdown.AmountDueNow, attempts(history, in.Type))

	intent, err := c.gateway.CreateIntent(ctx, gateway.IntentRequest{
		Amount:      breakdown.AmountDueNow,
		Currency:    currency,
		ProjectID:   in.ProjectID,
		ClientID:    in.ClientID,
		PaymentType: in.Type,
		Metadata: map[string]string{
			metadataProjectID:      in.ProjectID.String(),
			metadataPaymentType:    string(in.Type),
			metadataIdempotencyKey: key,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("project_id", in.ProjectID.String()).Msg("could not create payment intent")
		return nil, err
	}

	p, err := c.ledger.CreatePending(ctx, payment.CreatePendingInput{
		ProjectID:       in.ProjectID,
		ClientID:        in.ClientID,
		GatewayIntentID: intent.GatewayIntentID,
		Amount:          breakdown.AmountDueNow,
		Discount:        breakdown.Discount,
		Currency:        currency,
		Type:            in.Type,
		Method:          in.Method,
		IdempotencyKey:  key,
	})
	if err != nil {
		c.log.Error().Err(err).Str("intent_id", intent.GatewayIntentID).Msg("intent created but ledger row not recorded")
		return nil, apperrors.ReconciliationFailed(err)
	}

	c.metrics.RecordIntent()
	c.log.Info().
		Str("payment_id", p.ID.String()).
		Str("intent_id", intent.GatewayIntentID).
		Str("payment_type", string(p.Type)).
		Int64("amount", p.Amount).
		Msg("payment started")

	return &StartedPayment{Payment: p, Breakdown: breakdown, ClientSecret: intent.ClientSecret}, nil
}

func price(projectPrice int64, in StartPaymentInput, history []*payment.Payment) (pricing.Breakdown, error) {
	var b pricing.Breakdown

	switch in.Type {
	case payment.TypeInitial:
		b = pricing.Calculate(projectPrice, in.Plan)
	case payment.TypeFinal:
		b = pricing.Calculate(pricing.Outstanding(projectPrice, collected(history)), pricing.PlanOther)
		if b.AmountDueNow == 0 {
			return b, apperrors.Validation(errNothingOutstanding)
		}
	case payment.TypeMaintenance:
		b = pricing.Calculate(in.Amount, pricing.PlanOther)
	}

	if b.AmountDueNow <= 0 {
		return b, apperrors.Validation(errAmountRequired)
	}
	return b, nil
}

// collected sums what succeeded initial and final payments settled, plan
// discounts included; maintenance is billed separately.
func collected(history []*payment.Payment) int64 {
	var total int64
	for _, p := range history {
		if p.Status == payment.StatusSucceeded && p.Type != payment.TypeMaintenance {
			total += p.Settles()
		}
	}
	return total
}

func paid(history []*payment.Payment, typ payment.Type) bool {
	for _, p := range history {
		if p.Type == typ && p.Status == payment.StatusSucceeded {
			return true
		}
	}
	return false
}

// attempts counts earlier terminal failures of the same type, so a retry
// after a decline gets a fresh intent while a network retry reuses the old one.
func attempts(history []*payment.Payment, typ payment.Type) int {
	n := 0
	for _, p := range history {
		if p.Type == typ && (p.Status == payment.StatusFailed || p.Status == payment.StatusCanceled) {
			n++
		}
	}
	return n
}

// IdempotencyKey is stable for the same project, type, amount and attempt.
func IdempotencyKey(projectID uuid.UUID, typ payment.Type, amount int64, attempt int) string {
	seed := fmt.Sprintf(idempotencySeedFmt, projectID, typ, amount, attempt)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
