package postgres

import (
	"context"
	"errors"
	"time"

	"portal-service/internal/domain/payment"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
)

const paymentColumns = `id, project_id, client_id, gateway_intent_id, amount, discount, currency, status,
	payment_type, payment_method, idempotency_key, created_at, processed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PaymentRepository is the payment ledger. Status transitions are
// conditional on the row still being pending, so concurrent callers
// agree on which one of them performed the transition.
type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.ClientID, &p.GatewayIntentID, &p.Amount, &p.Discount, &p.Currency, &p.Status,
		&p.Type, &p.Method, &p.IdempotencyKey, &p.CreatedAt, &p.ProcessedAt,
	)
	return p, err
}

// CreatePending inserts a pending row for a gateway intent. Inserting the same
// intent twice returns the existing row instead of creating a duplicate.
func (r *PaymentRepository) CreatePending(ctx context.Context, input payment.CreatePendingInput) (*payment.Payment, error) {
	if input.GatewayIntentID == "" {
		return nil, apperrors.Validation(errPaymentIntentRequiredFmt)
	}
	if err := input.Type.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	method := input.Method
	if method == "" {
		method = payment.DefaultMethod
	}

	query := `
		INSERT INTO payments (id, project_id, client_id, gateway_intent_id, amount, discount, currency, status,
			payment_type, payment_method, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (gateway_intent_id) DO NOTHING
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.Pool.QueryRow(ctx, query,
		uuid.New(), input.ProjectID, input.ClientID, input.GatewayIntentID, input.Amount, input.Discount, input.Currency,
		payment.StatusPending, input.Type, method, input.IdempotencyKey,
	))
	if err != nil {
		if isNoRows(err) {
			return r.GetByIntentID(ctx, input.GatewayIntentID)
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("payment with this idempotency key already exists")
		}
		return nil, errFailedCreatePayment(err)
	}

	return p, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errPaymentNotFound)
		}
		return nil, errFailedGetPayment(err)
	}

	return p, nil
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, gatewayIntentID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_intent_id = $1`

	p, err := scanPayment(r.db.Pool.QueryRow(ctx, query, gatewayIntentID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errPaymentNotFound)
		}
		return nil, errFailedGetPayment(err)
	}

	return p, nil
}

// ListByProject returns the project's payments, oldest first. A nil status lists all of them.
func (r *PaymentRepository) ListByProject(ctx context.Context, projectID uuid.UUID, status *payment.Status) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE project_id = $1`
	args := []any{projectID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at ASC`

	return r.list(ctx, query, args...)
}

func (r *PaymentRepository) ListPending(ctx context.Context) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, payment.StatusPending)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]*payment.Payment, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedListPayments(err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errFailedScanPayment(err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errFailedListPayments(err)
	}

	return payments, nil
}

func (r *PaymentRepository) MarkSucceeded(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error) {
	return r.transition(ctx, gatewayIntentID, payment.StatusSucceeded, processedAt)
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error) {
	return r.transition(ctx, gatewayIntentID, payment.StatusFailed, processedAt)
}

func (r *PaymentRepository) transition(ctx context.Context, gatewayIntentID string, to payment.Status, processedAt time.Time) (bool, error) {
	if gatewayIntentID == "" {
		return false, errFailedUpdatePayment(errors.New(errPaymentIntentRequiredFmt))
	}

	query := `
		UPDATE payments
		SET status = $2, processed_at = $3
		WHERE gateway_intent_id = $1 AND status = $4
	`

	tag, err := r.db.Pool.Exec(ctx, query, gatewayIntentID, to, processedAt, payment.StatusPending)
	if err != nil {
		return false, errFailedUpdatePayment(err)
	}

	return tag.RowsAffected() == 1, nil
}
