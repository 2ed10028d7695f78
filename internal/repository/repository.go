package repository

import (
	"context"
	"time"

	"portal-service/internal/domain/asset"
	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"

	"github.com/google/uuid"
)

// Provider-side interfaces that the postgres implementations satisfy.
// Consumers declare narrower interfaces next to the code that uses them.

// PaymentRepository is the payment ledger.
type PaymentRepository interface {
	CreatePending(ctx context.Context, input payment.CreatePendingInput) (*payment.Payment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	GetByIntentID(ctx context.Context, gatewayIntentID string) (*payment.Payment, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, status *payment.Status) ([]*payment.Payment, error)
	ListPending(ctx context.Context) ([]*payment.Payment, error)
	// MarkSucceeded and MarkFailed report whether this call performed the transition.
	MarkSucceeded(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, gatewayIntentID string, processedAt time.Time) (bool, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
	AdvanceStatus(ctx context.Context, input project.AdvanceStatusInput) (bool, error)
}

type UserRepository interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *notification.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error)
}

type AssetRepository interface {
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]*asset.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
