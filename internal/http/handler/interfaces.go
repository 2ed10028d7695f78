package handler

import (
	"context"

	"portal-service/internal/audit"
	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"
	"portal-service/internal/lifecycle"
	"portal-service/internal/notify"
	"portal-service/internal/reconcile"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Consumer-side interfaces defined by handlers.

type PaymentService interface {
	StartPayment(ctx context.Context, in reconcile.StartPaymentInput) (*reconcile.StartedPayment, error)
	Reconcile(ctx context.Context, gatewayIntentID string) (*reconcile.Result, error)
	ReconcileAllPending(ctx context.Context) (*reconcile.BulkResult, error)
}

type StatusResolver interface {
	Resolve(ctx context.Context, projectID uuid.UUID) (*lifecycle.Resolution, error)
}

type EventProducer interface {
	ProjectCreated(ctx context.Context, projectName string) notify.Report
	AssetsUploaded(ctx context.Context, projectName string, count int) notify.Report
	TicketCreated(ctx context.Context, subject, priority string) notify.Report
}

type NotificationLister interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error)
}

type AuditRecorder interface {
	Record(c echo.Context, resourceType audit.ResourceType, resourceID *uuid.UUID, action audit.Action, status audit.Status, metadata map[string]any, cause error)
	Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Event, error)
}

type ProjectGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

type PaymentLookup interface {
	GetByIntentID(ctx context.Context, gatewayIntentID string) (*payment.Payment, error)
}
