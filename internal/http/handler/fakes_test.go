package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"portal-service/internal/audit"
	"portal-service/internal/auth"
	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"
	"portal-service/internal/domain/user"
	"portal-service/internal/lifecycle"
	"portal-service/internal/notify"
	"portal-service/internal/reconcile"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type fakePayments struct {
	startIn  reconcile.StartPaymentInput
	started  *reconcile.StartedPayment
	startErr error

	reconciled   []string
	result       *reconcile.Result
	reconcileErr error

	bulk    *reconcile.BulkResult
	bulkErr error
}

func (f *fakePayments) StartPayment(_ context.Context, in reconcile.StartPaymentInput) (*reconcile.StartedPayment, error) {
	f.startIn = in
	return f.started, f.startErr
}

func (f *fakePayments) Reconcile(_ context.Context, intentID string) (*reconcile.Result, error) {
	f.reconciled = append(f.reconciled, intentID)
	return f.result, f.reconcileErr
}

func (f *fakePayments) ReconcileAllPending(context.Context) (*reconcile.BulkResult, error) {
	return f.bulk, f.bulkErr
}

type fakeLookup struct {
	byIntent map[string]*payment.Payment
	err      error
}

func (f *fakeLookup) GetByIntentID(_ context.Context, intentID string) (*payment.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byIntent[intentID]
	if !ok {
		return nil, apperrors.NotFound("payment not found")
	}
	return p, nil
}

type fakeResolver struct {
	res *lifecycle.Resolution
	err error
}

func (f *fakeResolver) Resolve(context.Context, uuid.UUID) (*lifecycle.Resolution, error) {
	return f.res, f.err
}

type recordedAudit struct {
	resourceType audit.ResourceType
	action       audit.Action
	status       audit.Status
	metadata     map[string]any
}

type fakeAudit struct {
	records []recordedAudit
	events  []*audit.Event
	filter  audit.QueryFilter
}

func (f *fakeAudit) Record(_ echo.Context, resourceType audit.ResourceType, _ *uuid.UUID, action audit.Action, status audit.Status, metadata map[string]any, _ error) {
	f.records = append(f.records, recordedAudit{resourceType, action, status, metadata})
}

func (f *fakeAudit) Query(_ context.Context, filter audit.QueryFilter) ([]*audit.Event, error) {
	f.filter = filter
	return f.events, nil
}

type fakeProjects map[uuid.UUID]*project.Project

func (f fakeProjects) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := f[id]
	if !ok {
		return nil, apperrors.NotFound("project not found")
	}
	return p, nil
}

type fakeEvents struct {
	calls []string
}

func (f *fakeEvents) ProjectCreated(_ context.Context, name string) notify.Report {
	f.calls = append(f.calls, "created:"+name)
	return notify.Report{Recipients: 2, Delivered: 2}
}

func (f *fakeEvents) AssetsUploaded(_ context.Context, name string, count int) notify.Report {
	f.calls = append(f.calls, "assets:"+name)
	return notify.Report{Recipients: 2, Delivered: 1, Failed: 1}
}

func (f *fakeEvents) TicketCreated(_ context.Context, subject, priority string) notify.Report {
	f.calls = append(f.calls, "ticket:"+subject+":"+priority)
	return notify.Report{Recipients: 2, Delivered: 2}
}

type fakeNotifications struct {
	recipient  uuid.UUID
	unreadOnly bool
	rows       []*notification.Notification
}

func (f *fakeNotifications) ListByRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error) {
	f.recipient = recipientID
	f.unreadOnly = unreadOnly
	return f.rows, nil
}

type caller struct {
	userID   uuid.UUID
	clientID *uuid.UUID
	role     user.Role
}

func clientCaller(clientID uuid.UUID) caller {
	return caller{userID: uuid.New(), clientID: &clientID, role: user.RoleClient}
}

func adminCaller() caller {
	return caller{userID: uuid.New(), role: user.RoleAdmin}
}

// newContext builds an echo context as RequireJWT would leave it.
func newContext(method, target, body string, who caller) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set(auth.ContextKeyUserID, who.userID)
	c.Set(auth.ContextKeyRole, who.role)
	if who.clientID != nil {
		c.Set(auth.ContextKeyClientID, *who.clientID)
	}
	return c, rec
}

func strPtr(s string) *string { return &s }
