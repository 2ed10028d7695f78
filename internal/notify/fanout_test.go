package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/project"
	apperrors "portal-service/pkg/errors"
	"portal-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	ids []uuid.UUID
	err error
}

func (d *stubDirectory) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	return d.ids, d.err
}

type recordingInserter struct {
	mu     sync.Mutex
	rows   []*notification.Notification
	failOn func(n *notification.Notification) error
}

func (r *recordingInserter) Insert(_ context.Context, n *notification.Notification) error {
	if r.failOn != nil {
		if err := r.failOn(n); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
	return nil
}

func (r *recordingInserter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func alwaysFail(err error) func(*notification.Notification) error {
	return func(*notification.Notification) error { return err }
}

func admins(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestNotifyAdminsWithZeroAdmins(t *testing.T) {
	priv := &recordingInserter{}
	auth := &recordingInserter{}
	f := NewFanout(FanoutConfig{Directory: &stubDirectory{}, Privileged: priv, Authenticated: auth, Logger: zerolog.Nop()})

	report := f.NotifyAdmins(context.Background(), "t", "m", notification.SeverityInfo)

	assert.Zero(t, report.Recipients)
	assert.Zero(t, report.Delivered)
	assert.Zero(t, priv.count()+auth.count())
}

func TestNotifyAdminsOneRowPerAdmin(t *testing.T) {
	ids := admins(5)
	priv := &recordingInserter{}
	m := metrics.NewPayments()
	f := NewFanout(FanoutConfig{
		Directory:     &stubDirectory{ids: ids},
		Privileged:    priv,
		Authenticated: &recordingInserter{},
		Concurrency:   2,
		Metrics:       m,
		Logger:        zerolog.Nop(),
	})

	report := f.NotifyAdmins(context.Background(), "Payment Received", "msg", notification.SeveritySuccess)

	assert.Equal(t, 5, report.Delivered)
	assert.Equal(t, 5, report.ByStrategy[StrategyPrivileged])
	require.Equal(t, 5, priv.count())

	seen := map[uuid.UUID]bool{}
	rowIDs := map[uuid.UUID]bool{}
	for _, n := range priv.rows {
		seen[n.RecipientID] = true
		rowIDs[n.ID] = true
		assert.Equal(t, notification.SeveritySuccess, n.Type)
		assert.False(t, n.IsRead)
	}
	for _, id := range ids {
		assert.True(t, seen[id])
	}
	assert.Len(t, rowIDs, 5)
	assert.Equal(t, int64(5), m.Snapshot().Notifications[StrategyPrivileged])
}

func TestNotifyAdminsFallsBackToAuthenticated(t *testing.T) {
	priv := &recordingInserter{failOn: alwaysFail(errors.New("permission denied for role service"))}
	auth := &recordingInserter{}
	f := NewFanout(FanoutConfig{Directory: &stubDirectory{ids: admins(3)}, Privileged: priv, Authenticated: auth, Logger: zerolog.Nop()})

	report := f.NotifyAdmins(context.Background(), "t", "m", notification.SeverityInfo)

	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 3, report.ByStrategy[StrategyAuthenticated])
	assert.Equal(t, 3, auth.count())
}

func TestNotifyAdminsWithoutServiceCredential(t *testing.T) {
	auth := &recordingInserter{}
	f := NewFanout(FanoutConfig{Directory: &stubDirectory{ids: admins(2)}, Authenticated: auth, Logger: zerolog.Nop()})

	report := f.NotifyAdmins(context.Background(), "t", "m", notification.SeverityInfo)

	assert.Equal(t, 2, report.ByStrategy[StrategyAuthenticated])
}

func TestNotifyAdminsIsolatesFailures(t *testing.T) {
	ids := admins(4)
	broken := ids[1]
	failBroken := func(n *notification.Notification) error {
		if n.RecipientID == broken {
			return errors.New("row rejected")
		}
		return nil
	}
	priv := &recordingInserter{failOn: failBroken}
	auth := &recordingInserter{failOn: failBroken}
	f := NewFanout(FanoutConfig{Directory: &stubDirectory{ids: ids}, Privileged: priv, Authenticated: auth, Logger: zerolog.Nop()})

	report := f.NotifyAdmins(context.Background(), "t", "m", notification.SeverityWarning)

	assert.Equal(t, 4, report.Recipients)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 1, report.Failed)
}

func TestNotifyAdminsSwallowsDirectoryError(t *testing.T) {
	auth := &recordingInserter{}
	f := NewFanout(FanoutConfig{Directory: &stubDirectory{err: errors.New("timeout")}, Authenticated: auth, Logger: zerolog.Nop()})

	report := f.NotifyAdmins(context.Background(), "t", "m", notification.SeverityInfo)

	assert.Zero(t, report.Recipients)
	assert.Zero(t, auth.count())
}

func TestFailoverReportsDeliveryFailure(t *testing.T) {
	n := notification.New(uuid.New(), "t", "m", notification.SeverityInfo)
	strategies := BuildStrategies(
		&recordingInserter{failOn: alwaysFail(errors.New("a"))},
		&recordingInserter{failOn: alwaysFail(errors.New("b"))},
	)

	_, err := Failover(context.Background(), n, strategies)

	assert.ErrorIs(t, err, apperrors.ErrNotificationDeliveryFailed)
	assert.Contains(t, err.Error(), "privileged: a")
	assert.Contains(t, err.Error(), "authenticated: b")

	_, err = Failover(context.Background(), n, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotificationDeliveryFailed)
}

type capturingNotifier struct {
	calls []notification.Severity
	texts []string
}

func (c *capturingNotifier) NotifyAdmins(_ context.Context, title, message string, severity notification.Severity) Report {
	c.calls = append(c.calls, severity)
	c.texts = append(c.texts, title+"|"+message)
	return Report{}
}

func TestStatusChangedOnlyForNotableStatuses(t *testing.T) {
	n := &capturingNotifier{}
	events := NewEvents(n)

	for _, s := range []project.Status{
		project.StatusNew, project.StatusSubmitted, project.StatusWaitingForConfirmation,
		project.StatusConfirmed, project.StatusInProgress, project.StatusInDesign,
		project.StatusReview, project.StatusFinalDelivery, project.StatusCompleted,
	} {
		events.StatusChanged(context.Background(), "Acme", s)
	}

	assert.Equal(t, []notification.Severity{
		notification.SeverityInfo, notification.SeverityInfo, notification.SeveritySuccess,
	}, n.calls)
	assert.Contains(t, n.texts[2], `Project "Acme" is now completed.`)
}

func TestEventTemplates(t *testing.T) {
	n := &capturingNotifier{}
	events := NewEvents(n)
	ctx := context.Background()

	events.ProjectCreated(ctx, "Acme")
	events.PaymentCompleted(ctx, "Acme", 3000, "usd")
	events.AssetsUploaded(ctx, "Acme", 3)
	events.TicketCreated(ctx, "Site down", "urgent")

	assert.Equal(t, []string{
		`New Project Created|A new project "Acme" has been submitted.`,
		`Payment Received|Payment of 30.00 USD received for project "Acme".`,
		`New Assets Uploaded|3 new file(s) uploaded to project "Acme".`,
		`New Support Ticket|New ticket "Site down" (priority: urgent).`,
	}, n.texts)
	assert.Equal(t, notification.SeverityWarning, n.calls[3])
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "30.00", FormatAmount(3000))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "1234.56", FormatAmount(123456))
}
