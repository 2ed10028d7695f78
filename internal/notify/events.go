package notify

import (
	"context"
	"fmt"
	"strings"

	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/project"

	"github.com/shopspring/decimal"
)

const (
	titleProjectCreated   = "New Project Created"
	titlePaymentCompleted = "Payment Received"
	titleAssetsUploaded   = "New Assets Uploaded"
	titleTicketCreated    = "New Support Ticket"
	titleStatusChanged    = "Project Status Updated"

	msgProjectCreatedFmt   = "A new project %q has been submitted."
	msgPaymentCompletedFmt = "Payment of %s %s received for project %q."
	msgAssetsUploadedFmt   = "%d new file(s) uploaded to project %q."
	msgTicketCreatedFmt    = "New ticket %q (priority: %s)."
	msgStatusChangedFmt    = "Project %q is now %s."

	minorUnitExponent = -2
)

// Notifier is the fan-out primitive every event funnels into.
type Notifier interface {
	NotifyAdmins(ctx context.Context, title, message string, severity notification.Severity) Report
}

// notableStatuses are the only transitions admins hear about.
var notableStatuses = map[project.Status]notification.Severity{
	project.StatusSubmitted: notification.SeverityInfo,
	project.StatusConfirmed: notification.SeverityInfo,
	project.StatusCompleted: notification.SeveritySuccess,
}

// Events turns domain events into fixed admin messages.
type Events struct {
	notifier Notifier
}

func NewEvents(notifier Notifier) *Events {
	return &Events{notifier: notifier}
}

func (e *Events) ProjectCreated(ctx context.Context, projectName string) Report {
	return e.notifier.NotifyAdmins(ctx, titleProjectCreated,
		fmt.Sprintf(msgProjectCreatedFmt, projectName), notification.SeverityInfo)
}

func (e *Events) PaymentCompleted(ctx context.Context, projectName string, amount int64, currency string) Report {
	return e.notifier.NotifyAdmins(ctx, titlePaymentCompleted,
		fmt.Sprintf(msgPaymentCompletedFmt, FormatAmount(amount), strings.ToUpper(currency), projectName),
		notification.SeveritySuccess)
}

func (e *Events) AssetsUploaded(ctx context.Context, projectName string, count int) Report {
	return e.notifier.NotifyAdmins(ctx, titleAssetsUploaded,
		fmt.Sprintf(msgAssetsUploadedFmt, count, projectName), notification.SeverityInfo)
}

func (e *Events) TicketCreated(ctx context.Context, subject, priority string) Report {
	severity := notification.SeverityInfo
	switch strings.ToLower(priority) {
	case "high", "urgent":
		severity = notification.SeverityWarning
	}
	return e.notifier.NotifyAdmins(ctx, titleTicketCreated,
		fmt.Sprintf(msgTicketCreatedFmt, subject, priority), severity)
}

// StatusChanged only notifies for submitted, confirmed and completed.
// The bool reports whether a notification was sent.
func (e *Events) StatusChanged(ctx context.Context, projectName string, status project.Status) (Report, bool) {
	severity, ok := notableStatuses[status]
	if !ok {
		return Report{}, false
	}
	return e.notifier.NotifyAdmins(ctx, titleStatusChanged,
		fmt.Sprintf(msgStatusChangedFmt, projectName, humanize(status)), severity), true
}

// FormatAmount renders minor units with two decimals, e.g. 3000 -> "30.00".
func FormatAmount(minor int64) string {
	return decimal.New(minor, minorUnitExponent).StringFixed(2)
}

func humanize(s project.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
