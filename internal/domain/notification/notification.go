package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one admin inbox row. Every admin gets an independent copy.
type Notification struct {
	ID          uuid.UUID
	Title       string
	Message     string
	Type        Severity
	RecipientID uuid.UUID
	IsRead      bool
	CreatedAt   time.Time
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func New(recipientID uuid.UUID, title, message string, severity Severity) *Notification {
	return &Notification{
		ID:          uuid.New(),
		Title:       title,
		Message:     message,
		Type:        severity,
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
}
