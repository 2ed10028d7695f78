package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payment is a single ledger row correlated with a gateway intent.
// Amount, Discount and Type never change after creation; Status only moves
// forward from pending to a terminal value.
type Payment struct {
	ID              uuid.UUID
	ProjectID       uuid.UUID
	ClientID        uuid.UUID
	GatewayIntentID *string
	Amount          int64
	// Discount is the part of the project price waived by the plan this payment settled.
	Discount        int64
	Currency        string
	Status          Status
	Type            Type
	Method          string
	IdempotencyKey  string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

type Type string

const (
	TypeInitial     Type = "initial"
	TypeFinal       Type = "final"
	TypeMaintenance Type = "maintenance"

	errInvalidTypeFmt = "invalid payment type: %s"
)

func (t Type) Validate() error {
	switch t {
	case TypeInitial, TypeFinal, TypeMaintenance:
		return nil
	default:
		return fmt.Errorf(errInvalidTypeFmt, t)
	}
}

const DefaultMethod = "card"

type CreatePendingInput struct {
	ProjectID       uuid.UUID
	ClientID        uuid.UUID
	GatewayIntentID string
	Amount          int64
	Discount        int64
	Currency        string
	Type            Type
	Method          string
	IdempotencyKey  string
}

// Settles is how much of the project price this payment covers once succeeded.
func (p *Payment) Settles() int64 {
	return p.Amount + p.Discount
}

// IntentID returns the gateway intent id or an empty string when none was assigned.
func (p *Payment) IntentID() string {
	if p.GatewayIntentID == nil {
		return ""
	}
	return *p.GatewayIntentID
}
