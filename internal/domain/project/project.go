package project

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	Price     int64 // minor currency units, tax inclusive
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status is the project lifecycle state shown on the kanban board.
type Status string

const (
	StatusNew                    Status = "new"
	StatusSubmitted              Status = "submitted"
	StatusWaitingForConfirmation Status = "waiting_for_confirmation"
	StatusConfirmed              Status = "confirmed"
	StatusInProgress             Status = "in_progress"
	StatusInDesign               Status = "in_design"
	StatusReview                 Status = "review"
	StatusFinalDelivery          Status = "final_delivery"
	StatusCompleted              Status = "completed"

	errInvalidStatusFmt = "invalid project status: %s"
)

var lifecycle = []Status{
	StatusNew,
	StatusSubmitted,
	StatusWaitingForConfirmation,
	StatusConfirmed,
	StatusInProgress,
	StatusInDesign,
	StatusReview,
	StatusFinalDelivery,
	StatusCompleted,
}

// Rank returns the position of s in the lifecycle, or -1 for unknown values.
func (s Status) Rank() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// Validate validates the status
func (s Status) Validate() error {
	if s.Rank() < 0 {
		return fmt.Errorf(errInvalidStatusFmt, s)
	}
	return nil
}

// Before reports whether s comes strictly earlier in the lifecycle than other.
func (s Status) Before(other Status) bool {
	return s.Rank() < other.Rank()
}

// StatusesBefore lists every known status ranked below s.
func StatusesBefore(s Status) []Status {
	rank := s.Rank()
	if rank <= 0 {
		return nil
	}
	out := make([]Status, rank)
	copy(out, lifecycle[:rank])
	return out
}

type CreateProjectInput struct {
	ClientID uuid.UUID
	Name     string
	Price    int64
}

type AdvanceStatusInput struct {
	ProjectID uuid.UUID
	To        Status
	// From lists the statuses the project may currently hold for the write to apply.
	From []Status
}
