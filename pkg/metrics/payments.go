package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Reconcile outcomes recorded by the coordinator.
const (
	OutcomePrimary   = "primary"
	OutcomeFallback  = "fallback"
	OutcomeNoop      = "noop"
	OutcomeDenied    = "denied"
	OutcomeFailed    = "failed"
	OutcomeForced    = "forced"
	OutcomeUnsettled = "unsettled"

	// NotificationUndelivered counts rows no strategy could write.
	NotificationUndelivered = "undelivered"
)

// Payments counts reconciliation and notification outcomes. A nil *Payments
// is valid and records nothing.
type Payments struct {
	IntentsCreated int64
	startTime      time.Time
	reconcile      map[string]int64
	notifications  map[string]int64
	mu             sync.Mutex
}

type PaymentsSnapshot struct {
	IntentsCreated int64            `json:"intents_created"`
	Reconcile      map[string]int64 `json:"reconcile"`
	Notifications  map[string]int64 `json:"notifications"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
}

func NewPayments() *Payments {
	return &Payments{
		startTime:     time.Now(),
		reconcile:     make(map[string]int64),
		notifications: make(map[string]int64),
	}
}

func (p *Payments) RecordIntent() {
	if p == nil {
		return
	}
	atomic.AddInt64(&p.IntentsCreated, 1)
}

func (p *Payments) RecordReconcile(outcome string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.reconcile[outcome]++
	p.mu.Unlock()
}

func (p *Payments) RecordNotifications(strategy string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.mu.Lock()
	p.notifications[strategy] += int64(n)
	p.mu.Unlock()
}

func (p *Payments) Snapshot() PaymentsSnapshot {
	if p == nil {
		return PaymentsSnapshot{Reconcile: map[string]int64{}, Notifications: map[string]int64{}}
	}

	p.mu.Lock()
	reconcile := make(map[string]int64, len(p.reconcile))
	for k, v := range p.reconcile {
		reconcile[k] = v
	}
	notifications := make(map[string]int64, len(p.notifications))
	for k, v := range p.notifications {
		notifications[k] = v
	}
	p.mu.Unlock()

	return PaymentsSnapshot{
		IntentsCreated: atomic.LoadInt64(&p.IntentsCreated),
		Reconcile:      reconcile,
		Notifications:  notifications,
		UptimeSeconds:  time.Since(p.startTime).Seconds(),
	}
}

// RegisterPaymentsRoute adds /metrics/payments endpoint
func RegisterPaymentsRoute(e *echo.Echo, p *Payments) {
	e.GET("/metrics/payments", func(c echo.Context) error {
		return c.JSON(http.StatusOK, p.Snapshot())
	})
}
