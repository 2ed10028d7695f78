// Package pricing splits a project price into what the client pays now and later.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Plan string

const (
	PlanFull    Plan = "full"
	PlanSplit   Plan = "split"
	PlanMonthly Plan = "monthly"
	// PlanOther covers one-shot payments (final, maintenance) and unknown selectors.
	PlanOther Plan = "other"
)

var (
	fullDiscountRate = decimal.New(5, -2)  // 0.05
	splitUpfrontRate = decimal.New(30, -2) // 0.30
	monthlyParts     = decimal.NewFromInt(3)
)

// Breakdown is expressed in minor currency units.
type Breakdown struct {
	Plan           Plan  `json:"plan"`
	Total          int64 `json:"total"`
	AmountDueNow   int64 `json:"amount_due_now"`
	AmountDeferred int64 `json:"amount_deferred"`
	Discount       int64 `json:"discount"`
}

// ParsePlan maps a selector to a Plan. Anything unrecognised becomes PlanOther.
func ParsePlan(s string) Plan {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanFull, PlanSplit, PlanMonthly:
		return p
	default:
		return PlanOther
	}
}

// Calculate never fails: unknown plans charge the whole total now.
func Calculate(total int64, plan Plan) Breakdown {
	b := Breakdown{Plan: plan, Total: total}
	t := decimal.NewFromInt(total)

	switch plan {
	case PlanFull:
		b.Discount = roundHalfUp(t.Mul(fullDiscountRate))
		b.AmountDueNow = total - b.Discount
	case PlanSplit:
		b.AmountDueNow = roundHalfUp(t.Mul(splitUpfrontRate))
		b.AmountDeferred = total - b.AmountDueNow
	case PlanMonthly:
		b.AmountDueNow = roundHalfUp(t.Div(monthlyParts))
		b.AmountDeferred = total - b.AmountDueNow
	default:
		b.Plan = PlanOther
		b.AmountDueNow = total
	}

	return b
}

// Outstanding is what remains of total once paid has been collected, never negative.
func Outstanding(total, paid int64) int64 {
	if paid >= total {
		return 0
	}
	return total - paid
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
