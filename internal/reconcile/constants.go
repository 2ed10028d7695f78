package reconcile

import "time"

const (
	defaultCurrency          = "usd"
	defaultSideEffectTimeout = 10 * time.Second

	msgPaymentAlreadyPrefix = "payment already "
	msgPaymentDeclined      = "payment declined"

	errStillPending        = "payment still pending after conditional update"
	errNothingOutstanding  = "nothing outstanding on this project"
	errAmountRequired      = "amount must be positive"
	errProjectNotOwned     = "project does not belong to this client"
	errLoadHistory         = "failed to load payment history"
	idempotencySeedFmt     = "%s:%s:%d:%d"
	metadataProjectID      = "project_id"
	metadataPaymentType    = "payment_type"
	metadataIdempotencyKey = "idempotency_key"
)
