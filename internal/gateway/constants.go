package gateway

import (
	"fmt"
	"net/http"
)

const (
	pathCreateIntent = "/create-payment-intent"
	pathConfirm      = "/confirm-payment"

	headerAuthorization  = "Authorization"
	headerContentType    = "Content-Type"
	headerIdempotencyKey = "Idempotency-Key"
	authBearerPrefix     = "Bearer "
	mimeApplicationJSON  = "application/json"

	maxResponseBytes = 1 << 20

	intentStatusSucceeded             = "succeeded"
	intentStatusFailed                = "failed"
	intentStatusCanceled              = "canceled"
	intentStatusRequiresPaymentMethod = "requires_payment_method"

	msgDeclinedFmt           = "payment %s"
	msgDeclinedStatusCodeFmt = "gateway declined confirmation (status %d)"

	errMarshalRequestFmt  = "failed to marshal gateway request: %w"
	errCreateRequestFmt   = "failed to create gateway request: %w"
	errRequestFailedFmt   = "gateway request failed: %w"
	errReadResponseFmt    = "failed to read gateway response: %w"
	errParseResponseFmt   = "failed to parse gateway response: %w"
	errStatusFmt          = "gateway returned status %d: %s"
	errMissingSecretFmt   = "gateway response missing client secret"
	errMissingIntentIDFmt = "gateway response missing intent id"
	errIntentIDEmptyFmt   = "gateway intent id is required"
	errNotSettledFmt      = "gateway reported unsettled intent status %q"
)

var (
	errMarshalRequest = func(err error) error { return fmt.Errorf(errMarshalRequestFmt, err) }
	errCreateRequest  = func(err error) error { return fmt.Errorf(errCreateRequestFmt, err) }
	errRequestFailed  = func(err error) error { return fmt.Errorf(errRequestFailedFmt, err) }
	errReadResponse   = func(err error) error { return fmt.Errorf(errReadResponseFmt, err) }
	errParseResponse  = func(err error) error { return fmt.Errorf(errParseResponseFmt, err) }
	errStatus         = func(code int, body string) error { return fmt.Errorf(errStatusFmt, code, body) }
)

func isHTTPSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func isDeclineStatus(status string) bool {
	switch status {
	case intentStatusFailed, intentStatusCanceled, intentStatusRequiresPaymentMethod:
		return true
	}
	return false
}
