package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource already exists")
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation error")
)

// Payment errors
var (
	// ErrGatewayUnavailable: creating an intent failed transiently; retry the whole attempt.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrConfirmationUnavailable: the trusted confirmation path could not be reached.
	ErrConfirmationUnavailable = errors.New("payment confirmation unavailable")
	// ErrConfirmationDenied: the gateway declined or failed the payment.
	ErrConfirmationDenied = errors.New("payment confirmation denied")
	// ErrReconciliationFailed: neither the primary nor the fallback path recorded the payment.
	ErrReconciliationFailed = errors.New("payment reconciliation failed")
	// ErrNotificationDeliveryFailed never leaves the notify package.
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely repeat the operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrReconciliationFailed) ||
		errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrConfirmationUnavailable)
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: msg, Err: ErrBadRequest}
}

func Validation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Err: ErrValidation}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Err: ErrConflict}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}

func GatewayUnavailable(cause error) *AppError {
	return &AppError{Code: "GATEWAY_UNAVAILABLE", Message: "payment gateway unavailable", Err: join(ErrGatewayUnavailable, cause)}
}

func ConfirmationUnavailable(cause error) *AppError {
	return &AppError{Code: "CONFIRMATION_UNAVAILABLE", Message: "payment confirmation unavailable", Err: join(ErrConfirmationUnavailable, cause)}
}

func ConfirmationDenied(reason string) *AppError {
	return &AppError{Code: "PAYMENT_FAILED", Message: reason, Err: ErrConfirmationDenied}
}

func ReconciliationFailed(cause error) *AppError {
	return &AppError{Code: "RECONCILIATION_FAILED", Message: "payment could not be recorded, retry later", Err: join(ErrReconciliationFailed, cause)}
}

func NotificationDeliveryFailed(cause error) *AppError {
	return &AppError{Code: "NOTIFICATION_DELIVERY_FAILED", Message: "notification delivery failed", Err: join(ErrNotificationDeliveryFailed, cause)}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}
