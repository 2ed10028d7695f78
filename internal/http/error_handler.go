package http

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "portal-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	jsonKeyError     = "error"
	jsonKeyCode      = "code"
	jsonKeyRequestID = "request_id"
	jsonKeyRetryable = "retryable"
	unknownRequestID = "unknown"
)

// statusFor maps an error to the HTTP status and a generic public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrConfirmationDenied):
		return http.StatusPaymentRequired, "Payment failed"
	case errors.Is(err, apperrors.ErrReconciliationFailed),
		errors.Is(err, apperrors.ErrGatewayUnavailable),
		errors.Is(err, apperrors.ErrConfirmationUnavailable):
		return http.StatusServiceUnavailable, "Payment service temporarily unavailable"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrBadRequest),
		errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "Resource already exists"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// CustomHTTPErrorHandler renders every handler error as JSON. Client errors
// carry the AppError message; payment outages also carry retryable=true.
// Internal details never leave the process.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code      int
		message   string
		errCode   string
		retryable bool
	)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		code, message = statusFor(err)
		retryable = apperrors.Retryable(err)

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			errCode = appErr.Code
			if code < http.StatusInternalServerError || retryable {
				message = appErr.Message
			}
		}
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = unknownRequestID
	}

	log := zerolog.Ctx(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("request failed")
		if !retryable {
			message = "Internal server error"
		}
	} else {
		log.Warn().Err(err).Int("status", code).Str("path", c.Path()).Msg("client error")
	}

	body := map[string]any{
		jsonKeyError:     message,
		jsonKeyRequestID: requestID,
	}
	if errCode != "" {
		body[jsonKeyCode] = errCode
	}
	if retryable {
		body[jsonKeyRetryable] = true
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		log.Error().Err(err).Msg("could not write error response")
	}
}
