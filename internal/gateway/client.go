// Package gateway talks to the remote payment processor functions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portal-service/internal/config"
	"portal-service/internal/domain/payment"
	apperrors "portal-service/pkg/errors"
	"portal-service/pkg/logger"

	"github.com/google/uuid"
)

type IntentRequest struct {
	Amount         int64
	Currency       string
	ProjectID      uuid.UUID
	ClientID       uuid.UUID
	PaymentType    payment.Type
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ClientSecret    string
	GatewayIntentID string
	Amount          int64
	Currency        string
	Status          string
}

// StepKind classifies the outcome of one confirmation attempt.
type StepKind int

const (
	StepOK StepKind = iota
	// StepTransient means the confirmation path could not be reached; the payment may still be good.
	StepTransient
	// StepPermanent means the gateway refused or failed the payment.
	StepPermanent
	// StepPending means the gateway answered but the intent has not settled yet.
	StepPending
)

func (k StepKind) String() string {
	switch k {
	case StepOK:
		return "ok"
	case StepTransient:
		return "transient"
	case StepPermanent:
		return "permanent"
	case StepPending:
		return "pending"
	default:
		return "unknown"
	}
}

type StepResult struct {
	Kind   StepKind
	Status string
	// Err wraps ErrConfirmationUnavailable or ErrConfirmationDenied for those
	// kinds, carries the unsettled status for StepPending and is nil for StepOK.
	Err error
}

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a gateway client. A nil httpClient uses a default one.
func NewClient(cfg *config.GatewayConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type createIntentBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	ProjectID   string            `json:"project_id"`
	ClientID    string            `json:"client_id"`
	PaymentType string            `json:"payment_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

type confirmBody struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type confirmResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateIntent asks the gateway for a new payment intent. Every failure is
// reported as ErrGatewayUnavailable; the caller retries the whole attempt.
func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	body := createIntentBody{
		Amount:      req.Amount,
		Currency:    req.Currency,
		ProjectID:   req.ProjectID.String(),
		ClientID:    req.ClientID.String(),
		PaymentType: string(req.PaymentType),
		Metadata:    req.Metadata,
	}

	code, raw, err := c.post(ctx, pathCreateIntent, body, req.IdempotencyKey)
	if err != nil {
		return nil, apperrors.GatewayUnavailable(err)
	}
	if !isHTTPSuccess(code) {
		return nil, apperrors.GatewayUnavailable(errStatus(code, describe(raw)))
	}

	var resp intentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.GatewayUnavailable(errParseResponse(err))
	}
	if resp.ClientSecret == "" {
		return nil, apperrors.GatewayUnavailable(errors.New(errMissingSecretFmt))
	}
	if resp.PaymentIntentID == "" {
		return nil, apperrors.GatewayUnavailable(errors.New(errMissingIntentIDFmt))
	}

	intent := &Intent{
		ClientSecret:    resp.ClientSecret,
		GatewayIntentID: resp.PaymentIntentID,
		Amount:          resp.Amount,
		Currency:        resp.Currency,
		Status:          resp.Status,
	}
	if intent.Amount == 0 {
		intent.Amount = req.Amount
	}
	if intent.Currency == "" {
		intent.Currency = req.Currency
	}

	return intent, nil
}

// Confirm asks the trusted confirmation function to re-verify the intent.
func (c *Client) Confirm(ctx context.Context, gatewayIntentID string) StepResult {
	if gatewayIntentID == "" {
		return permanent("", apperrors.ConfirmationDenied(errIntentIDEmptyFmt))
	}

	code, raw, err := c.post(ctx, pathConfirm, confirmBody{PaymentIntentID: gatewayIntentID}, "")
	if err != nil {
		return transient(err)
	}

	if !isHTTPSuccess(code) {
		if status, ok := declineStatus(raw); ok {
			return permanent(status, apperrors.ConfirmationDenied(fmt.Sprintf(msgDeclinedFmt, status)))
		}
		if code != http.StatusPaymentRequired {
			// Auth, routing and server failures say nothing about the payment itself.
			return transient(errStatus(code, describe(raw)))
		}
		reason := describe(raw)
		if reason == "" {
			reason = fmt.Sprintf(msgDeclinedStatusCodeFmt, code)
		}
		return permanent("", apperrors.ConfirmationDenied(reason))
	}

	var resp confirmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return transient(errParseResponse(err))
	}

	switch {
	case resp.Status == intentStatusSucceeded:
		return StepResult{Kind: StepOK, Status: resp.Status}
	case isDeclineStatus(resp.Status):
		return permanent(resp.Status, apperrors.ConfirmationDenied(fmt.Sprintf(msgDeclinedFmt, resp.Status)))
	default:
		return StepResult{Kind: StepPending, Status: resp.Status, Err: fmt.Errorf(errNotSettledFmt, resp.Status)}
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, idempotencyKey string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errMarshalRequest(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, errCreateRequest(err)
	}

	req.Header.Set(headerContentType, mimeApplicationJSON)
	if c.apiKey != "" {
		req.Header.Set(headerAuthorization, authBearerPrefix+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errRequestFailed(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errReadResponse(err)
	}

	return resp.StatusCode, raw, nil
}

// describe extracts a loggable reason from an error body, stripping secrets.
func describe(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return logger.SanitizeLogMessage(e.Error)
	}
	return logger.SanitizeLogMessage(strings.TrimSpace(string(raw)))
}

// declineStatus reports a decline carried in an error body, e.g.
// 400 {"status":"requires_payment_method"}.
func declineStatus(raw []byte) (string, bool) {
	var resp confirmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false
	}
	return resp.Status, isDeclineStatus(resp.Status)
}

func transient(cause error) StepResult {
	return StepResult{Kind: StepTransient, Err: apperrors.ConfirmationUnavailable(cause)}
}

func permanent(status string, err error) StepResult {
	return StepResult{Kind: StepPermanent, Status: status, Err: err}
}
