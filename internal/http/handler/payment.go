package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"portal-service/internal/audit"
	"portal-service/internal/auth"
	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"
	"portal-service/internal/pricing"
	"portal-service/internal/reconcile"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	payments PaymentService
	lookup   PaymentLookup
	resolver StatusResolver
	audit    AuditRecorder
}

func NewPaymentHandler(payments PaymentService, lookup PaymentLookup, resolver StatusResolver, auditLogger AuditRecorder) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		lookup:   lookup,
		resolver: resolver,
		audit:    auditLogger,
	}
}

type StartPaymentRequest struct {
	PaymentType   string `json:"payment_type"`
	Plan          string `json:"plan"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

type StartPaymentResponse struct {
	PaymentID       uuid.UUID         `json:"payment_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	ClientSecret    string            `json:"client_secret"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          payment.Status    `json:"status"`
	Breakdown       pricing.Breakdown `json:"breakdown"`
}

type ReconcileResponse struct {
	PaymentID            uuid.UUID      `json:"payment_id"`
	Status               payment.Status `json:"status"`
	Path                 reconcile.Path `json:"path"`
	ProjectID            uuid.UUID      `json:"project_id"`
	ProjectStatus        project.Status `json:"project_status"`
	ProjectStatusChanged bool           `json:"project_status_changed"`
}

type ResolutionResponse struct {
	ProjectID uuid.UUID      `json:"project_id"`
	Previous  project.Status `json:"previous_status"`
	Current   project.Status `json:"current_status"`
	Changed   bool           `json:"changed"`
}

type BulkReconcileResponse struct {
	Scanned  int                  `json:"scanned"`
	Forced   int                  `json:"forced"`
	Skipped  int                  `json:"skipped"`
	Failed   int                  `json:"failed"`
	Projects []ResolutionResponse `json:"projects"`
}

func toResolution(r *reconcile.Result) ResolutionResponse {
	if r.Resolution == nil {
		return ResolutionResponse{ProjectID: r.Payment.ProjectID}
	}
	return resolutionResponse(r.Resolution.ProjectID, r.Resolution.Previous, r.Resolution.Current, r.Resolution.Changed)
}

func resolutionResponse(id uuid.UUID, previous, current project.Status, changed bool) ResolutionResponse {
	return ResolutionResponse{ProjectID: id, Previous: previous, Current: current, Changed: changed}
}

// Quote prices a project total under a plan without creating anything.
func (h *PaymentHandler) Quote(c echo.Context) error {
	total, err := strconv.ParseInt(c.QueryParam(queryTotal), 10, 64)
	if err != nil || total < 0 {
		return apperrors.Validation(msgInvalidTotal)
	}

	return c.JSON(http.StatusOK, pricing.Calculate(total, pricing.ParsePlan(c.QueryParam(queryPlan))))
}

func (h *PaymentHandler) StartPayment(c echo.Context) error {
	projectID, err := projectIDParam(c)
	if err != nil {
		return err
	}

	clientID, err := auth.GetClientID(c)
	if err != nil {
		return err
	}

	var req StartPaymentRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	typ := payment.Type(strings.ToLower(strings.TrimSpace(req.PaymentType)))
	if err := typ.Validate(); err != nil {
		return apperrors.Validation(msgInvalidPaymentType)
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = payment.DefaultMethod
	}

	started, err := h.payments.StartPayment(c.Request().Context(), reconcile.StartPaymentInput{
		ProjectID: projectID,
		ClientID:  clientID,
		Type:      typ,
		Plan:      pricing.ParsePlan(req.Plan),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Method:    method,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, StartPaymentResponse{
		PaymentID:       started.Payment.ID,
		PaymentIntentID: started.Payment.IntentID(),
		ClientSecret:    started.ClientSecret,
		Amount:          started.Payment.Amount,
		Currency:        started.Payment.Currency,
		Status:          started.Payment.Status,
		Breakdown:       started.Breakdown,
	})
}

// Reconcile is called by the payer's browser after the gateway reported success.
func (h *PaymentHandler) Reconcile(c echo.Context) error {
	intentID := strings.TrimSpace(c.Param(paramIntentID))
	if intentID == "" {
		return apperrors.BadRequest(msgIntentIDRequired)
	}

	ctx := c.Request().Context()

	existing, err := h.lookup.GetByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.ReconciliationFailed(err)
	}
	if err := authorizeClient(c, existing.ClientID); err != nil {
		return err
	}

	result, err := h.payments.Reconcile(ctx, intentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfirmationDenied) {
			h.audit.Record(c, audit.ResourceTypePayment, &existing.ID, audit.ActionReconcile, audit.StatusDenied, nil, err)
		}
		return err
	}

	if result.Path == reconcile.PathFallback {
		h.audit.Record(c, audit.ResourceTypePayment, &result.Payment.ID, audit.ActionReconcile, audit.StatusSuccess,
			map[string]any{"path": string(result.Path)}, nil)
	}

	res := toResolution(result)
	return c.JSON(http.StatusOK, ReconcileResponse{
		PaymentID:            result.Payment.ID,
		Status:               result.Payment.Status,
		Path:                 result.Path,
		ProjectID:            result.Payment.ProjectID,
		ProjectStatus:        res.Current,
		ProjectStatusChanged: res.Changed,
	})
}

func (h *PaymentHandler) ResolveStatus(c echo.Context) error {
	projectID, err := projectIDParam(c)
	if err != nil {
		return err
	}

	res, err := h.resolver.Resolve(c.Request().Context(), projectID)
	if err != nil {
		return err
	}

	if res.Changed {
		h.audit.Record(c, audit.ResourceTypeProject, &projectID, audit.ActionResolveStatus, audit.StatusSuccess,
			map[string]any{"from": string(res.Previous), "to": string(res.Current)}, nil)
	}

	return c.JSON(http.StatusOK, resolutionResponse(res.ProjectID, res.Previous, res.Current, res.Changed))
}

// ReconcileAllPending forces every pending payment to succeeded. Admin only.
func (h *PaymentHandler) ReconcileAllPending(c echo.Context) error {
	started := time.Now()

	res, err := h.payments.ReconcileAllPending(c.Request().Context())
	if err != nil {
		h.audit.Record(c, audit.ResourceTypePayment, nil, audit.ActionReconcileAllPending, audit.StatusFailure, nil, err)
		return err
	}

	h.audit.Record(c, audit.ResourceTypePayment, nil, audit.ActionReconcileAllPending, audit.StatusSuccess, map[string]any{
		"scanned":     res.Scanned,
		"forced":      res.Forced,
		"skipped":     res.Skipped,
		"failed":      res.Failed,
		"duration_ms": time.Since(started).Milliseconds(),
	}, nil)

	out := BulkReconcileResponse{
		Scanned:  res.Scanned,
		Forced:   res.Forced,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
		Projects: make([]ResolutionResponse, 0, len(res.Resolutions)),
	}
	for _, r := range res.Resolutions {
		out.Projects = append(out.Projects, resolutionResponse(r.ProjectID, r.Previous, r.Current, r.Changed))
	}

	return c.JSON(http.StatusOK, out)
}

// authorizeClient lets admins through and hides other clients' records as not found.
func authorizeClient(c echo.Context, ownerClientID uuid.UUID) error {
	if auth.GetRole(c).IsAdmin() {
		return nil
	}
	clientID, err := auth.GetClientID(c)
	if err != nil || clientID != ownerClientID {
		return apperrors.NotFound(msgResourceNotFound)
	}
	return nil
}
