package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"portal-service/internal/notify"
	apperrors "portal-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

// EventHandler lets the portal front end announce things admins should hear about.
type EventHandler struct {
	events   EventProducer
	projects ProjectGetter
}

func NewEventHandler(events EventProducer, projects ProjectGetter) *EventHandler {
	return &EventHandler{events: events, projects: projects}
}

type AssetsUploadedRequest struct {
	Count int `json:"count"`
}

type TicketCreatedRequest struct {
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
}

type DeliveryResponse struct {
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
	Delivered  int    `json:"delivered"`
}

func deliveryResponse(r notify.Report) DeliveryResponse {
	return DeliveryResponse{Message: msgNotificationSent, Recipients: r.Recipients, Delivered: r.Delivered}
}

func (h *EventHandler) ProjectCreated(c echo.Context) error {
	name, err := h.ownedProjectName(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, deliveryResponse(h.events.ProjectCreated(c.Request().Context(), name)))
}

func (h *EventHandler) AssetsUploaded(c echo.Context) error {
	name, err := h.ownedProjectName(c)
	if err != nil {
		return err
	}

	var req AssetsUploadedRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	if req.Count <= 0 {
		return apperrors.Validation(msgCountPositive)
	}

	return c.JSON(http.StatusAccepted, deliveryResponse(h.events.AssetsUploaded(c.Request().Context(), name, req.Count)))
}

func (h *EventHandler) TicketCreated(c echo.Context) error {
	var req TicketCreatedRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	subject := strings.TrimSpace(req.Subject)
	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if subject == "" {
		return apperrors.Validation(msgSubjectRequired)
	}
	if utf8.RuneCountInString(subject) > maxEventTextLength || utf8.RuneCountInString(priority) > maxEventTextLength {
		return apperrors.Validation(msgTextTooLong)
	}
	if priority == "" {
		priority = "normal"
	}

	return c.JSON(http.StatusAccepted, deliveryResponse(h.events.TicketCreated(c.Request().Context(), subject, priority)))
}

func (h *EventHandler) ownedProjectName(c echo.Context) (string, error) {
	projectID, err := projectIDParam(c)
	if err != nil {
		return "", err
	}

	p, err := h.projects.GetByID(c.Request().Context(), projectID)
	if err != nil {
		return "", err
	}
	if err := authorizeClient(c, p.ClientID); err != nil {
		return "", err
	}

	return p.Name, nil
}
