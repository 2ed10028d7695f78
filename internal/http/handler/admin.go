package handler

import (
	"net/http"
	"strconv"
	"time"

	"portal-service/internal/audit"
	"portal-service/internal/auth"
	"portal-service/internal/domain/notification"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	notifications NotificationLister
	audit         AuditRecorder
}

type NotificationResponse struct {
	ID        uuid.UUID             `json:"id"`
	Title     string                `json:"title"`
	Message   string                `json:"message"`
	Type      notification.Severity `json:"type"`
	IsRead    bool                  `json:"is_read"`
	CreatedAt time.Time             `json:"created_at"`
}

type AuditEventResponse struct {
	ID           uuid.UUID          `json:"id"`
	EventType    string             `json:"event_type"`
	ActorType    audit.ActorType    `json:"actor_type"`
	ActorID      *uuid.UUID         `json:"actor_id,omitempty"`
	ResourceType audit.ResourceType `json:"resource_type"`
	ResourceID   *uuid.UUID         `json:"resource_id,omitempty"`
	Action       audit.Action       `json:"action"`
	Status       audit.Status       `json:"status"`
	RequestID    string             `json:"request_id,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func NewAdminHandler(notifications NotificationLister, auditLogger AuditRecorder) *AdminHandler {
	return &AdminHandler{notifications: notifications, audit: auditLogger}
}

// ListNotifications returns the caller's own inbox.
func (h *AdminHandler) ListNotifications(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	unreadOnly, _ := strconv.ParseBool(c.QueryParam(queryUnreadOnly))

	rows, err := h.notifications.ListByRecipient(c.Request().Context(), userID, unreadOnly)
	if err != nil {
		return err
	}

	out := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ListAuditEvents(c echo.Context) error {
	limit, err := intQuery(c, queryLimit)
	if err != nil || limit > maxAuditPageSize {
		return apperrors.Validation(msgInvalidPagination)
	}
	offset, err := intQuery(c, queryOffset)
	if err != nil {
		return apperrors.Validation(msgInvalidPagination)
	}

	events, err := h.audit.Query(c.Request().Context(), audit.QueryFilter{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}

	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			ID:           e.ID,
			EventType:    e.EventType,
			ActorType:    e.ActorType,
			ActorID:      e.ActorID,
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Action:       e.Action,
			Status:       e.Status,
			RequestID:    e.RequestID,
			Metadata:     e.Metadata,
			ErrorMessage: e.ErrorMessage,
			CreatedAt:    e.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, out)
}

func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(msgInvalidPagination)
	}
	return n, nil
}
