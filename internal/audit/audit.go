// Package audit records operator and payment actions in audit_events.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"portal-service/internal/domain/user"
	"portal-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

type ResourceType string

const (
	ResourceTypePayment ResourceType = "payment"
	ResourceTypeProject ResourceType = "project"
)

type Action string

const (
	ActionReconcile           Action = "reconcile"
	ActionReconcileAllPending Action = "reconcile_all_pending"
	ActionResolveStatus       Action = "resolve_status"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

const asyncWriteTimeout = 2 * time.Second

type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorType    ActorType
	ActorID      *uuid.UUID
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	ErrorMessage string
	CreatedAt    time.Time
}

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Logger struct {
	db  DB
	log zerolog.Logger
	wg  sync.WaitGroup
}

func NewLogger(db DB, log zerolog.Logger) *Logger {
	return &Logger{db: db, log: log.With().Str("component", "audit").Logger()}
}

// Log records an audit event synchronously.
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.EventType == "" {
		event.EventType = string(event.Action) + "_" + string(event.ResourceType)
	}

	var metadataJSON []byte
	var err error
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(logger.SanitizeMap(event.Metadata))
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_type, actor_id, resource_type, resource_id,
			action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = l.db.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.ActorType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.ErrorMessage,
		event.CreatedAt,
	)

	return err
}

// Record builds an event from the request and writes it in the background.
// A failed write is logged and never reaches the caller.
func (l *Logger) Record(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any, cause error) {
	event := FromRequest(c, resourceType, resourceID, action, status, metadata)
	if cause != nil {
		event.ErrorMessage = logger.SanitizeLogMessage(cause.Error())
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), asyncWriteTimeout)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			l.log.Error().Err(err).Str("event_type", event.EventType).Msg("audit write failed")
		}
	}()
}

// Wait blocks until background writes have finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

// FromRequest fills in actor and request details for an event.
func FromRequest(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any) *Event {
	event := &Event{
		EventType:    string(action) + "_" + string(resourceType),
		ActorType:    ActorTypeSystem,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
		Metadata:     metadata,
	}

	if actor, ok := user.ActorFromContext(c.Request().Context()); ok {
		uid := actor.UserID
		event.ActorType = ActorTypeUser
		event.ActorID = &uid
	}

	return event
}

type QueryFilter struct {
	ActorID      *uuid.UUID
	ResourceType *ResourceType
	ResourceID   *uuid.UUID
	Action       *Action
	Status       *Status
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

const defaultQueryLimit = 100

func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	query := `
		SELECT id, event_type, actor_type, actor_id, resource_type, resource_id,
		       action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	argCount := 1

	add := func(clause string, v any) {
		query += fmt.Sprintf(clause, argCount)
		args = append(args, v)
		argCount++
	}

	if filter.ActorID != nil {
		add(" AND actor_id = $%d", *filter.ActorID)
	}
	if filter.ResourceType != nil {
		add(" AND resource_type = $%d", string(*filter.ResourceType))
	}
	if filter.ResourceID != nil {
		add(" AND resource_id = $%d", *filter.ResourceID)
	}
	if filter.Action != nil {
		add(" AND action = $%d", string(*filter.Action))
	}
	if filter.Status != nil {
		add(" AND status = $%d", string(*filter.Status))
	}
	if filter.StartTime != nil {
		add(" AND created_at >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add(" AND created_at <= $%d", *filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	add(" LIMIT $%d", limit)

	if filter.Offset > 0 {
		add(" OFFSET $%d", filter.Offset)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte
		var ipAddress, userAgent, requestID, errorMessage *string

		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.ActorType,
			&event.ActorID,
			&event.ResourceType,
			&event.ResourceID,
			&event.Action,
			&event.Status,
			&ipAddress,
			&userAgent,
			&requestID,
			&metadataJSON,
			&errorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		event.IPAddress = deref(ipAddress)
		event.UserAgent = deref(userAgent)
		event.RequestID = deref(requestID)
		event.ErrorMessage = deref(errorMessage)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
