package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"portal-service/internal/domain/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDB struct {
	mu    sync.Mutex
	execs [][]any
	err   error
}

func (d *recordingDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.execs = append(d.execs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), d.err
}

func (d *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func newContext(actor *user.Actor) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/reconcile-pending", nil)
	req.Header.Set("User-Agent", "ops-cli/1.0")
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	if actor != nil {
		req = req.WithContext(user.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	rec.Header().Set(echo.HeaderXRequestID, "req-123")
	return e.NewContext(req, rec)
}

func TestFromRequestUsesActor(t *testing.T) {
	actor := user.Actor{UserID: uuid.New(), Role: user.RoleAdmin}
	c := newContext(&actor)

	event := FromRequest(c, ResourceTypePayment, nil, ActionReconcileAllPending, StatusSuccess, map[string]any{"forced": 3})

	assert.Equal(t, "reconcile_all_pending_payment", event.EventType)
	assert.Equal(t, ActorTypeUser, event.ActorType)
	require.NotNil(t, event.ActorID)
	assert.Equal(t, actor.UserID, *event.ActorID)
	assert.Equal(t, "10.0.0.7", event.IPAddress)
	assert.Equal(t, "ops-cli/1.0", event.UserAgent)
	assert.Equal(t, "req-123", event.RequestID)
}

func TestFromRequestWithoutActor(t *testing.T) {
	event := FromRequest(newContext(nil), ResourceTypeProject, nil, ActionResolveStatus, StatusSuccess, nil)

	assert.Equal(t, ActorTypeSystem, event.ActorType)
	assert.Nil(t, event.ActorID)
}

func TestRecordWritesInBackground(t *testing.T) {
	db := &recordingDB{}
	l := NewLogger(db, zerolog.Nop())
	paymentID := uuid.New()

	l.Record(newContext(nil), ResourceTypePayment, &paymentID, ActionReconcile, StatusDenied, nil, errors.New("payment already failed"))
	l.Wait()

	require.Len(t, db.execs, 1)
	args := db.execs[0]
	assert.Equal(t, "reconcile_payment", args[1])
	assert.Equal(t, &paymentID, args[5])
	assert.Equal(t, StatusDenied, args[7])
	assert.Nil(t, args[11])
	assert.Equal(t, "payment already failed", args[12])
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	db := &recordingDB{err: errors.New("relation audit_events does not exist")}
	l := NewLogger(db, zerolog.Nop())

	assert.NotPanics(t, func() {
		l.Record(newContext(nil), ResourceTypePayment, nil, ActionReconcileAllPending, StatusFailure, nil, nil)
		l.Wait()
	})
	assert.Len(t, db.execs, 1)
}

func TestLogMarshalsMetadata(t *testing.T) {
	db := &recordingDB{}
	l := NewLogger(db, zerolog.Nop())

	err := l.Log(context.Background(), &Event{
		ActorType:    ActorTypeSystem,
		ResourceType: ResourceTypePayment,
		Action:       ActionReconcileAllPending,
		Status:       StatusSuccess,
		Metadata:     map[string]any{"forced": 2},
	})
	require.NoError(t, err)

	args := db.execs[0]
	assert.NotEqual(t, uuid.Nil, args[0])
	assert.JSONEq(t, `{"forced":2}`, string(args[11].([]byte)))
}

func TestRecordRedactsSecrets(t *testing.T) {
	db := &recordingDB{}
	l := NewLogger(db, zerolog.Nop())

	l.Record(newContext(nil), ResourceTypePayment, nil, ActionReconcile, StatusFailure,
		map[string]any{"client_secret": "pi_1_secret_abc", "path": "fallback"},
		errors.New("gateway rejected pi_1Ab_secret_xyz9"))
	l.Wait()

	require.Len(t, db.execs, 1)
	args := db.execs[0]
	assert.JSONEq(t, `{"client_secret":"[REDACTED]","path":"fallback"}`, string(args[11].([]byte)))
	assert.NotContains(t, args[12], "pi_1Ab_secret_xyz9")
}
