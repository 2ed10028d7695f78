//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"portal-service/internal/domain/notification"
	"portal-service/internal/domain/payment"
	"portal-service/internal/domain/project"
	"portal-service/internal/domain/user"
	"portal-service/internal/lifecycle"
	"portal-service/internal/repository/postgres"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schemaPath = "../../../database/schema.sql"

// startPostgres runs a throwaway postgres, applies the schema and returns a wrapped pool.
func startPostgres(t *testing.T, ctx context.Context) *postgres.DB {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "portal",
			"POSTGRES_PASSWORD": "portal",
			"POSTGRES_DB":       "portal",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://portal:portal@%s:%s/portal?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(schemaPath)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err, "failed to apply schema")

	return postgres.NewFromPool(pool)
}

func seedProject(t *testing.T, ctx context.Context, db *postgres.DB, price int64) *project.Project {
	t.Helper()
	p, err := postgres.NewProjectRepository(db).Create(ctx, project.CreateProjectInput{
		ClientID: uuid.New(),
		Name:     "project-" + uuid.NewString()[:8],
		Price:    price,
	})
	require.NoError(t, err)
	return p
}

func TestLedgerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	ledger := postgres.NewPaymentRepository(db)
	projects := postgres.NewProjectRepository(db)

	t.Run("create pending is idempotent per intent", func(t *testing.T) {
		p := seedProject(t, ctx, db, 10000)
		in := payment.CreatePendingInput{
			ProjectID:       p.ID,
			ClientID:        p.ClientID,
			GatewayIntentID: "pi_" + uuid.NewString(),
			Amount:          9500,
			Discount:        500,
			Currency:        "usd",
			Type:            payment.TypeInitial,
			IdempotencyKey:  uuid.NewString(),
		}

		first, err := ledger.CreatePending(ctx, in)
		require.NoError(t, err)
		second, err := ledger.CreatePending(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, payment.StatusPending, second.Status)
		assert.Equal(t, payment.DefaultMethod, second.Method)
		assert.Equal(t, int64(500), second.Discount)
		assert.Equal(t, int64(10000), second.Settles())

		in.GatewayIntentID = "pi_" + uuid.NewString()
		_, err = ledger.CreatePending(ctx, in)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("exactly one concurrent transition wins", func(t *testing.T) {
		p := seedProject(t, ctx, db, 10000)
		intentID := "pi_" + uuid.NewString()
		_, err := ledger.CreatePending(ctx, payment.CreatePendingInput{
			ProjectID:       p.ID,
			ClientID:        p.ClientID,
			GatewayIntentID: intentID,
			Amount:          10000,
			Currency:        "usd",
			Type:            payment.TypeInitial,
			IdempotencyKey:  uuid.NewString(),
		})
		require.NoError(t, err)

		const callers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := ledger.MarkSucceeded(ctx, intentID, time.Now().UTC())
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		ok, err := ledger.MarkFailed(ctx, intentID, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, ok, "terminal rows never move")

		got, err := ledger.GetByIntentID(ctx, intentID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSucceeded, got.Status)
		assert.NotNil(t, got.ProcessedAt)
	})

	t.Run("amount is immutable", func(t *testing.T) {
		p := seedProject(t, ctx, db, 500)
		created, err := ledger.CreatePending(ctx, payment.CreatePendingInput{
			ProjectID:       p.ID,
			ClientID:        p.ClientID,
			GatewayIntentID: "pi_" + uuid.NewString(),
			Amount:          500,
			Currency:        "usd",
			Type:            payment.TypeMaintenance,
			IdempotencyKey:  uuid.NewString(),
		})
		require.NoError(t, err)

		_, err = db.Pool.Exec(ctx, `UPDATE payments SET amount = 1 WHERE id = $1`, created.ID)
		assert.Error(t, err)
		_, err = db.Pool.Exec(ctx, `UPDATE payments SET discount = 100 WHERE id = $1`, created.ID)
		assert.Error(t, err)
	})

	t.Run("advance status only moves forward", func(t *testing.T) {
		p := seedProject(t, ctx, db, 10000)

		ok, err := projects.AdvanceStatus(ctx, project.AdvanceStatusInput{
			ProjectID: p.ID,
			To:        project.StatusConfirmed,
			From:      project.StatusesBefore(project.StatusConfirmed),
		})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = projects.AdvanceStatus(ctx, project.AdvanceStatusInput{
			ProjectID: p.ID,
			To:        project.StatusSubmitted,
			From:      project.StatusesBefore(project.StatusSubmitted),
		})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := projects.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, project.StatusConfirmed, got.Status)
	})

	t.Run("resolver derives status from recorded payments", func(t *testing.T) {
		p := seedProject(t, ctx, db, 10000)
		resolver := lifecycle.NewResolver(ledger, projects, zerolog.Nop())

		for _, typ := range []payment.Type{payment.TypeInitial, payment.TypeFinal} {
			intentID := "pi_" + uuid.NewString()
			_, err := ledger.CreatePending(ctx, payment.CreatePendingInput{
				ProjectID:       p.ID,
				ClientID:        p.ClientID,
				GatewayIntentID: intentID,
				Amount:          5000,
				Currency:        "usd",
				Type:            typ,
				IdempotencyKey:  uuid.NewString(),
			})
			require.NoError(t, err)
			_, err = ledger.MarkSucceeded(ctx, intentID, time.Now().UTC())
			require.NoError(t, err)
		}

		res, err := resolver.Resolve(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, project.StatusCompleted, res.Current)

		res, err = resolver.Resolve(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, res.Changed)
	})
}

func TestAdminInboxIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)

	adminID := uuid.New()
	_, err := db.Pool.Exec(ctx, `INSERT INTO users (id, email, role) VALUES ($1, $2, $3)`,
		adminID, "ops@example.com", user.RoleAdmin)
	require.NoError(t, err)

	ids, err := postgres.NewUserRepository(db).ListAdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{adminID}, ids)

	inbox := postgres.NewNotificationRepository(db)
	actorCtx := user.WithActor(ctx, user.Actor{UserID: adminID, Role: user.RoleAdmin})
	n := notification.New(adminID, "Payment Received", "Payment of 30.00 USD received.", notification.SeveritySuccess)
	require.NoError(t, inbox.Insert(actorCtx, n))

	rows, err := inbox.ListByRecipient(actorCtx, adminID, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, n.ID, rows[0].ID)
	assert.False(t, rows[0].IsRead)
}
