package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/premium-access/internal/migrations"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции проекта.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	path, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, path))

	return s
}

// testDataFactory создаёт тестовые данные через публичное API хранилища.
type testDataFactory struct {
	storage *Storage
}

func (f *testDataFactory) user(t *testing.T, username string) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hash",
		TrialStart:   time.Now().UTC().Truncate(time.Microsecond),
		Subscription: models.EmptySubscription(),
	}
	require.NoError(t, f.storage.CreateUser(context.Background(), u))
	return u
}

func (f *testDataFactory) payment(t *testing.T, userID, reference string) models.PaymentRecord {
	t.Helper()
	p := models.PaymentRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      models.PlanThirtyDays,
		Amount:    149,
		Reference: reference,
		Status:    models.RecordPending,
		Method:    models.MethodBankTransfer,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, f.storage.CreatePayment(context.Background(), p))
	return p
}
