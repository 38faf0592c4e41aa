package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/premium-access/internal/models"
)

func TestStorage_Users(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	require.NoError(t, s.Ready(ctx))

	u := f.user(t, "alice")

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Username, got.Username)
		assert.Equal(t, models.PlanNone, got.Subscription.Plan)
		assert.Equal(t, models.PaymentStatusNone, got.Subscription.PaymentStatus)
		assert.True(t, u.TrialStart.Equal(got.TrialStart))
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := s.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := u
		dup.ID = uuid.NewString()
		dup.Email = "other@example.com"
		err := s.CreateUser(ctx, dup)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.GetUser(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = s.GetUser(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("save subscription", func(t *testing.T) {
		start := time.Now().UTC().Truncate(time.Microsecond)
		end := start.Add(30 * models.Day)
		proof := "s3://proofs/1.png"
		sub := models.Subscription{
			Plan:            models.PlanThirtyDays,
			Active:          true,
			StartDate:       &start,
			EndDate:         &end,
			PaymentProofURI: &proof,
			PaymentStatus:   models.PaymentStatusApproved,
		}
		require.NoError(t, s.SaveSubscription(ctx, u.ID, sub))

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Subscription.Active)
		assert.Equal(t, models.PlanThirtyDays, got.Subscription.Plan)
		require.NotNil(t, got.Subscription.EndDate)
		assert.True(t, end.Equal(*got.Subscription.EndDate))
		require.NotNil(t, got.Subscription.PaymentProofURI)
		assert.Equal(t, proof, *got.Subscription.PaymentProofURI)
		assert.Nil(t, got.Subscription.RejectReason)
	})

	t.Run("active without approval violates constraint", func(t *testing.T) {
		start := time.Now().UTC()
		end := start.Add(models.Day)
		err := s.SaveSubscription(ctx, u.ID, models.Subscription{
			Plan:          models.PlanSevenDays,
			Active:        true,
			StartDate:     &start,
			EndDate:       &end,
			PaymentStatus: models.PaymentStatusPending,
		})
		assert.Error(t, err)
	})

	t.Run("save for unknown user", func(t *testing.T) {
		err := s.SaveSubscription(ctx, uuid.NewString(), models.EmptySubscription())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestStorage_Payments(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	u := f.user(t, "bob")
	p1 := f.payment(t, u.ID, "PAY-1")
	p2 := f.payment(t, u.ID, "PAY-2")

	t.Run("get and lookup by reference", func(t *testing.T) {
		got, err := s.GetPayment(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, "PAY-1", got.Reference)
		assert.Equal(t, models.RecordPending, got.Status)
		assert.Nil(t, got.ApprovedAt)

		got, err = s.GetPaymentByReference(ctx, "PAY-2")
		require.NoError(t, err)
		assert.Equal(t, p2.ID, got.ID)
	})

	t.Run("reference collision", func(t *testing.T) {
		dup := p1
		dup.ID = uuid.NewString()
		err := s.CreatePayment(ctx, dup)
		assert.ErrorIs(t, err, ErrReferenceExists)
	})

	t.Run("payment for unknown user", func(t *testing.T) {
		p := p1
		p.ID = uuid.NewString()
		p.Reference = "PAY-ORPHAN"
		p.UserID = uuid.NewString()
		err := s.CreatePayment(ctx, p)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("finalize once", func(t *testing.T) {
		now := time.Now().UTC()
		require.NoError(t, s.FinalizePayment(ctx, p1.ID, models.RecordApproved, &now, nil))

		got, err := s.GetPayment(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RecordApproved, got.Status)
		assert.NotNil(t, got.ApprovedAt)

		reason := "late"
		err = s.FinalizePayment(ctx, p1.ID, models.RecordRejected, nil, &reason)
		assert.ErrorIs(t, err, ErrNotPending)

		got, err = s.GetPayment(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RecordApproved, got.Status)
	})

	t.Run("finalize unknown", func(t *testing.T) {
		err := s.FinalizePayment(ctx, uuid.NewString(), models.RecordApproved, nil, nil)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("list by user", func(t *testing.T) {
		list, err := s.ListPaymentsByUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = s.ListPaymentsByUser(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestStorage_ConcurrentFinalize(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	u := f.user(t, "carol")
	p := f.payment(t, u.ID, "PAY-RACE")

	statuses := []models.RecordStatus{models.RecordApproved, models.RecordRejected}
	errs := make([]error, len(statuses))

	var wg sync.WaitGroup
	for i, st := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.WithinTx(ctx, func(ctx context.Context) error {
				rec, err := s.GetPaymentForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				if rec.Status != models.RecordPending {
					return ErrNotPending
				}
				return s.FinalizePayment(ctx, p.ID, st, nil, nil)
			})
		}()
	}
	wg.Wait()

	var ok, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotPending):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, lost)
}

func TestStorage_WithinTxRollback(t *testing.T) {
	s := setupTestDatabase(t)
	f := &testDataFactory{storage: s}
	ctx := context.Background()

	u := f.user(t, "dave")
	p := f.payment(t, u.ID, "PAY-TX")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.FinalizePayment(ctx, p.ID, models.RecordApproved, nil, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordPending, got.Status, "откат транзакции должен вернуть pending")
}
