package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

func TestWebhookDecision(t *testing.T) {
	for _, s := range []string{"success", "Succeeded", " approved ", "PAID"} {
		d, err := WebhookDecision(s)
		require.NoError(t, err, s)
		assert.Equal(t, models.RecordApproved, d, s)
	}
	for _, s := range []string{"failed", "rejected", "canceled", "cancelled"} {
		d, err := WebhookDecision(s)
		require.NoError(t, err, s)
		assert.Equal(t, models.RecordRejected, d, s)
	}
	_, err := WebhookDecision("processing")
	assert.ErrorIs(t, err, ErrUnknownWebhookStatus)
}

func TestWorkflow_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("success activates subscription", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		rec, err := f.w.CreateExpressPayment(ctx, "u1", models.PlanSevenDays, 0)
		require.NoError(t, err)

		got, err := f.w.HandleWebhook(ctx, WebhookEvent{
			TransactionID: rec.Reference, Status: "succeeded", UserID: "u1", Plan: models.PlanSevenDays,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RecordApproved, got.Status)

		sub := f.store.user("u1").Subscription
		assert.True(t, sub.Active)
		assert.Equal(t, models.PlanSevenDays, sub.Plan)
		require.NotNil(t, sub.PaymentProofURI)
		assert.Equal(t, "webhook:"+rec.Reference, *sub.PaymentProofURI)
	})

	t.Run("failure rejects", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		rec, err := f.w.CreateExpressPayment(ctx, "u1", models.PlanThirtyDays, 0)
		require.NoError(t, err)

		got, err := f.w.HandleWebhook(ctx, WebhookEvent{
			TransactionID: rec.Reference, Status: "canceled", UserID: "u1", Plan: models.PlanThirtyDays,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RecordRejected, got.Status)
		require.NotNil(t, got.RejectReason)
		assert.Equal(t, "payment canceled by provider", *got.RejectReason)
		assert.Equal(t, models.EmptySubscription(), f.store.user("u1").Subscription)
	})

	t.Run("bank transfer and manual payments stay with the admin", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		bt, err := f.w.CreateBankTransferPayment(ctx, "u1", models.PlanThirtyDays, 0)
		require.NoError(t, err)
		manual, _, err := f.w.SubmitPaymentProof(ctx, ProofRequest{UserID: "u2", Plan: models.PlanSevenDays})
		require.NoError(t, err)
		u2Before := f.store.user("u2").Subscription

		_, err = f.w.HandleWebhook(ctx, WebhookEvent{
			TransactionID: bt.ReferenceID, Status: "paid", UserID: "u1", Plan: models.PlanThirtyDays,
		})
		assert.ErrorIs(t, err, ErrNotGatewayPayment)
		_, err = f.w.HandleWebhook(ctx, WebhookEvent{
			TransactionID: manual.Reference, Status: "paid", UserID: "u2", Plan: models.PlanSevenDays,
		})
		assert.ErrorIs(t, err, ErrNotGatewayPayment)
		_, err = f.w.HandleWebhook(ctx, WebhookEvent{
			TransactionID: manual.Reference, Status: "failed", UserID: "u2", Plan: models.PlanSevenDays,
		})
		assert.ErrorIs(t, err, ErrNotGatewayPayment)

		got, err := f.w.Status(ctx, bt.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, models.RecordPending, got.Status)
		got, err = f.w.Status(ctx, manual.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RecordPending, got.Status)

		assert.Equal(t, models.EmptySubscription(), f.store.user("u1").Subscription)
		assert.Equal(t, u2Before, f.store.user("u2").Subscription)
		assert.False(t, f.store.user("u1").Subscription.Active)

		f.notifier.AssertNotCalled(t, "NotifyUserApproved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mismatches and unknowns", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		rec, err := f.w.CreateExpressPayment(ctx, "u1", models.PlanSevenDays, 0)
		require.NoError(t, err)

		_, err = f.w.HandleWebhook(ctx, WebhookEvent{TransactionID: rec.Reference, Status: "paid", UserID: "u2", Plan: models.PlanSevenDays})
		assert.ErrorIs(t, err, ErrUserMismatch)

		_, err = f.w.HandleWebhook(ctx, WebhookEvent{TransactionID: rec.Reference, Status: "paid", UserID: "u1", Plan: models.PlanThirtyDays})
		assert.ErrorIs(t, err, ErrPlanMismatch)

		_, err = f.w.HandleWebhook(ctx, WebhookEvent{TransactionID: rec.Reference, Status: "pending", UserID: "u1", Plan: models.PlanSevenDays})
		assert.ErrorIs(t, err, ErrUnknownWebhookStatus)

		_, err = f.w.HandleWebhook(ctx, WebhookEvent{TransactionID: "PAY-NOPE", Status: "paid", UserID: "u1", Plan: models.PlanSevenDays})
		assert.ErrorIs(t, err, storage.ErrPaymentNotFound)

		assert.Equal(t, models.EmptySubscription(), f.store.user("u1").Subscription)
	})

	t.Run("duplicate delivery", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		rec, err := f.w.CreateExpressPayment(ctx, "u1", models.PlanSevenDays, 0)
		require.NoError(t, err)
		ev := WebhookEvent{TransactionID: rec.Reference, Status: "paid", UserID: "u1", Plan: models.PlanSevenDays}

		_, err = f.w.HandleWebhook(ctx, ev)
		require.NoError(t, err)
		_, err = f.w.HandleWebhook(ctx, ev)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
	})
}
