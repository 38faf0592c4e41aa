package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

var (
	// ErrUnknownWebhookStatus статус платёжного провайдера не распознан.
	ErrUnknownWebhookStatus = errors.New("unknown webhook status")
	// ErrNotGatewayPayment платёж создан не через провайдера и решается только администратором.
	ErrNotGatewayPayment = errors.New("payment is not a gateway payment")
)

// WebhookEvent уведомление платёжного провайдера. TransactionID это ссылка платежа.
type WebhookEvent struct {
	TransactionID string
	Status        string
	UserID        string
	Plan          models.Plan
}

// WebhookDecision решение, которое означает статус провайдера.
func WebhookDecision(status string) (models.RecordStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "succeeded", "approved", "paid":
		return models.RecordApproved, nil
	case "failed", "rejected", "canceled", "cancelled":
		return models.RecordRejected, nil
	}
	return "", ErrUnknownWebhookStatus
}

// HandleWebhook применяет решение провайдера к платежу, созданному через
// CreateExpressPayment. Банковские переводы и ручные платежи провайдер не решает.
// Успешная оплата считается подтверждением: если подписка пользователя ещё
// не ожидает решения, она переводится в pending и сразу одобряется.
func (w *Workflow) HandleWebhook(ctx context.Context, ev WebhookEvent) (*models.PaymentRecord, error) {
	const op = "services.payment.HandleWebhook"

	decision, err := WebhookDecision(ev.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rec *models.PaymentRecord
	err = w.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = w.pendingByReference(ctx, ev.TransactionID, ev.UserID, ev.Plan)
		if err != nil {
			return err
		}
		if rec.Method != models.MethodExpress {
			return ErrNotGatewayPayment
		}

		if decision == models.RecordRejected {
			reason := "payment " + strings.ToLower(strings.TrimSpace(ev.Status)) + " by provider"
			return w.rejectLocked(ctx, rec, &reason)
		}

		u, err := w.subs.Load(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if u.Subscription.PaymentStatus != models.PaymentStatusPending {
			if _, err := w.subs.SubmitPaymentProof(ctx, rec.UserID, "webhook:"+rec.Reference, rec.Plan); err != nil {
				return err
			}
		}
		return w.approveLocked(ctx, rec)
	})
	if err != nil {
		w.log.Warn("webhook not applied", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if decision == models.RecordApproved {
		w.approved(ctx, rec)
	} else {
		w.rejected(ctx, rec, rec.RejectReason)
	}
	return rec, nil
}
