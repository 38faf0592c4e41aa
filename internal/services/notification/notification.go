// Package notification публикует сигналы о смене состояния платежа в RabbitMQ.
// Доставку выполняет отдельный сервис notification-sender.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/premium-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

// Publisher реализует NotificationDispatch поверх обменника RabbitMQ.
type Publisher struct {
	ch       rabbitmq.Channel
	exchange string
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт издателя уведомлений.
func New(ch rabbitmq.Channel, exchange string, log *slog.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		log:      log,
		now:      time.Now,
	}
}

// NotifyAdminProofSubmitted сообщает администратору о новом подтверждении оплаты.
func (p *Publisher) NotifyAdminProofSubmitted(ctx context.Context, userID, paymentID string, plan models.Plan) error {
	return p.publish(ctx, models.Notification{
		Kind:      models.NotifyProofSubmitted,
		UserID:    userID,
		PaymentID: paymentID,
		Plan:      plan,
	})
}

// NotifyUserApproved сообщает пользователю об одобрении оплаты.
func (p *Publisher) NotifyUserApproved(ctx context.Context, userID, paymentID string, plan models.Plan) error {
	return p.publish(ctx, models.Notification{
		Kind:      models.NotifyApproved,
		UserID:    userID,
		PaymentID: paymentID,
		Plan:      plan,
	})
}

// NotifyUserRejected сообщает пользователю об отклонении оплаты.
func (p *Publisher) NotifyUserRejected(ctx context.Context, userID, paymentID, reason string) error {
	return p.publish(ctx, models.Notification{
		Kind:      models.NotifyRejected,
		UserID:    userID,
		PaymentID: paymentID,
		Reason:    reason,
	})
}

func (p *Publisher) publish(ctx context.Context, n models.Notification) error {
	const op = "services.notification.publish"

	n.OccurredAt = p.now().UTC()
	err := rabbitmq.PublishMessage(ctx, p.ch, p.exchange, rabbitmq.RoutingKey(n.Kind), n)
	metrics.IncNotificationPublished(string(n.Kind), err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("notification published",
		slog.String("kind", string(n.Kind)), sl.UserID(n.UserID), sl.PaymentID(n.PaymentID))
	return nil
}
