package rabbitmq

import "github.com/magabrotheeeer/premium-access/internal/models"

// QueueConfig очередь и ключ маршрутизации, по которому она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RoutingKey ключ маршрутизации для типа уведомления.
func RoutingKey(kind models.NotificationKind) string {
	return "payment." + string(kind)
}

// GetNotificationQueues возвращает очереди для всех типов уведомлений о платежах.
func GetNotificationQueues() []QueueConfig {
	kinds := []models.NotificationKind{
		models.NotifyProofSubmitted,
		models.NotifyApproved,
		models.NotifyRejected,
	}
	queues := make([]QueueConfig, 0, len(kinds))
	for _, k := range kinds {
		queues = append(queues, QueueConfig{
			QueueName:  "notifications." + string(k),
			RoutingKey: RoutingKey(k),
		})
	}
	return queues
}
