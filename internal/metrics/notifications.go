package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsPublishedTotal,
		notificationsDeliveredTotal,
	)
}

var (
	notificationsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_notifications_published_total",
			Help: "Notifications handed to the broker, by kind and result (ok/failed).",
		},
		[]string{"kind", "result"},
	)

	notificationsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_notifications_delivered_total",
			Help: "Notifications delivered by the sender, by kind and result (ok/failed).",
		},
		[]string{"kind", "result"},
	)
)

// IncNotificationPublished учитывает публикацию уведомления.
func IncNotificationPublished(kind string, ok bool) {
	notificationsPublishedTotal.WithLabelValues(norm(kind), result(ok)).Inc()
}

// IncNotificationDelivered учитывает доставку уведомления по e-mail.
func IncNotificationDelivered(kind string, ok bool) {
	notificationsDeliveredTotal.WithLabelValues(norm(kind), result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
