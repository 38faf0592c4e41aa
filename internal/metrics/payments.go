package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsCreatedTotal,
		paymentDecisionsTotal,
		paymentsApprovedAmountTotal,
	)
}

var (
	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_payments_created_total",
			Help: "Ledger records created, by method and plan.",
		},
		[]string{"method", "plan"},
	)

	paymentDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_payment_decisions_total",
			Help: "Admin decisions on payments (approved/rejected/already_finalized/failed).",
		},
		[]string{"outcome"},
	)

	paymentsApprovedAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_payments_approved_amount_total",
			Help: "Sum of approved payment amounts, by plan.",
		},
		[]string{"plan"},
	)
)

// IncPaymentCreated учитывает новую запись журнала.
func IncPaymentCreated(method, plan string) {
	paymentsCreatedTotal.WithLabelValues(norm(method), norm(plan)).Inc()
}

// IncPaymentDecision учитывает исход решения администратора.
func IncPaymentDecision(outcome string) {
	paymentDecisionsTotal.WithLabelValues(norm(outcome)).Inc()
}

// AddApprovedAmount добавляет сумму одобренного платежа.
func AddApprovedAmount(plan string, amount int64) {
	paymentsApprovedAmountTotal.WithLabelValues(norm(plan)).Add(float64(amount))
}
