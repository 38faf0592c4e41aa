package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(accessEvaluationsTotal)
}

var accessEvaluationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "premium_access_evaluations_total",
		Help: "Access policy evaluations by result (admin/paid/trial/denied).",
	},
	[]string{"result"},
)

// IncAccessEvaluation учитывает одно вычисление политики доступа.
func IncAccessEvaluation(result string) {
	accessEvaluationsTotal.WithLabelValues(norm(result)).Inc()
}
