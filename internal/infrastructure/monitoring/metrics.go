package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoansOriginatedTotal prometheus.Counter
	PaymentsTotal        *prometheus.CounterVec
	InstallmentsPaid     prometheus.Counter
	OverdueInstallments  prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoansOriginatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_loans_originated_total",
				Help: "Total number of loans successfully originated.",
			},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_payments_total",
				Help: "Total number of installment payment requests by outcome.",
			},
			[]string{"status"},
		),
		InstallmentsPaid: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_installments_paid_total",
				Help: "Total number of installments marked paid.",
			},
		),
		OverdueInstallments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loan_engine_overdue_installments",
				Help: "Number of unpaid installments past their due date, from the last scan.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanOriginated() {
	Business.LoansOriginatedTotal.Inc()
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordInstallmentsPaid(count int) {
	for i := 0; i < count; i++ {
		Business.InstallmentsPaid.Inc()
	}
}

func SetOverdueInstallments(count int) {
	Business.OverdueInstallments.Set(float64(count))
}
