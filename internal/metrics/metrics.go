// Package metrics объявляет метрики Prometheus движка выдачи талонов.
// Метрики отдаются наружу через /metrics в HTTP-приложении.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CredentialsIssued — количество выданных талонов.
	CredentialsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issuance_credentials_issued_total",
		Help: "Number of meal credentials issued.",
	})

	// CustomerErrors — количество ошибок на уровне отдельного клиента.
	CustomerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issuance_customer_errors_total",
		Help: "Number of per-customer failures during issuance runs.",
	})

	// CalendarDegraded — количество срабатываний деградированного режима
	// календаря (хранилище недоступно, применяется только недельный шаблон).
	CalendarDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issuance_calendar_degraded_total",
		Help: "Number of calendar reads that fell back to the weekday-only rule.",
	})

	// RunDuration — длительность прогона ежедневной выдачи.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "issuance_run_duration_seconds",
		Help:    "Wall-clock duration of daily issuance runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})
)
