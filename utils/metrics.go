package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит метрики приложения
type Metrics struct {
	registry *prometheus.Registry

	// Метрики запросов
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Метрики графика платежей
	PaymentsApplied   *prometheus.CounterVec
	AmountApplied     prometheus.Counter
	ScheduleMutations *prometheus.CounterVec
	RejectedOps       *prometheus.CounterVec
	ContractsByStatus *prometheus.CounterVec

	// Метрики уведомлений
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики в отдельном реестре
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_http_requests_total",
			Help: "Количество HTTP запросов",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qurilish_http_request_duration_seconds",
			Help:    "Длительность HTTP запросов",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PaymentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_payments_applied_total",
			Help: "Количество принятых платежей",
		}, []string{"type"}),
		AmountApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qurilish_payments_amount_total",
			Help: "Сумма принятых платежей",
		}),
		ScheduleMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_schedule_mutations_total",
			Help: "Изменения графиков платежей",
		}, []string{"operation"}),
		RejectedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_rejected_operations_total",
			Help: "Отклоненные операции по виду ошибки",
		}, []string{"operation", "kind"}),
		ContractsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_contract_transitions_total",
			Help: "Переходы договоров между статусами",
		}, []string{"status"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qurilish_notifications_total",
			Help: "Отправленные уведомления",
		}, []string{"channel", "result"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.PaymentsApplied,
		m.AmountApplied,
		m.ScheduleMutations,
		m.RejectedOps,
		m.ContractsByStatus,
		m.NotificationsSent,
	)

	return m
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(method, route string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPayment записывает принятый платеж
func (m *Metrics) RecordPayment(kind string, amount float64) {
	if m == nil {
		return
	}
	m.PaymentsApplied.WithLabelValues(kind).Inc()
	m.AmountApplied.Add(amount)
}

// RecordMutation записывает изменение графика
func (m *Metrics) RecordMutation(operation string) {
	if m == nil {
		return
	}
	m.ScheduleMutations.WithLabelValues(operation).Inc()
}

// RecordRejected записывает отклоненную операцию
func (m *Metrics) RecordRejected(operation, kind string) {
	if m == nil {
		return
	}
	m.RejectedOps.WithLabelValues(operation, kind).Inc()
}

// RecordTransition записывает переход договора в статус
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.ContractsByStatus.WithLabelValues(status).Inc()
}

// RecordNotification записывает результат отправки уведомления
func (m *Metrics) RecordNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsSent.WithLabelValues(channel, result).Inc()
}
