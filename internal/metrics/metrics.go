// Package metrics содержит Prometheus-метрики сервисов трекера.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "subscription_tracker"

// Metrics — набор метрик. Методы безопасны для nil-получателя.
type Metrics struct {
	analyticsRequests *prometheus.CounterVec
	analyticsErrors   *prometheus.CounterVec
	overlapAlerts     *prometheus.CounterVec
	potentialSavings  prometheus.Histogram
	rollforwards      prometheus.Counter
	published         *prometheus.CounterVec
	delivered         *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	botCommands       *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default возвращает метрики, зарегистрированные в prometheus.DefaultRegisterer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyticsRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "requests_total",
				Help:      "Total analytics requests by operation",
			},
			[]string{"operation"},
		),
		analyticsErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Total analytics requests failed on store access",
			},
			[]string{"operation"},
		),
		overlapAlerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "overlap_alerts_total",
				Help:      "Total overlap alerts produced by overlap type",
			},
			[]string{"type"},
		),
		potentialSavings: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "potential_savings_rub",
				Help:      "Deduplicated monthly potential savings per overlap detection",
				Buckets:   []float64{0, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		rollforwards: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "rollforwards_total",
				Help:      "Total subscriptions whose next billing date was advanced",
			},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "notifications_published_total",
				Help:      "Total notifications published by kind and result",
			},
			[]string{"kind", "result"},
		),
		delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sender",
				Name:      "notifications_delivered_total",
				Help:      "Total notifications delivered to Telegram by kind and result",
			},
			[]string{"kind", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
		botCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bot",
				Name:      "commands_total",
				Help:      "Total bot commands handled",
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(
		m.analyticsRequests,
		m.analyticsErrors,
		m.overlapAlerts,
		m.potentialSavings,
		m.rollforwards,
		m.published,
		m.delivered,
		m.httpRequests,
		m.botCommands,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// AnalyticsRequest учитывает обращение к аналитике.
func (m *Metrics) AnalyticsRequest(operation string, err error) {
	if m == nil {
		return
	}
	m.analyticsRequests.WithLabelValues(operation).Inc()
	if err != nil {
		m.analyticsErrors.WithLabelValues(operation).Inc()
	}
}

// OverlapAlert учитывает найденное пересечение.
func (m *Metrics) OverlapAlert(overlapType string) {
	if m == nil {
		return
	}
	m.overlapAlerts.WithLabelValues(overlapType).Inc()
}

// PotentialSavings фиксирует суммарную возможную экономию.
func (m *Metrics) PotentialSavings(amount float64) {
	if m == nil {
		return
	}
	m.potentialSavings.Observe(amount)
}

// Rollforward учитывает продлённые подписки.
func (m *Metrics) Rollforward(n int) {
	if m == nil {
		return
	}
	m.rollforwards.Add(float64(n))
}

// Published учитывает публикацию уведомления.
func (m *Metrics) Published(kind string, err error) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind, result(err)).Inc()
}

// Delivered учитывает доставку уведомления.
func (m *Metrics) Delivered(kind string, err error) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(kind, result(err)).Inc()
}

// HTTPRequest учитывает обработанный HTTP-запрос.
func (m *Metrics) HTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// BotCommand учитывает команду бота.
func (m *Metrics) BotCommand(command string) {
	if m == nil {
		return
	}
	m.botCommands.WithLabelValues(command).Inc()
}
