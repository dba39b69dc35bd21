package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shipstream/notifier/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	TasksCompleted      *prometheus.CounterVec
	TasksFailed         *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	SendLatency         *prometheus.HistogramVec
	QueueDepth          *prometheus.GaugeVec
}

// New registers all instruments with the given registerer and returns the
// populated Metrics struct. Using a custom registry (instead of
// prometheus.DefaultRegisterer) keeps tests isolated and avoids global
// state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_tasks_completed_total",
			Help: "Total number of tasks acknowledged as completed, per queue.",
		}, []string{"queue"}),

		TasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_tasks_failed_total",
			Help: "Total number of task failures (including retried attempts), per queue.",
		}, []string{"queue"}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of failed notification send attempts.",
		}, []string{"channel"}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_send_seconds",
			Help:    "Provider send latency from dispatch to ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of tasks per queue and status.",
		}, []string{"queue", "status"}),
	}

	reg.MustRegister(
		m.TasksCompleted,
		m.TasksFailed,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.SendLatency,
		m.QueueDepth,
	)

	return m
}

// DispatchHooks returns the metric callbacks expected by dispatch.Hooks.
// Centralises the prometheus observation calls so the dispatchers stay
// metrics-agnostic.
func (m *Metrics) DispatchHooks() (
	onCompleted func(queue string, n int),
	onTaskFailed func(queue string, n int),
	onSent func(ch domain.Channel, latency time.Duration),
	onSendFailed func(ch domain.Channel),
) {
	onCompleted = func(queue string, n int) {
		m.TasksCompleted.WithLabelValues(queue).Add(float64(n))
	}
	onTaskFailed = func(queue string, n int) {
		m.TasksFailed.WithLabelValues(queue).Add(float64(n))
	}
	onSent = func(ch domain.Channel, latency time.Duration) {
		m.NotificationsSent.WithLabelValues(string(ch)).Inc()
		m.SendLatency.WithLabelValues(string(ch)).Observe(latency.Seconds())
	}
	onSendFailed = func(ch domain.Channel) {
		m.NotificationsFailed.WithLabelValues(string(ch)).Inc()
	}
	return
}
