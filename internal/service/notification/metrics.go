package notification

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/splax/modulehub/internal/domain"
)

type metrics struct {
	notificationsCreated *prometheus.CounterVec
	eventsEmitted        *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modulehub",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Inbox notifications written, by type",
		}, []string{"type"}),
		eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modulehub",
			Subsystem: "notifications",
			Name:      "realtime_events_total",
			Help:      "Realtime notification frames accepted by live sessions, by type",
		}, []string{"type"}),
	}
	m.notificationsCreated = register(m.notificationsCreated)
	m.eventsEmitted = register(m.eventsEmitted)
	return m
}

// register returns the already registered collector when a second Service
// is built in the same process.
func register(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) created(kind domain.NotificationType, n int) {
	m.notificationsCreated.WithLabelValues(string(kind)).Add(float64(n))
}

func (m *metrics) emitted(kind domain.NotificationType, n int) {
	if n > 0 {
		m.eventsEmitted.WithLabelValues(string(kind)).Add(float64(n))
	}
}
