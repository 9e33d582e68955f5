// Prometheus metrics for observability.
//
// Exposed series:
//   - markmon_webhooks_total{dialect}          – accepted payloads per dialect
//   - markmon_webhooks_rejected_total{reason}  – refused payloads per reason
//   - markmon_broadcasts_total{event}          – pushes to subscribers
//   - markmon_subscribers                      – currently attached clients
//   - markmon_war_active                       – derived war flag (0/1)
//   - markmon_password_attempts_total{result}  – dashboard gate attempts
//
// Registered in init() and served by the HTTP handler at /metrics.

package markmon

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxWebhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markmon_webhooks_total",
			Help: "Webhook payloads accepted, per dialect",
		},
		[]string{"dialect"},
	)

	mtxWebhookRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markmon_webhooks_rejected_total",
			Help: "Webhook payloads rejected, per reason",
		},
		[]string{"reason"},
	)

	mtxBroadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markmon_broadcasts_total",
			Help: "State pushes to subscribers, per event name",
		},
		[]string{"event"},
	)

	gaugeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "markmon_subscribers",
			Help: "Currently connected dashboard subscribers",
		},
	)

	gaugeWarActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "markmon_war_active",
			Help: "Derived war flag (1 active, 0 inactive)",
		},
	)

	mtxPasswordAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markmon_password_attempts_total",
			Help: "Dashboard password attempts by result (ok|bad|limited)",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(mtxWebhooks, mtxWebhookRejects, mtxBroadcasts)
	prometheus.MustRegister(gaugeSubscribers, gaugeWarActive)
	prometheus.MustRegister(mtxPasswordAttempts)
}

// Helper setters, callable from the transport layer as well.
func IncWebhookMetric(dialect string)        { mtxWebhooks.WithLabelValues(dialect).Inc() }
func IncWebhookRejectMetric(reason string)   { mtxWebhookRejects.WithLabelValues(reason).Inc() }
func IncBroadcastMetric(event string)        { mtxBroadcasts.WithLabelValues(event).Inc() }
func IncPasswordAttemptMetric(result string) { mtxPasswordAttempts.WithLabelValues(result).Inc() }

func setSubscribersMetric(n int) { gaugeSubscribers.Set(float64(n)) }

func setWarMetric(active bool) {
	if active {
		gaugeWarActive.Set(1)
	} else {
		gaugeWarActive.Set(0)
	}
}
