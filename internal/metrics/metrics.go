package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the back office.
type Metrics struct {
	WebhookEvents *prometheus.CounterVec
	SyncRuns      *prometheus.CounterVec
	SyncDuration  prometheus.Histogram
	Registrations *prometheus.CounterVec
}

// New registers the application metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renolink_webhook_events_total",
			Help: "Webhook events by provider, type and outcome.",
		}, []string{"provider", "event_type", "outcome"}),
		SyncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renolink_content_sync_runs_total",
			Help: "Content sync runs by outcome.",
		}, []string{"outcome"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "renolink_content_sync_duration_seconds",
			Help:    "Duration of content sync runs.",
			Buckets: prometheus.DefBuckets,
		}),
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renolink_tenant_registrations_total",
			Help: "Tenant registration attempts by outcome.",
		}, []string{"outcome"}),
	}
}
