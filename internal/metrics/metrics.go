package metrics

import (
    "time"
    "github.com/prometheus/client_golang/prometheus"
)

var (
    certsIssued = prometheus.NewCounter(
        prometheus.CounterOpts{Namespace: "certd", Subsystem: "certificates", Name: "issued_total", Help: "Certificates issued"},
    )
    certsRevoked = prometheus.NewCounter(
        prometheus.CounterOpts{Namespace: "certd", Subsystem: "certificates", Name: "revoked_total", Help: "Successful revoke calls"},
    )
    certsVerified = prometheus.NewCounterVec(
        prometheus.CounterOpts{Namespace: "certd", Subsystem: "certificates", Name: "verified_total", Help: "Verify calls by outcome"},
        []string{"outcome"},
    )
    webhookFailures = prometheus.NewCounter(
        prometheus.CounterOpts{Namespace: "certd", Subsystem: "webhook", Name: "failures_total", Help: "Webhook send failures"},
    )
    webhookLatency = prometheus.NewSummary(
        prometheus.SummaryOpts{Namespace: "certd", Subsystem: "webhook", Name: "latency_seconds", Help: "Webhook latency"},
    )
    webhookEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{Namespace: "certd", Subsystem: "webhook", Name: "events_total", Help: "Webhook outcomes by event"},
        []string{"event", "outcome"},
    )
    storeLatency = prometheus.NewSummaryVec(
        prometheus.SummaryOpts{Namespace: "certd", Subsystem: "store", Name: "latency_seconds", Help: "Store operation latency"},
        []string{"op"},
    )
    storeUp = prometheus.NewGauge(
        prometheus.GaugeOpts{Namespace: "certd", Subsystem: "store", Name: "up", Help: "1 when the last store ping succeeded"},
    )
)

func init() {
    prometheus.MustRegister(certsIssued, certsRevoked, certsVerified, webhookFailures, webhookLatency, webhookEvents, storeLatency, storeUp)
}

func IncIssued() { certsIssued.Inc() }
func IncRevoked() { certsRevoked.Inc() }

// IncVerified records a verify outcome: "valid", "revoked" or "not_found".
func IncVerified(outcome string) { certsVerified.WithLabelValues(outcome).Inc() }
func IncWebhookFailure() { webhookFailures.Inc() }
func ObserveWebhookLatency(d time.Duration) { webhookLatency.Observe(d.Seconds()) }
func IncWebhookEvent(event, outcome string) { webhookEvents.WithLabelValues(event, outcome).Inc() }
func ObserveStore(op string, d time.Duration) { storeLatency.WithLabelValues(op).Observe(d.Seconds()) }

func SetStoreUp(up bool) {
    if up { storeUp.Set(1); return }
    storeUp.Set(0)
}
