package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	AuditRecords    *prometheus.CounterVec
	AuthzDenials    *prometheus.CounterVec
	MutationsFailed *prometheus.CounterVec
	OutboxPublished prometheus.Counter
}

// New creates and registers all Prometheus metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaddesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AuditRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_audit_records_total",
			Help: "Audit ledger records written, by entity and action.",
		}, []string{"entity", "action"}),
		AuthzDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_authz_denials_total",
			Help: "Requests denied by the authorization gate, by reason.",
		}, []string{"reason"}),
		MutationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_mutations_failed_total",
			Help: "Mutations rolled back, by entity.",
		}, []string{"entity"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_audit_outbox_published_total",
			Help: "Audit outbox entries published to the stream.",
		}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// RecordAudit counts one written ledger record.
func (m *Metrics) RecordAudit(entity, action string) {
	m.AuditRecords.WithLabelValues(entity, action).Inc()
}

// RecordDenial counts one gate denial; reason is "unauthenticated" or
// "forbidden".
func (m *Metrics) RecordDenial(reason string) {
	m.AuthzDenials.WithLabelValues(reason).Inc()
}

// RecordMutationFailure counts one rolled-back mutation.
func (m *Metrics) RecordMutationFailure(entity string) {
	m.MutationsFailed.WithLabelValues(entity).Inc()
}
