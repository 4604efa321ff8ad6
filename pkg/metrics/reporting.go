package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReportingMetrics records refund upload outcomes by terminal status.
type ReportingMetrics struct {
	uploads *prometheus.CounterVec
}

// NewReportingMetrics registers the reporting worker metrics on the provided registerer.
func NewReportingMetrics(reg prometheus.Registerer) *ReportingMetrics {
	if reg == nil {
		return &ReportingMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceNamespace,
		Name:      "refund_report_uploads",
		Help:      "Refund report upload attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(uploads)
	return &ReportingMetrics{uploads: uploads}
}

// IncOutcome increments the upload counter for the given outcome label.
func (r *ReportingMetrics) IncOutcome(outcome string) {
	if r == nil || r.uploads == nil {
		return
	}
	r.uploads.WithLabelValues(normalizeLabel(outcome)).Inc()
}
