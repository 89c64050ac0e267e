package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ReportingMetrics counts normalized sold lines.
type ReportingMetrics struct {
	lines *prometheus.CounterVec
}

// NewReportingMetrics registers the reporting collectors on the provided registerer.
func NewReportingMetrics(reg prometheus.Registerer) *ReportingMetrics {
	if reg == nil {
		return &ReportingMetrics{}
	}
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_normalized_lines_total",
		Help: "Sold lines normalized for reporting.",
	}, []string{"source", "estimated"})
	reg.MustRegister(lines)
	return &ReportingMetrics{lines: lines}
}

// ObserveLine counts a normalized line by source family and cost estimation.
func (m *ReportingMetrics) ObserveLine(source string, estimatedCost bool) {
	if m == nil || m.lines == nil {
		return
	}
	m.lines.WithLabelValues(normalizeLabel(source), strconv.FormatBool(estimatedCost)).Inc()
}
