package netinfo

import "github.com/prometheus/client_golang/prometheus"

// Prometheus report metrics, shared by both variants.
var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netbridge_reports_total",
			Help: "Total number of change reports delivered.",
		},
		[]string{"variant", "type"},
	)
	reportsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netbridge_reports_suppressed_total",
			Help: "Observations that produced no report because nothing changed.",
		},
		[]string{"variant"},
	)
	enrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netbridge_enrichment_failures_total",
			Help: "Failed Wi-Fi enrichment attempts by field.",
		},
		[]string{"field"},
	)
	nrAvailableGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "netbridge_nr_available",
			Help: "1 when the last service state reported NR availability.",
		},
	)
)

func init() {
	prometheus.MustRegister(reportsTotal)
	prometheus.MustRegister(reportsSuppressed)
	prometheus.MustRegister(enrichmentFailures)
	prometheus.MustRegister(nrAvailableGauge)
}

// RecordReport counts a delivered report, or a suppressed one when
// reported is false.
func RecordReport(variant string, class string, reported bool) {
	if !reported {
		reportsSuppressed.WithLabelValues(variant).Inc()
		return
	}
	reportsTotal.WithLabelValues(variant, class).Inc()
}

// RecordEnrichmentFailure counts a failed enrichment of field.
func RecordEnrichmentFailure(field string) {
	enrichmentFailures.WithLabelValues(field).Inc()
}

func recordNR(available bool) {
	if available {
		nrAvailableGauge.Set(1)
		return
	}
	nrAvailableGauge.Set(0)
}
