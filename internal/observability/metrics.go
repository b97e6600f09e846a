package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	reportsGeneratedTotal   *prometheus.CounterVec
	reportGenerationSeconds *prometheus.HistogramVec
	csvExportsTotal         *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for API and
// report-generation observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		reportsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Report generation outcomes by type and final status.",
		}, []string{"type", "status"})

		reportGenerationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "report_generation_seconds",
			Help:    "Wall-clock duration of report generation runs.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"type"})

		csvExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_csv_exports_total",
			Help: "Total number of CSV exports streamed.",
		}, []string{"type"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			reportsGeneratedTotal,
			reportGenerationSeconds,
			csvExportsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ReportsGenerated exposes the counter for generation outcomes.
func ReportsGenerated() *prometheus.CounterVec {
	RegisterMetrics()
	return reportsGeneratedTotal
}

// ReportGenerationSeconds exposes the generation duration histogram.
func ReportGenerationSeconds() *prometheus.HistogramVec {
	RegisterMetrics()
	return reportGenerationSeconds
}

// CSVExports exposes the counter for CSV exports.
func CSVExports() *prometheus.CounterVec {
	RegisterMetrics()
	return csvExportsTotal
}
