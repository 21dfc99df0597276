package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modguard_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Decision engine metrics
var (
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_decisions_total",
		Help: "Total number of content decisions by verdict",
	}, []string{"verdict"})

	ScanIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_scan_issues_total",
		Help: "Total number of scan findings by category",
	}, []string{"category"})

	// EngineEnabled reports whether the decision engine is active
	// (1=enabled, 0=disabled).
	EngineEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modguard_engine_enabled",
		Help: "Whether the moderation engine is enabled (1=enabled, 0=disabled)",
	})
)

// Report metrics
var (
	ReportsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_reports_created_total",
		Help: "Total number of reports created by origin (user or auto)",
	}, []string{"origin"})

	AdminDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_admin_decisions_total",
		Help: "Total number of admin decisions applied by action",
	}, []string{"action"})
)

// Rate limit metrics
var (
	RateLimitDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_ratelimit_denials_total",
		Help: "Total number of rate-limited requests by window",
	}, []string{"window"})
)

// Alert delivery metrics
var (
	AlertDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modguard_alert_deliveries_total",
		Help: "Total number of alert delivery attempts by outcome",
	}, []string{"status"})
)

// NormalizePath collapses report ids so that per-report URLs don't
// explode metric cardinality.
func NormalizePath(path string) string {
	if len(path) > len("/reports/") && path[:len("/reports/")] == "/reports/" {
		return "/reports/{id}"
	}
	return path
}
