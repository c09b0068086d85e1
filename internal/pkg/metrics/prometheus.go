// Package metrics exports analytics engine metrics to Prometheus
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hris_analytics"

var (
	// RequestsTotal counts HTTP requests by route pattern, method and status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration measures HTTP request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	// AnalysesTotal counts finished analyses by mode and outcome
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// AnalysisLatency measures the full pipeline per analysis
	AnalysisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_seconds",
			Help:      "Analysis computation latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	// SkippedEmployees counts employees excluded from branch aggregation
	SkippedEmployees = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_skipped_employees_total",
			Help:      "Total number of employees skipped during branch aggregation",
		},
	)

	// BranchRiskScore is the latest swept risk score per branch
	BranchRiskScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "branch_risk_score",
			Help:      "Latest branch risk score from the scheduled sweep",
		},
		[]string{"company_id", "branch_id"},
	)

	// BranchAttendanceRate is the latest swept attendance rate per branch
	BranchAttendanceRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "branch_attendance_rate",
			Help:      "Latest branch attendance rate from the scheduled sweep",
		},
		[]string{"company_id", "branch_id"},
	)

	// SweepRuns counts scheduled sweep runs by outcome
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of branch sweep runs by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveAnalysis records one finished analysis
func ObserveAnalysis(mode, outcome string, elapsed time.Duration) {
	AnalysesTotal.WithLabelValues(mode, outcome).Inc()
	AnalysisLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveRequest records one served HTTP request
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// SetBranchGauges publishes the sweep result of one branch
func SetBranchGauges(companyID, branchID string, riskScore, attendanceRate float64) {
	BranchRiskScore.WithLabelValues(companyID, branchID).Set(riskScore)
	BranchAttendanceRate.WithLabelValues(companyID, branchID).Set(attendanceRate)
}
