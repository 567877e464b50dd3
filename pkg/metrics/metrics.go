package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics
var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitfolio_analyses_total",
			Help: "Total number of analysis requests by outcome",
		},
		[]string{"status"},
	)

	githubRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitfolio_github_requests_total",
			Help: "Total number of GitHub API requests by resource and status",
		},
		[]string{"resource", "status"},
	)

	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gitfolio_analysis_duration_seconds",
			Help:    "Time taken to collect and score one profile",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	overallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gitfolio_overall_score",
			Help:    "Distribution of overall portfolio scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gitfolio_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		analysesTotal,
		githubRequestsTotal,
		analysisDuration,
		overallScoreHistogram,
		httpRequestDuration,
	)
}

// RecordAnalysis counts a finished analysis request by outcome
// ("created", "validation_error", "upstream_error", "partial").
func RecordAnalysis(status string) {
	analysesTotal.WithLabelValues(status).Inc()
}

// RecordGitHubRequest counts one upstream request by resource
// ("user", "repos", "readme", "events") and HTTP status text.
func RecordGitHubRequest(resource, status string) {
	githubRequestsTotal.WithLabelValues(resource, status).Inc()
}

// ObserveAnalysisDuration records the wall time of one collect+score run.
func ObserveAnalysisDuration(seconds float64) {
	analysisDuration.Observe(seconds)
}

// ObserveOverallScore records a computed overall score.
func ObserveOverallScore(score int) {
	overallScoreHistogram.Observe(float64(score))
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(route, status string, seconds float64) {
	httpRequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// Handler returns the metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
