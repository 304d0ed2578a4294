package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlassist_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TrainingRecordsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_training_records_ingested_total",
			Help: "Training records submitted to the knowledge store, by kind.",
		},
		[]string{"kind"},
	)

	TrainingRecordsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlassist_training_records_removed_total",
			Help: "Training records deleted from the knowledge store.",
		},
	)

	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlassist_questions_total",
			Help: "Questions turned into SQL, by outcome.",
		},
		[]string{"outcome"},
	)
)

const (
	OutcomeSQL     = "sql"
	OutcomeNoSQL   = "no_sql"
	OutcomeFailure = "error"
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		TrainingRecordsIngested,
		TrainingRecordsRemoved,
		QuestionsTotal,
	)
}
