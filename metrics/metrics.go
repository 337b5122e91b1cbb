package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Endpoints exposed by the metrics and profiling HTTP servers
const (
	Endpoint                = "/metrics"
	ProfilingIndexEndpoint  = "/debug/pprof/"
	ProfileEndpoint         = "/debug/pprof/profile"
	ProfilingCmdEndpoint    = "/debug/pprof/cmdline"
	ProfilingSymbolEndpoint = "/debug/pprof/symbol"
	ProfilingTraceEndpoint  = "/debug/pprof/trace"
)

// Submission result labels
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

var (
	txSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "txmanager_submissions_total",
		Help: "Number of transaction submissions by result",
	}, []string{"result"})

	txFinalizations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "txmanager_finalizations_total",
		Help: "Number of watched transactions finalized by terminal status",
	}, []string{"status"})

	txInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txmanager_invalidations_total",
		Help: "Number of transactions deleted after being superseded by a same-nonce transaction",
	})

	cancellationBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "txmanager_order_cancellation_batches_total",
		Help: "Number of order cancellation batch attempts by result",
	}, []string{"result"})

	signDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "txmanager_sign_delay_ms",
		Help:    "Time spent signing a transaction in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	submissionDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "txmanager_rpc_submission_delay_ms",
		Help:    "Time spent broadcasting a transaction in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// Register registers all the collectors in the default prometheus registry
func Register() {
	prometheus.MustRegister(txSubmissions, txFinalizations, txInvalidations, cancellationBatches, signDelay, submissionDelay)
}

// TxSubmitted increments the submission counter for a result
func TxSubmitted(result string) {
	txSubmissions.WithLabelValues(result).Inc()
}

// TxFinalized increments the finalization counter for a terminal status
func TxFinalized(status string) {
	txFinalizations.WithLabelValues(status).Inc()
}

// TxInvalidated increments the invalidation counter
func TxInvalidated() {
	txInvalidations.Inc()
}

// CancellationBatch increments the cancellation batch counter for a result
func CancellationBatch(result string) {
	cancellationBatches.WithLabelValues(result).Inc()
}

// ObserveSignDelay records signing latency
func ObserveSignDelay(ms int64) {
	signDelay.Observe(float64(ms))
}

// ObserveSubmissionDelay records broadcast latency
func ObserveSubmissionDelay(ms int64) {
	submissionDelay.Observe(float64(ms))
}
