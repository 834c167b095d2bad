package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	VotersRegistered    prometheus.Counter
	DuplicateEnrollment prometheus.Counter
	DuplicateFace       prometheus.Counter
	AuthFailures        prometheus.Counter
	VotesCast           prometheus.Counter
	VotesRepaired       prometheus.Counter
	LedgerFailures      *prometheus.CounterVec
	VoteLatency         prometheus.Histogram
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		VotersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_voters_registered_total",
			Help: "Total number of voters registered in the system",
		}),
		DuplicateEnrollment: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_duplicate_enrollment_total",
			Help: "Registrations rejected because the enrollment number was taken",
		}),
		DuplicateFace: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_duplicate_face_total",
			Help: "Registrations rejected because the face matched an existing voter",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_auth_failures_total",
			Help: "Failed voter face authentications",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_votes_cast_total",
			Help: "Votes confirmed on the ledger and recorded locally",
		}),
		VotesRepaired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facevote_votes_repaired_total",
			Help: "Votes recovered by reconciliation after a partial failure",
		}),
		LedgerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facevote_ledger_failures_total",
			Help: "Ledger operations that failed, by operation",
		}, []string{"operation"}),
		VoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facevote_vote_duration_seconds",
			Help:    "End-to-end vote casting latency including ledger confirmation",
			Buckets: prometheus.DefBuckets,
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facevote_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// IncrementVotersRegistered increments the voters registered counter by 1
func (m *Metrics) IncrementVotersRegistered() {
	m.VotersRegistered.Inc()
}
