package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session lifecycle metrics
	sessionSignInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_session_sign_ins_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"status"}, // status: success/failure
	)

	sessionRenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_session_renewals_total",
			Help: "Total number of token renewal attempts",
		},
		[]string{"status"}, // status: success/failure/stale
	)

	sessionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_session_authenticated",
			Help: "1 while the session is authenticated, 0 otherwise",
		},
	)

	// Location agent metrics
	locationPostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_location_posts_total",
			Help: "Total number of location log deliveries",
		},
		[]string{"status"}, // status: success/failure/spooled
	)

	locationPostDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_location_post_duration_seconds",
			Help:    "Location log delivery duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	locationSpoolDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_location_spool_depth",
			Help: "Number of undelivered location logs in the local spool",
		},
	)
)

// RecordSignIn records a sign-in attempt metric
func RecordSignIn(status string) {
	sessionSignInsTotal.WithLabelValues(status).Inc()
}

// RecordRenewal records a token renewal attempt metric
func RecordRenewal(status string) {
	sessionRenewalsTotal.WithLabelValues(status).Inc()
}

// SetAuthenticated sets the session state gauge
func SetAuthenticated(authenticated bool) {
	if authenticated {
		sessionState.Set(1)
		return
	}
	sessionState.Set(0)
}

// RecordLocationPost records a location delivery metric
func RecordLocationPost(status string, duration time.Duration) {
	locationPostsTotal.WithLabelValues(status).Inc()
	locationPostDuration.Observe(duration.Seconds())
}

// SetSpoolDepth sets the location spool depth gauge
func SetSpoolDepth(depth int) {
	locationSpoolDepth.Set(float64(depth))
}
