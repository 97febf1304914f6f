package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalAttempts tracks fetch attempts including retries.
	TotalAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_fetch_attempts_total",
		Help: "The total number of fetch attempts, including retries.",
	})
	// TotalSuccesses tracks fetches that returned usable markup.
	TotalSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_fetch_success_total",
		Help: "The total number of successful fetches.",
	})
	// TotalBlocked tracks attempts classified as bot-blocked.
	TotalBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_fetch_blocked_total",
		Help: "The total number of attempts that hit a block or challenge page.",
	})
	// TotalNetworkErrors tracks attempts that failed at the transport level.
	TotalNetworkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_fetch_network_errors_total",
		Help: "The total number of attempts that failed with a network error.",
	})
	// TotalPromotions tracks static fetches promoted to the browser tier.
	TotalPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagewatch_browser_promotions_total",
		Help: "The total number of fetches promoted to the headless browser.",
	})
	// FetchDuration observes wall time per successful fetch.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagewatch_fetch_duration_seconds",
		Help:    "Duration of successful fetches, politeness delay included.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
