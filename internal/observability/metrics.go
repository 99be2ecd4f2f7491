package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreatedTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "trips_created_total", Help: "Trips created"})
	TripsAcceptedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "trips_accepted_total", Help: "Trips accepted by a driver"})
	TripsCompletedTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "trips_completed_total", Help: "Trips completed"})
	AcceptConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "transition_conflicts_total", Help: "Transition attempts that lost the status race"})
	QuotesTotal          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "quotes_total", Help: "Fare quotes served"})
	DriversOnline        = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "rapid_cargo", Name: "drivers_online", Help: "Drivers with a recent location ping"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rapid_cargo", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rapid_cargo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
