// Package metrics exposes Prometheus instruments for fetches, upserts,
// aggregation and simulations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider metrics
	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycledca_provider_requests_total",
			Help: "Price provider requests by outcome",
		},
		[]string{"provider", "outcome"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cycledca_provider_request_seconds",
			Help:    "Latency of price provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Series metrics
	seriesPoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cycledca_series_points",
			Help: "Number of points in the aggregated series",
		},
		[]string{"symbol", "resolution"},
	)

	lastAggregation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cycledca_last_aggregation_timestamp_seconds",
			Help: "Unix time of the last successful aggregation",
		},
		[]string{"symbol"},
	)

	spotPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cycledca_spot_price",
			Help: "Last observed spot price",
		},
		[]string{"symbol"},
	)

	// Upsert and simulation metrics
	upsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycledca_upserts_total",
			Help: "Daily price upserts by action",
		},
		[]string{"action"},
	)

	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycledca_simulations_total",
			Help: "DCA simulations by outcome",
		},
		[]string{"outcome"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycledca_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(providerRequests)
	prometheus.MustRegister(providerLatency)
	prometheus.MustRegister(seriesPoints)
	prometheus.MustRegister(lastAggregation)
	prometheus.MustRegister(spotPrice)
	prometheus.MustRegister(upsertsTotal)
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(errorsTotal)
}

// Handler serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProviderRequest records one provider call.
func RecordProviderRequest(provider string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordAggregation updates the series gauges after an aggregation.
func RecordAggregation(symbol string, daily, hourly, minute15 int, at time.Time) {
	seriesPoints.WithLabelValues(symbol, "daily").Set(float64(daily))
	seriesPoints.WithLabelValues(symbol, "hourly").Set(float64(hourly))
	seriesPoints.WithLabelValues(symbol, "minute15").Set(float64(minute15))
	lastAggregation.WithLabelValues(symbol).Set(float64(at.Unix()))
}

// UpdateSpotPrice updates the spot price gauge.
func UpdateSpotPrice(symbol string, price float64) {
	spotPrice.WithLabelValues(symbol).Set(price)
}

// RecordUpsert counts a daily upsert.
func RecordUpsert(action string) {
	upsertsTotal.WithLabelValues(action).Inc()
}

// RecordSimulation counts a simulation run.
func RecordSimulation(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	simulationsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error metric.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
