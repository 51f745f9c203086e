// Package metrics provides Prometheus metrics for remote sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transfer directions used as label values.
const (
	Upload   = "upload"
	Download = "download"
)

var (
	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncbox_transfer_bytes_total",
			Help: "Total bytes moved by safe transfers",
		},
		[]string{"direction"},
	)

	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncbox_transfers_total",
			Help: "Total number of safe transfers by result",
		},
		[]string{"direction", "status"},
	)

	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncbox_reconnects_total",
			Help: "Total number of reconnect attempts by result",
		},
		[]string{"result"},
	)

	keepAlivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncbox_keepalives_total",
			Help: "Total number of keep-alive ticks by result",
		},
		[]string{"result"},
	)

	listingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syncbox_listing_failures_total",
			Help: "Total number of failed remote listings",
		},
	)

	connected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncbox_session_connected",
			Help: "Whether the remote session is connected (1) or not (0)",
		},
	)
)

// RecordTransferBytes adds n bytes to the transferred bytes for direction.
func RecordTransferBytes(direction string, n int) {
	transferBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordTransfer counts a finished transfer.
func RecordTransfer(direction, status string) {
	transfersTotal.WithLabelValues(direction, status).Inc()
}

// RecordReconnect counts a reconnect attempt.
func RecordReconnect(err error) {
	reconnectsTotal.WithLabelValues(result(err)).Inc()
}

// RecordKeepAlive counts a keep-alive tick. Skipped ticks use the "skipped"
// result.
func RecordKeepAlive(skipped bool, err error) {
	if skipped {
		keepAlivesTotal.WithLabelValues("skipped").Inc()
		return
	}
	keepAlivesTotal.WithLabelValues(result(err)).Inc()
}

// RecordListingFailure counts a failed listing.
func RecordListingFailure() {
	listingFailures.Inc()
}

// SetConnected updates the connection gauge.
func SetConnected(isConnected bool) {
	if isConnected {
		connected.Set(1)
	} else {
		connected.Set(0)
	}
}

// Handler returns the HTTP handler that serves the metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
