package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionUp is 1 while the vehicle link is CONNECTED, 0 otherwise.
	ConnectionUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diag_vehicle_connection_up",
			Help: "Vehicle link state (1=connected, 0=not connected).",
		},
	)

	// ScanRunsTotal counts finished scan runs by terminal status.
	ScanRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diag_scan_runs_total",
			Help: "Total number of finished scan runs.",
		},
		[]string{"status"},
	)

	// ScanRejectedTotal counts scan starts refused because a run was active.
	ScanRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diag_scan_rejected_total",
			Help: "Scan start requests rejected with SessionBusy.",
		},
	)

	// ECUQueryLatency records per-ECU query durations by outcome.
	ECUQueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diag_ecu_query_latency_seconds",
			Help:    "Latency of per-ECU diagnostic queries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"}, // ok | timeout | failed | cancelled
	)

	// StreamFramesDropped counts sensor frames superseded before a slow subscriber read them.
	StreamFramesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diag_stream_frames_dropped_total",
			Help: "Sensor frames dropped under the latest-value-wins policy.",
		},
	)

	// EventSubscribersDropped counts event subscribers detached for falling too far behind.
	EventSubscribersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diag_event_subscribers_dropped_total",
			Help: "Event subscribers detached after their backlog overflowed.",
		},
	)

	// HistoryWriteErrors counts session events and runs that could not be persisted.
	HistoryWriteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diag_history_write_errors_total",
			Help: "Failed writes to the run history and session log.",
		},
		[]string{"table"},
	)

	// StreamRunning is 1 while the live data loop is active.
	StreamRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diag_stream_running",
			Help: "Live sensor stream state (1=running).",
		},
	)
)

func init() {
	prometheus.MustRegister(ConnectionUp)
	prometheus.MustRegister(ScanRunsTotal)
	prometheus.MustRegister(ScanRejectedTotal)
	prometheus.MustRegister(ECUQueryLatency)
	prometheus.MustRegister(StreamFramesDropped)
	prometheus.MustRegister(StreamRunning)
	prometheus.MustRegister(HistoryWriteErrors)
	prometheus.MustRegister(EventSubscribersDropped)
}

// BoolGauge converts a flag to a gauge value.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
