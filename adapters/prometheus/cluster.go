package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/metrics"
)

// clusterMetrics implements cluster.ClusterMetrics using Prometheus.
type clusterMetrics struct {
	frameWriteDuration prometheus.Histogram
	framesWritten      *prometheus.CounterVec
	framesReceived     prometheus.Counter
	bytesReceived      prometheus.Counter
	streamEvents       *prometheus.CounterVec
	transportErrors    *prometheus.CounterVec
	peersReachable     *prometheus.GaugeVec
}

// NewClusterMetrics creates a new Prometheus implementation of ClusterMetrics.
func NewClusterMetrics(reg prometheus.Registerer) cluster.ClusterMetrics {
	m := &clusterMetrics{
		frameWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mbox_cluster_frame_write_duration_seconds",
			Help:    "Time to hand a frame to the transport in seconds",
			Buckets: defaultBuckets,
		}),

		framesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_cluster_frames_written_total",
			Help: "Total number of frames written to peers",
		}, []string{"success"}),

		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbox_cluster_frames_received_total",
			Help: "Total number of frames received from peers",
		}),

		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbox_cluster_received_bytes_total",
			Help: "Total number of frame bytes received from peers",
		}),

		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_cluster_stream_events_total",
			Help: "Outbound stream cache events",
		}, []string{"event"}),

		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_cluster_transport_errors_total",
			Help: "Total number of transport errors",
		}, []string{"error_type"}),

		peersReachable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mbox_cluster_peers_reachable",
			Help: "Number of peers a node currently sees",
		}, []string{"node_id"}),
	}

	reg.MustRegister(
		m.frameWriteDuration,
		m.framesWritten,
		m.framesReceived,
		m.bytesReceived,
		m.streamEvents,
		m.transportErrors,
		m.peersReachable,
	)

	return m
}

func (m *clusterMetrics) FrameWriteDuration() metrics.Timer {
	return newTimer(m.frameWriteDuration)
}

func (m *clusterMetrics) FrameWritten(success bool) {
	m.framesWritten.WithLabelValues(boolToStr(success)).Inc()
}

func (m *clusterMetrics) FrameReceived(bytes int) {
	m.framesReceived.Inc()
	m.bytesReceived.Add(float64(bytes))
}

func (m *clusterMetrics) StreamEvent(event string) {
	m.streamEvents.WithLabelValues(event).Inc()
}

func (m *clusterMetrics) TransportError(errorType string) {
	m.transportErrors.WithLabelValues(errorType).Inc()
}

func (m *clusterMetrics) PeersReachable(nodeID string, count int) {
	m.peersReachable.WithLabelValues(nodeID).Set(float64(count))
}

var _ cluster.ClusterMetrics = (*clusterMetrics)(nil)
