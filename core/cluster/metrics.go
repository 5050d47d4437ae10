package cluster

import "github.com/codewandler/mbox-go/core/metrics"

// ClusterMetrics defines the metrics interface for the connectivity layer.
// All methods are thread-safe.
type ClusterMetrics interface {
	// Outbound frames
	FrameWriteDuration() metrics.Timer
	FrameWritten(success bool)

	// Inbound frames
	FrameReceived(bytes int)

	// Streams: opened, reused, evicted
	StreamEvent(event string)

	// Transport errors: unreachable, closed, write
	TransportError(errorType string)

	// Membership
	PeersReachable(nodeID string, count int)
}

// nopClusterMetrics is a no-op implementation of ClusterMetrics.
type nopClusterMetrics struct{}

func (nopClusterMetrics) FrameWriteDuration() metrics.Timer { return metrics.NopTimer() }
func (nopClusterMetrics) FrameWritten(bool)                 {}

func (nopClusterMetrics) FrameReceived(int) {}

func (nopClusterMetrics) StreamEvent(string) {}

func (nopClusterMetrics) TransportError(string) {}

func (nopClusterMetrics) PeersReachable(string, int) {}

// NopClusterMetrics returns a no-op ClusterMetrics implementation.
func NopClusterMetrics() ClusterMetrics { return nopClusterMetrics{} }
