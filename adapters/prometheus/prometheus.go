// Package prometheus provides Prometheus implementations of the metrics
// interfaces of the cluster and mailbox layers.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/mbox-go/core/metrics"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

// AllMetrics holds Prometheus implementations for both layers.
type AllMetrics struct {
	Cluster *clusterMetrics
	Mailbox *mailboxMetrics
}

// NewAllMetrics creates and registers the metrics of both layers.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Cluster: NewClusterMetrics(reg).(*clusterMetrics),
		Mailbox: NewMailboxMetrics(reg).(*mailboxMetrics),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
