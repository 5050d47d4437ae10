// Package metrics holds the backend-neutral metric primitives shared by the
// per-package metric interfaces (cluster.ClusterMetrics,
// mailbox.MailboxMetrics). The adapters/prometheus package implements them.
package metrics

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time.
//
//	defer m.HandlerDuration("inline").ObserveDuration()
type Timer interface {
	// ObserveDuration records the elapsed time since the timer was created.
	ObserveDuration()
}
