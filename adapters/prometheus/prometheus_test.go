package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/mailbox"
)

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]bool {
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewClusterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClusterMetrics(reg)
	require.NotNil(t, m)

	timer := m.FrameWriteDuration()
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.FrameWritten(true)
	m.FrameWritten(false)
	m.FrameReceived(128)
	m.StreamEvent("opened")
	m.TransportError("unreachable")
	m.PeersReachable("node-1", 3)

	names := gatherNames(t, reg)
	assert.True(t, names["mbox_cluster_frame_write_duration_seconds"])
	assert.True(t, names["mbox_cluster_frames_written_total"])
	assert.True(t, names["mbox_cluster_received_bytes_total"])
	assert.True(t, names["mbox_cluster_peers_reachable"])

	cm := m.(*clusterMetrics)
	assert.Equal(t, 128.0, testutil.ToFloat64(cm.bytesReceived))
	assert.Equal(t, 3.0, testutil.ToFloat64(cm.peersReachable.WithLabelValues("node-1")))
}

func TestNewMailboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMailboxMetrics(reg)
	require.NotNil(t, m)

	m.MailboxesActive(4)
	m.MessageSent(true)
	m.MessageDropped("unreachable")
	m.MessageDispatched("delivered")
	m.MessageDispatched("not_found")
	m.ProtocolError()

	timer := m.HandlerDuration("inline")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	names := gatherNames(t, reg)
	assert.True(t, names["mbox_mailboxes_active"])
	assert.True(t, names["mbox_messages_dispatched_total"])
	assert.True(t, names["mbox_handler_duration_seconds"])
	assert.True(t, names["mbox_protocol_errors_total"])

	mm := m.(*mailboxMetrics)
	assert.Equal(t, 4.0, testutil.ToFloat64(mm.mailboxesActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.messagesDispatched.WithLabelValues("not_found")))
}

// Metrics wired into a running manager pair count real traffic.
func TestMetrics_Wired(t *testing.T) {
	reg := prometheus.NewRegistry()
	all := NewAllMetrics(reg)

	tr := cluster.CreateInMemoryTransport(t)
	var managers []*mailbox.Manager
	for i := 0; i < 2; i++ {
		n := cluster.NewNode(cluster.NodeOptions{Transport: tr, Metrics: all.Cluster})
		m := mailbox.NewManager(n, mailbox.ManagerOptions{Metrics: all.Mailbox})
		t.Cleanup(m.Close)
		require.NoError(t, m.Run(t.Context()))
		managers = append(managers, m)
	}

	got := make(chan string, 1)
	mb := mailbox.New1(managers[1], func(s string) { got <- s }, mailbox.Inline)
	defer mb.Close()

	require.NoError(t, mailbox.Send1(t.Context(), managers[0], mb.Address(), "hi"))
	require.Equal(t, "hi", <-got)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(all.Mailbox.messagesDispatched.WithLabelValues("delivered")) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(all.Mailbox.messagesSent.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(all.Mailbox.mailboxesActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(all.Cluster.framesWritten.WithLabelValues("true")))
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
