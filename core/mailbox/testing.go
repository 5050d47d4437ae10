package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/mbox-go/core/cluster"
)

// CreateTestManagers starts num managers on a shared in-memory transport.
// opts is applied to every manager.
func CreateTestManagers(t *testing.T, num int, opts ...ManagerOptions) []*Manager {
	var o ManagerOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	tr := cluster.CreateInMemoryTransport(t)
	nodes := cluster.CreateTestNodes(t, tr, num)

	managers := make([]*Manager, 0, num)
	for _, n := range nodes {
		m := NewManager(n, o)
		t.Cleanup(m.Close)
		require.NoError(t, m.Run(t.Context()))
		managers = append(managers, m)
	}
	return managers
}
