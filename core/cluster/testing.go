package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func CreateInMemoryTransport(t *testing.T) *MemoryTransport {
	tr := NewInMemoryTransport()
	t.Cleanup(func() {
		require.NoError(t, tr.Close())
	})
	return tr
}

// CreateTestNodes creates numNodes nodes on tr. Nodes are not running yet.
func CreateTestNodes(t *testing.T, tr Transport, numNodes int) []*Node {
	nodes := make([]*Node, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		n := NewNode(NodeOptions{
			Name:      fmt.Sprintf("node-%d", i),
			Transport: tr,
		})
		t.Cleanup(n.Close)
		nodes = append(nodes, n)
	}
	return nodes
}
