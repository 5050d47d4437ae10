package nats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNats_Connect(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}

	connect := ReuseConnection(NewTestContainer(t))

	nc1, release1, err := connect()
	require.NoError(t, err)
	require.Equal(t, "CONNECTED", nc1.Status().String())

	nc2, release2, err := connect()
	require.NoError(t, err)
	require.Same(t, nc1, nc2)

	// double release of one lease must not close the shared connection
	release1()
	release1()
	require.Equal(t, "CONNECTED", nc2.Status().String())

	release2()
	require.Equal(t, "CLOSED", nc1.Status().String())

	nc3, release3, err := connect()
	require.NoError(t, err)
	require.NotSame(t, nc1, nc3)
	require.Equal(t, "CONNECTED", nc3.Status().String())
	release3()
}
