package integration

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/mbox-go/adapters/nats"
	"github.com/codewandler/mbox-go/core/app"
	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/mailbox"
)

type newTransportFunc func(t *testing.T) cluster.Transport

func startApps(t *testing.T, num int, newTransport newTransportFunc) []*app.App {
	t.Helper()

	apps := make([]*app.App, num)
	for i := range apps {
		a, err := app.Run(app.Config{
			Context: t.Context(),
			Log:     slog.Default(),
			Node:    app.NodeConfig{Transport: newTransport(t)},
			Mailbox: app.MailboxConfig{Realm: "integration", CompressThreshold: 256},
		})
		require.NoError(t, err)
		t.Cleanup(a.Stop)
		apps[i] = a
	}

	require.Eventually(t, func() bool {
		for _, a := range apps {
			for _, b := range apps {
				if !a.Node().Reachable(b.Node().ID()) {
					return false
				}
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond)
	return apps
}

func TestIntegration(t *testing.T) {
	transports := map[string]func(t *testing.T) newTransportFunc{
		"memory": func(t *testing.T) newTransportFunc {
			tr := cluster.CreateInMemoryTransport(t)
			return func(*testing.T) cluster.Transport { return tr }
		},
		"nats": func(t *testing.T) newTransportFunc {
			if testing.Short() {
				t.Skip("needs docker")
			}
			connect := nats.NewTestContainer(t)
			return func(t *testing.T) cluster.Transport {
				tr, err := nats.NewTransport(nats.TransportConfig{
					Connect:          connect,
					SubjectPrefix:    "it",
					PresenceInterval: 200 * time.Millisecond,
				})
				require.NoError(t, err)
				t.Cleanup(func() { _ = tr.Close() })
				return tr
			}
		},
	}

	for name, setup := range transports {
		t.Run(name, func(t *testing.T) {
			newTransport := setup(t)

			t.Run("cross peer", func(t *testing.T) {
				apps := startApps(t, 2, newTransport)
				testCrossPeer(t, apps[0].Manager(), apps[1].Manager())
			})

			t.Run("ring", func(t *testing.T) {
				apps := startApps(t, 3, newTransport)
				testRing(t, apps)
			})

			t.Run("peer gone", func(t *testing.T) {
				apps := startApps(t, 2, newTransport)
				testPeerGone(t, apps[0], apps[1])
			})
		})
	}
}

func testCrossPeer(t *testing.T, a, b *mailbox.Manager) {
	var (
		mu  sync.Mutex
		got = map[int]int{}
	)
	target := mailbox.New1(a, func(v int) {
		mu.Lock()
		got[v]++
		mu.Unlock()
	}, mailbox.Scheduled(0))
	defer target.Close()

	relay := mailbox.New1(b, func(to mailbox.Addr1[int]) {
		assert.NoError(t, mailbox.Send1(t.Context(), b, to, 88555))
		assert.NoError(t, mailbox.Send1(t.Context(), b, to, 3131))
	}, mailbox.Scheduled(0))
	defer relay.Close()

	require.NoError(t, mailbox.Send1(t.Context(), a, relay.Address(), target.Address()))
	require.NoError(t, mailbox.Send1(t.Context(), a, target.Address(), 7))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 5*time.Second, time.Millisecond)

	// nothing else arrives
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, map[int]int{88555: 1, 3131: 1, 7: 1}, got)
}

// testRing passes a token around all nodes, each hop decrementing it.
func testRing(t *testing.T, apps []*app.App) {
	const hops = 30

	type token struct {
		Left    int
		Visited []string
	}

	done := make(chan token, 1)
	addrs := make([]mailbox.Addr1[token], len(apps))
	ready := make(chan struct{})
	for i, a := range apps {
		m := a.Manager()
		next := (i + 1) % len(apps)
		mb := mailbox.New1(m, func(tk token) {
			<-ready
			tk.Visited = append(tk.Visited, m.Node().Name())
			if tk.Left == 0 {
				done <- tk
				return
			}
			tk.Left--
			if err := mailbox.Send1(context.Background(), m, addrs[next], tk); err != nil {
				t.Errorf("forward: %v", err)
			}
		}, mailbox.Scheduled(i))
		t.Cleanup(mb.Close)
		addrs[i] = mb.Address()
	}
	close(ready)

	require.NoError(t, mailbox.Send1(t.Context(), apps[0].Manager(), addrs[0], token{Left: hops}))

	select {
	case tk := <-done:
		require.Len(t, tk.Visited, hops+1)
		for i, name := range tk.Visited {
			require.Equal(t, apps[i%len(apps)].Node().Name(), name)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("token lost")
	}
}

func testPeerGone(t *testing.T, a, b *app.App) {
	mb := mailbox.New0(b.Manager(), func() {}, mailbox.Inline)
	addr := mb.Address()

	require.NoError(t, b.Shutdown(t.Context()))
	require.Eventually(t, func() bool { return !a.Node().Reachable(b.Node().ID()) }, 10*time.Second, 10*time.Millisecond)

	// fire and forget: sends to a departed peer are dropped silently
	require.NoError(t, mailbox.Send0(t.Context(), a.Manager(), addr))
}
