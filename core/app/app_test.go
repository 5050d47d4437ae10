package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/mailbox"
)

type (
	ping struct{ Seq int }
	pong struct{ Seq int }
)

func TestApp(t *testing.T) {
	tr := cluster.CreateInMemoryTransport(t)

	a1, err := Run(Config{Node: NodeConfig{Name: "a1", Transport: tr}})
	require.NoError(t, err)
	t.Cleanup(a1.Stop)
	a2, err := Run(Config{Node: NodeConfig{Name: "a2", Transport: tr}})
	require.NoError(t, err)
	t.Cleanup(a2.Stop)

	pongs := make(chan pong, 1)
	reply := mailbox.New1(a1.Manager(), func(p pong) { pongs <- p }, mailbox.Inline)
	defer reply.Close()

	server := mailbox.New2(a2.Manager(), func(p ping, replyTo mailbox.Addr1[pong]) {
		_ = mailbox.Send1(context.Background(), a2.Manager(), replyTo, pong{Seq: p.Seq + 1})
	}, mailbox.Scheduled(0))
	defer server.Close()

	require.NoError(t, mailbox.Send2(t.Context(), a1.Manager(), server.Address(), ping{Seq: 1}, reply.Address()))
	select {
	case p := <-pongs:
		require.Equal(t, 2, p.Seq)
	case <-time.After(time.Second):
		t.Fatal("no pong")
	}
}

func TestApp_Node(t *testing.T) {
	app, err := Run(Config{})
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	require.NotNil(t, app.Node(), "Node() should be accessible")
	require.NotNil(t, app.Manager())
	require.Equal(t, mailbox.DefaultRealm, app.Manager().Realm())
	require.Equal(t, "msgpack", app.Manager().Codec().Name())
}

func TestApp_MailboxConfig(t *testing.T) {
	app, err := Run(Config{Mailbox: MailboxConfig{Realm: "custom", Codec: "cbor"}})
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	require.Equal(t, mailbox.NewRealm("custom"), app.Manager().Realm())
	require.Equal(t, "cbor", app.Manager().Codec().Name())

	_, err = New(Config{Mailbox: MailboxConfig{Codec: "xml"}})
	require.ErrorContains(t, err, "unknown codec")
}

func TestApp_CustomNodeConfig(t *testing.T) {
	id := cluster.NewPeerID()
	app, err := Run(Config{
		Node: NodeConfig{
			ID:        id.String(),
			Name:      "my-node",
			Transport: cluster.CreateInMemoryTransport(t),
		},
	})
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	require.Equal(t, id, app.Node().ID())
	require.Equal(t, "my-node", app.Node().Name())

	_, err = New(Config{Node: NodeConfig{ID: "not-a-uuid"}})
	require.Error(t, err)
}

func TestApp_Shutdown(t *testing.T) {
	app, err := Run(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, app.Shutdown(ctx))

	select {
	case <-app.Done():
	default:
		t.Fatal("Done() should be closed after Shutdown")
	}
}

func TestApp_Stop(t *testing.T) {
	app, err := Run(Config{})
	require.NoError(t, err)

	app.Stop()
	app.Stop()

	select {
	case <-app.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() should be closed after Stop")
	}
}

func TestApp_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app, err := Run(Config{Context: ctx})
	require.NoError(t, err)

	cancel()
	select {
	case <-app.Done():
	case <-time.After(time.Second):
		t.Fatal("app did not stop on context cancel")
	}
}
