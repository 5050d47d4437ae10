// Package app wires a cluster [cluster.Node] and a [mailbox.Manager] from a
// single configuration, for services that just want working mailboxes.
//
// # Basic Usage
//
//	a, err := app.Run(app.Config{
//	    Node: app.NodeConfig{
//	        Name:      "node-1",
//	        Transport: natsTransport,
//	    },
//	    Mailbox: app.MailboxConfig{
//	        Realm: "production",
//	        Codec: "msgpack",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mb := mailbox.New1(a.Manager(), func(s string) {
//	    // handle s
//	}, mailbox.Scheduled(0))
//	defer mb.Close()
//
//	// Graceful shutdown
//	a.Shutdown(ctx)
//
// Config carries mapstructure tags so it can be loaded with viper; the mbox
// command does exactly that.
//
// Without a transport the app runs on its own in-memory transport, which is
// closed on shutdown. Nodes that should talk to each other must share the
// transport and the mailbox realm and codec.
package app
