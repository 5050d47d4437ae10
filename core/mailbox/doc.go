// Package mailbox provides location-transparent, addressable mailboxes on
// top of the cluster connectivity layer.
//
// A mailbox is a callback registered with the [Manager] of a node. Its
// [Address] is a plain value that can be copied, encoded with any codec and
// handed to other nodes, which then send messages to it. Delivery is best
// effort: messages to closed mailboxes and unreachable peers are dropped.
//
// # Architecture
//
//   - [Registry]: mailbox ids of one node and their callbacks
//   - [Raw]: untyped mailbox, the callback receives the payload bytes
//   - [Mailbox1] and friends: typed mailboxes, arguments are encoded with the
//     manager's codec; [Addr1] only accepts matching arguments in [Send1]
//   - [Manager]: sends frames to peers and dispatches inbound frames
//
// # Usage
//
//	node := cluster.NewNode(cluster.NodeOptions{Transport: tr})
//	m := mailbox.NewManager(node, mailbox.ManagerOptions{})
//	err := m.Run(ctx)
//
//	mb := mailbox.New1(m, func(s string) {
//	    fmt.Println("got", s)
//	}, mailbox.Scheduled(0))
//	defer mb.Close()
//
//	// anywhere in the cluster, given mb.Address()
//	err = mailbox.Send1(ctx, other, addr, "hello")
//
// # Callback Modes
//
// [Inline] callbacks run on the goroutine that received the frame and must
// not block. [Scheduled] callbacks run on a numbered execution context of
// the manager's [Executor]; messages for one context run one at a time in
// receipt order.
//
// # Lifecycle
//
// Closing a mailbox waits for its running callback and guarantees that no
// callback runs afterwards. A mailbox must not be closed from inside its own
// callback. Addresses of closed mailboxes stay valid values; sending to them
// is a no-op on the receiving side.
package mailbox
