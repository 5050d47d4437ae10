// Package cluster provides the connectivity substrate the mailbox layer is
// built on: peer identities, ordered frame delivery between peers and a view
// of which peers are reachable.
//
// # Architecture
//
//   - [PeerID]: stable identifier of a node for the lifetime of its process
//   - [Transport]: moves frames between attached peers and reports membership
//     changes; [MemoryTransport] connects peers inside one process, the
//     adapters/nats package connects peers through a NATS server
//   - [Node]: the local peer. It attaches to a transport, hands every inbound
//     frame to a single consumer and caches one outbound [Sink] per remote peer
//
// # Ordering
//
// Frames written to the same [Sink] are delivered to the remote consumer in
// write order. There is no ordering between different senders.
//
// # Node Usage
//
//	tr := cluster.NewInMemoryTransport()
//	node := cluster.NewNode(cluster.NodeOptions{Transport: tr})
//	err := node.Run(ctx, func(from cluster.PeerID, frame []byte) {
//	    // consume frame
//	})
//
//	sink, err := node.Stream(ctx, otherPeer)
//	err = sink.Write(ctx, frame)
//
// # Error Handling
//
//   - [ErrPeerUnreachable]: the target peer is not attached; streams that hit
//     this error are evicted from the node's cache
//   - [ErrTransportClosed]: the transport was closed
package cluster
