// Package sf provides a generic single-flight mechanism for deduplicating
// concurrent function calls with the same key.
//
// If multiple goroutines call [Singleflight.Do] with the same key
// concurrently, only the first call executes the function; subsequent
// callers block until the first call completes and then receive the same
// result.
//
// The cluster node uses it so that many concurrent senders towards a peer
// that has no cached stream yet open exactly one stream:
//
//	opens := sf.New[cluster.Sink]()
//	sink, err := opens.Do(peer.String(), func() (cluster.Sink, error) {
//	    return transport.Open(ctx, self, peer)
//	})
package sf
