package nats

import (
	"os"
	"sync"

	natsgo "github.com/nats-io/nats.go"
)

type closeFunc = func()

// Connector opens a connection and returns a func that releases it.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

// ReuseConnection shares one connection between all callers of the
// returned Connector. The connection is closed when the last lease is
// released; releasing the same lease twice is a no-op.
func ReuseConnection(connect Connector) Connector {
	var (
		mu       sync.Mutex
		nc       *natsgo.Conn
		closeCon closeFunc
		leased   int
	)
	return func() (*natsgo.Conn, closeFunc, error) {
		mu.Lock()
		defer mu.Unlock()
		if nc == nil {
			var err error
			if nc, closeCon, err = connect(); err != nil {
				nc = nil
				return nil, nil, err
			}
		}
		leased++
		conn := nc

		var once sync.Once
		release := func() {
			once.Do(func() {
				mu.Lock()
				defer mu.Unlock()
				leased--
				if leased == 0 && nc == conn {
					closeCon()
					nc, closeCon = nil, nil
				}
			})
		}
		return conn, release, nil
	}
}

// ConnectURL dials natsURL. Extra options are applied after the defaults.
func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(
			natsURL,
			append([]natsgo.Option{
				natsgo.Name("mbox"),
				natsgo.MaxReconnects(3),
			}, opts...)...,
		)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

// ConnectDefault dials $NATS_URL, or the NATS default url when unset.
func ConnectDefault() Connector {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		return ConnectURL(natsURL)
	}
	return ConnectURL(natsgo.DefaultURL)
}
