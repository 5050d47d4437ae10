// Command mbox runs mailbox nodes for demos and load tests.
//
// Configuration comes from flags, MBOX_* environment variables and an
// optional YAML file, e.g. MBOX_TRANSPORT=nats MBOX_NATS_URL=nats://localhost:4222.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
