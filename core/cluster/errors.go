package cluster

import "errors"

var (
	// Transport errors
	ErrTransportClosed = errors.New("transport closed")
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrAlreadyAttached = errors.New("peer already attached")

	// Node errors
	ErrNodeRunning  = errors.New("node already running")
	ErrNoTransport  = errors.New("node has no transport")
	ErrInvalidFrame = errors.New("invalid frame")
)
