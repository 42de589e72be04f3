// Package zmq provides the ZeroMQ subscription socket used by the panel bridge.
//
// The panel controller publishes a binary event stream on a ZeroMQ PUB
// socket. This package opens a SUB socket against it, subscribed to every
// topic, and exposes the three primitives the bridge loop needs:
//
//   - Poll: wait up to a timeout for the next message
//   - RecvFrame: read one frame and report whether more follow
//   - Close: release the socket without lingering
//
// # Reconnection
//
// libzmq reconnects TCP transports on its own, but a silently wedged
// publisher is invisible to it. The bridge therefore closes the Subscriber
// on heartbeat loss and dials a fresh one; this package never retries.
//
// # Thread Safety
//
// ZeroMQ sockets are not thread-safe. A Subscriber must be used from the
// goroutine that dialled it.
//
// # Build
//
// github.com/pebbe/zmq4 binds libzmq through cgo, so building requires
// libzmq (>= 4.0) headers and CGO_ENABLED=1. Tests that open real sockets
// carry the integration build tag:
//
//	go test -tags=integration ./internal/infrastructure/zmq/...
package zmq
