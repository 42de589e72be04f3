package zmq

import "errors"

// Domain-specific errors for ZeroMQ operations.
var (
	// ErrSocketFailed is returned when the socket cannot be created or configured.
	ErrSocketFailed = errors.New("zmq: socket setup failed")

	// ErrConnectFailed is returned when the socket cannot connect to the endpoint.
	ErrConnectFailed = errors.New("zmq: connect failed")

	// ErrClosed is returned when operating on a closed subscriber.
	ErrClosed = errors.New("zmq: subscriber closed")
)
