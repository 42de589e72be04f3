package zmq

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	zmq4 "github.com/pebbe/zmq4"
)

// reconnectInterval is how often libzmq retries a dropped TCP connection
// underneath an open socket.
const reconnectInterval = 500 * time.Millisecond

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures sockets created by a Dialer.
type Options struct {
	// ReceiveHWM caps the inbound queue. 0 keeps the libzmq default.
	ReceiveHWM int

	// Logger is optional.
	Logger Logger
}

// Dialer creates Subscribers.
type Dialer struct {
	opts Options
}

// NewDialer creates a dialer with the given options.
func NewDialer(opts Options) *Dialer {
	return &Dialer{opts: opts}
}

// Dial opens a SUB socket connected to endpoint and subscribed to all topics.
//
// Linger is zero so Close never blocks on queued data.
//
// Parameters:
//   - ctx: Checked before the socket is created
//   - endpoint: ZeroMQ endpoint, e.g. "tcp://192.168.1.20:5556"
//
// Returns:
//   - *Subscriber: Connected subscriber
//   - error: ErrSocketFailed or ErrConnectFailed
func (d *Dialer) Dial(ctx context.Context, endpoint string) (*Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSocketFailed, err)
	}

	if err := configure(sock, d.opts); err != nil {
		sock.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: %w", ErrSocketFailed, err)
	}

	if err := sock.Connect(endpoint); err != nil {
		sock.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, endpoint, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(sock, zmq4.POLLIN)

	if d.opts.Logger != nil {
		d.opts.Logger.Debug("zmq socket connected", "endpoint", endpoint)
	}

	return &Subscriber{
		sock:     sock,
		poller:   poller,
		endpoint: endpoint,
	}, nil
}

// configure applies socket options before connecting.
func configure(sock *zmq4.Socket, opts Options) error {
	if err := sock.SetLinger(0); err != nil {
		return fmt.Errorf("set linger: %w", err)
	}
	if err := sock.SetReconnectIvl(reconnectInterval); err != nil {
		return fmt.Errorf("set reconnect interval: %w", err)
	}
	if opts.ReceiveHWM > 0 {
		if err := sock.SetRcvhwm(opts.ReceiveHWM); err != nil {
			return fmt.Errorf("set receive hwm: %w", err)
		}
	}
	if err := sock.SetSubscribe(""); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Subscriber is a connected SUB socket.
//
// Thread Safety:
//   - Not safe for concurrent use; see package documentation.
type Subscriber struct {
	sock     *zmq4.Socket
	poller   *zmq4.Poller
	endpoint string

	closeOnce sync.Once
	closed    bool
	closeErr  error
}

// Endpoint returns the endpoint this subscriber is connected to.
func (s *Subscriber) Endpoint() string {
	return s.endpoint
}

// Poll waits up to timeout for a message to become readable.
//
// A poll interrupted by a signal reports "no message" so the caller's loop
// can observe its cancellation.
func (s *Subscriber) Poll(timeout time.Duration) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}

	polled, err := s.poller.Poll(timeout)
	if err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EINTR) {
			return false, nil
		}
		return false, fmt.Errorf("poll: %w", err)
	}
	return len(polled) > 0, nil
}

// RecvFrame reads one frame and reports whether more frames of the same
// message follow.
func (s *Subscriber) RecvFrame() ([]byte, bool, error) {
	if s.closed {
		return nil, false, ErrClosed
	}

	frame, err := s.sock.RecvBytes(0)
	if err != nil {
		return nil, false, fmt.Errorf("receive: %w", err)
	}

	more, err := s.sock.GetRcvmore()
	if err != nil {
		return nil, false, fmt.Errorf("read rcvmore: %w", err)
	}
	return frame, more, nil
}

// Close releases the socket. Safe to call multiple times.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.closeErr = s.sock.Close()
	})
	return s.closeErr
}
