package panel

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollTimeout bounds each wait for an incoming message. It is also the
// granularity of shutdown and heartbeat checks.
const PollTimeout = 1 * time.Second

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Subscriber is a connected subscription socket.
// This allows replacing the ZeroMQ socket in tests.
type Subscriber interface {
	// Poll waits up to timeout for a message to become readable.
	Poll(timeout time.Duration) (bool, error)

	// RecvFrame reads one frame and reports whether more frames of the same
	// logical message follow.
	RecvFrame() (frame []byte, more bool, err error)

	// Close releases the socket. It must not block on unsent data.
	Close() error
}

// DialFunc creates a subscriber connected to endpoint and subscribed to all
// topics.
type DialFunc func(ctx context.Context, endpoint string) (Subscriber, error)

// ConnState is the state of the subscription.
type ConnState int

// Connection states.
const (
	StateDisconnected ConnState = iota
	StateConnected
)

// String returns the state name.
func (s ConnState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// ConnectionManager owns the subscription socket lifecycle.
//
// It is the only component that creates or closes the subscriber. All methods
// must be called from the bridge loop goroutine.
type ConnectionManager struct {
	endpoint string
	dial     DialFunc
	liveness *LivenessMonitor
	logger   Logger

	sub Subscriber
}

// NewConnectionManager creates a manager in the Disconnected state.
func NewConnectionManager(endpoint string, dial DialFunc, liveness *LivenessMonitor, logger Logger) *ConnectionManager {
	if liveness == nil {
		liveness = NewLivenessMonitor(HeartbeatTimeout, nil)
	}
	return &ConnectionManager{
		endpoint: endpoint,
		dial:     dial,
		liveness: liveness,
		logger:   logger,
	}
}

// State returns the current connection state.
func (m *ConnectionManager) State() ConnState {
	if m.sub == nil {
		return StateDisconnected
	}
	return StateConnected
}

// Connect enters the Connected state: dial, subscribe to everything and reset
// the liveness clock. Any existing subscriber is closed first.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	m.Disconnect("reconnect")

	sub, err := m.dial(ctx, m.endpoint)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrTransport, m.endpoint, err)
	}

	m.sub = sub
	m.liveness.Reset()
	m.logInfo("subscription connected", "endpoint", m.endpoint)
	return nil
}

// Disconnect enters the Disconnected state, closing the subscriber if present.
// It is a no-op when already disconnected.
func (m *ConnectionManager) Disconnect(reason string) {
	if m.sub == nil {
		return
	}

	if err := m.sub.Close(); err != nil {
		m.logWarn("closing subscriber failed", "error", err)
	}
	m.sub = nil
	m.logInfo("subscription closed", "endpoint", m.endpoint, "reason", reason)
}

// MarkHeartbeat resets the liveness clock.
func (m *ConnectionManager) MarkHeartbeat() {
	m.liveness.Reset()
}

// IsStale reports whether the heartbeat timeout has elapsed on the active
// connection. A disconnected manager is never stale.
func (m *ConnectionManager) IsStale() bool {
	return m.sub != nil && m.liveness.IsStale()
}

// Liveness returns the liveness monitor.
func (m *ConnectionManager) Liveness() *LivenessMonitor {
	return m.liveness
}

// Receive polls for one logical message.
//
// Returns:
//   - [][]byte: Frames of the message (nil when nothing arrived)
//   - bool: true if a message was received within timeout
//   - error: ErrNotConnected or ErrTransport on socket failure
func (m *ConnectionManager) Receive(timeout time.Duration) ([][]byte, bool, error) {
	if m.sub == nil {
		return nil, false, ErrNotConnected
	}

	ready, err := m.sub.Poll(timeout)
	if err != nil {
		return nil, false, fmt.Errorf("%w: poll: %w", ErrTransport, err)
	}
	if !ready {
		return nil, false, nil
	}

	frames, err := collectFrames(m.sub)
	if err != nil {
		return nil, false, err
	}
	return frames, true, nil
}

// collectFrames reads frames until the transport reports the last one.
func collectFrames(sub Subscriber) ([][]byte, error) {
	var frames [][]byte
	for {
		frame, more, err := sub.RecvFrame()
		if err != nil {
			if errors.Is(err, ErrTransport) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: receive frame %d: %w", ErrTransport, len(frames), err)
		}
		frames = append(frames, frame)
		if !more {
			return frames, nil
		}
	}
}

func (m *ConnectionManager) logInfo(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *ConnectionManager) logWarn(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}
