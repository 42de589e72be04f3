package panel

import "time"

// HeartbeatTimeout is the longest silence on the heartbeat channel before the
// subscription is presumed dead.
const HeartbeatTimeout = 6 * time.Second

// LivenessMonitor tracks when the last heartbeat (or fresh connection) was seen.
//
// It is owned by the ConnectionManager and touched only from the bridge loop.
type LivenessMonitor struct {
	timeout time.Duration
	now     func() time.Time
	last    time.Time
}

// NewLivenessMonitor creates a monitor. A nil clock defaults to time.Now and
// a zero timeout defaults to HeartbeatTimeout.
func NewLivenessMonitor(timeout time.Duration, now func() time.Time) *LivenessMonitor {
	if timeout <= 0 {
		timeout = HeartbeatTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &LivenessMonitor{
		timeout: timeout,
		now:     now,
		last:    now(),
	}
}

// Reset records a heartbeat or a new connection at the current instant.
func (m *LivenessMonitor) Reset() {
	m.last = m.now()
}

// IsStale reports whether the timeout has elapsed since the last reset.
func (m *LivenessMonitor) IsStale() bool {
	return m.Silence() >= m.timeout
}

// Silence returns the time since the last reset.
func (m *LivenessMonitor) Silence() time.Duration {
	return m.now().Sub(m.last)
}

// LastBeat returns the instant of the last reset.
func (m *LivenessMonitor) LastBeat() time.Time {
	return m.last
}

// Timeout returns the configured liveness timeout.
func (m *LivenessMonitor) Timeout() time.Duration {
	return m.timeout
}
