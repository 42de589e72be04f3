package panel

import (
	"context"
	"errors"
	"sync"
	"time"
)

// step is one scripted poll result for fakeNetwork.
type step struct {
	// idle makes the poll time out, advancing the clock by the poll timeout.
	idle bool

	// advance moves the clock before a message is delivered.
	advance time.Duration

	// frames is the message delivered by this poll.
	frames [][]byte

	// pollErr fails the poll itself.
	pollErr error

	// recvErr fails the receive after all frames have been read.
	recvErr error
}

func idle(n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = step{idle: true}
	}
	return out
}

func heartbeatStep() step {
	return step{frames: [][]byte{EncodeMessage(KindHeartbeat, nil)}}
}

func keyStep(queue, key int32, release bool) step {
	ev := KeyEvent{QueueID: queue, KeyCode: key, IsRelease: release}
	return step{frames: [][]byte{EncodeMessage(KindKeyEvent, ev.Encode())}}
}

func packStep(on bool) step {
	return step{frames: [][]byte{EncodeMessage(KindPackEvent, PackEvent{On: on}.Encode())}}
}

func unknownStep(kind Kind) step {
	return step{frames: [][]byte{EncodeMessage(kind, []byte{1, 2, 3, 4})}}
}

// fakeNetwork hands out fakeSubscribers that share one script.
type fakeNetwork struct {
	mu       sync.Mutex
	clock    *fakeClock
	steps    []step
	dialErrs []error
	dials    int
	closes   int
	onDrain  func()
}

func newFakeNetwork(clock *fakeClock, steps ...step) *fakeNetwork {
	return &fakeNetwork{clock: clock, steps: steps}
}

func (n *fakeNetwork) Dial(_ context.Context, _ string) (Subscriber, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dials++
	if len(n.dialErrs) > 0 {
		err := n.dialErrs[0]
		n.dialErrs = n.dialErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeSubscriber{net: n}, nil
}

func (n *fakeNetwork) next() (step, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.steps) == 0 {
		return step{}, false
	}
	s := n.steps[0]
	n.steps = n.steps[1:]
	return s, true
}

func (n *fakeNetwork) counts() (dials, closes int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials, n.closes
}

// fakeSubscriber implements Subscriber by replaying the network script.
type fakeSubscriber struct {
	net     *fakeNetwork
	pending [][]byte
	recvErr error
	closed  bool
}

var errSocketClosed = errors.New("socket closed")

func (s *fakeSubscriber) Poll(timeout time.Duration) (bool, error) {
	if s.closed {
		return false, errSocketClosed
	}

	st, ok := s.net.next()
	if !ok {
		if s.net.onDrain != nil {
			s.net.onDrain()
		}
		return false, nil
	}

	if st.idle {
		s.net.clock.Advance(timeout)
		return false, nil
	}
	s.net.clock.Advance(st.advance)
	if st.pollErr != nil {
		return false, st.pollErr
	}

	s.pending = st.frames
	s.recvErr = st.recvErr
	return true, nil
}

func (s *fakeSubscriber) RecvFrame() ([]byte, bool, error) {
	if len(s.pending) == 0 {
		err := s.recvErr
		s.recvErr = nil
		if err == nil {
			err = errors.New("no frame pending")
		}
		return nil, false, err
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, len(s.pending) > 0 || s.recvErr != nil, nil
}

func (s *fakeSubscriber) Close() error {
	s.closed = true
	s.net.mu.Lock()
	s.net.closes++
	s.net.mu.Unlock()
	return nil
}

// recordingObserver captures observer notifications.
type recordingObserver struct {
	mu         sync.Mutex
	events     []Event
	actuations []ActuationResult
	changes    []ConnectionChange
}

func (o *recordingObserver) OnEvent(ev Event) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) OnActuation(res ActuationResult) {
	o.mu.Lock()
	o.actuations = append(o.actuations, res)
	o.mu.Unlock()
}

func (o *recordingObserver) OnConnectionChange(c ConnectionChange) {
	o.mu.Lock()
	o.changes = append(o.changes, c)
	o.mu.Unlock()
}

func (o *recordingObserver) getChanges() []ConnectionChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ConnectionChange, len(o.changes))
	copy(out, o.changes)
	return out
}
