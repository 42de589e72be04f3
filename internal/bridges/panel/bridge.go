package panel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats holds operational statistics.
type Stats struct {
	MessagesRx        uint64
	HeartbeatsRx      uint64
	KeyEventsRx       uint64
	PackEventsRx      uint64
	UnknownRx         uint64
	MalformedRx       uint64
	ActuationsOK      uint64
	ActuationsFailed  uint64
	ReconnectsTotal   uint64
	HeartbeatTimeouts uint64
	TransportErrors   uint64
	LastHeartbeat     time.Time
	LastMessage       time.Time
	Connected         bool
	Endpoint          string
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Endpoint is the ZeroMQ endpoint of the panel publisher
	// (e.g. "tcp://192.168.1.20:5556").
	Endpoint string

	// Dial creates subscribers. Required.
	Dial DialFunc

	// Actuator executes mapped actions. Required.
	Actuator Actuator

	// LightEntityID is the Home Assistant entity driven by the dome light key.
	LightEntityID string

	// ClimateEntityID is the Home Assistant entity driven by pack events.
	ClimateEntityID string

	// Observer is optional; use Observers to fan out to several.
	Observer Observer

	// Logger is optional structured logger.
	Logger Logger

	// Clock overrides time.Now. Used by tests.
	Clock func() time.Time

	// PollTimeout overrides PollTimeout. Used by tests.
	PollTimeout time.Duration

	// HeartbeatTimeout overrides HeartbeatTimeout. Used by tests.
	HeartbeatTimeout time.Duration
}

// Bridge runs the receive/decode/actuate loop.
//
// Thread Safety:
//   - Run must be called from a single goroutine.
//   - Stats and IsConnected are safe for concurrent use.
type Bridge struct {
	conn       *ConnectionManager
	dispatcher *Dispatcher
	mapper     *ActionMapper
	actuator   Actuator
	observer   Observer
	logger     Logger
	now        func() time.Time
	endpoint   string

	pollTimeout time.Duration

	// ctx is the context of the active Run call, used for actuation requests.
	ctx           context.Context
	running       atomic.Bool
	connectedOnce bool

	// Statistics (atomic, read by the status API and health reporter)
	connected         atomic.Bool
	messagesRx        atomic.Uint64
	heartbeatsRx      atomic.Uint64
	keyEventsRx       atomic.Uint64
	packEventsRx      atomic.Uint64
	unknownRx         atomic.Uint64
	malformedRx       atomic.Uint64
	actuationsOK      atomic.Uint64
	actuationsFailed  atomic.Uint64
	reconnectsTotal   atomic.Uint64
	heartbeatTimeouts atomic.Uint64
	transportErrors   atomic.Uint64
	lastHeartbeat     atomic.Int64 // Unix nanoseconds
	lastMessage       atomic.Int64 // Unix nanoseconds
}

// NewBridge creates a new bridge instance. Call Run to start the loop.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if opts.Dial == nil {
		return nil, fmt.Errorf("dial function is required")
	}
	if opts.Actuator == nil {
		return nil, fmt.Errorf("actuator is required")
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = PollTimeout
	}

	b := &Bridge{
		actuator:    opts.Actuator,
		observer:    opts.Observer,
		logger:      opts.Logger,
		now:         now,
		endpoint:    opts.Endpoint,
		pollTimeout: pollTimeout,
		mapper:      NewActionMapper(opts.LightEntityID, opts.ClimateEntityID, opts.Logger),
		ctx:         context.Background(),
	}

	liveness := NewLivenessMonitor(opts.HeartbeatTimeout, now)
	b.conn = NewConnectionManager(opts.Endpoint, opts.Dial, liveness, opts.Logger)
	b.dispatcher = NewDispatcher(Handlers{
		Heartbeat: b.handleHeartbeat,
		KeyEvent:  b.handleKeyEvent,
		PackEvent: b.handlePackEvent,
	}, opts.Logger)

	return b, nil
}

// SetObserver replaces the observer. Components that need the bridge as a
// stats source (the health reporter) are built after it, so main attaches
// observers here. Must be called before Run.
func (b *Bridge) SetObserver(o Observer) {
	b.observer = o
}

// Run executes the bridge loop until ctx is cancelled.
//
// Each iteration checks for shutdown, (re)connects if needed and polls for
// one message with a bounded timeout. A received message is dispatched; a
// poll timeout checks the heartbeat. Transport errors and heartbeat timeouts
// close the subscription; the next iteration opens a fresh one.
//
// Returns:
//   - error: nil on shutdown, or an error if Run is already active
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("panel: bridge already running")
	}
	defer b.running.Store(false)

	b.ctx = ctx
	defer b.disconnect("shutdown")

	b.logInfo("panel bridge started", "endpoint", b.endpoint)
	for {
		if ctx.Err() != nil {
			b.logInfo("panel bridge stopping")
			return nil
		}
		b.step(ctx)
	}
}

// step runs one loop iteration.
func (b *Bridge) step(ctx context.Context) {
	if b.conn.State() == StateDisconnected {
		if err := b.connect(ctx); err != nil {
			b.logError("connecting subscription failed", err)
			b.wait(ctx, b.pollTimeout)
			return
		}
	}

	frames, ready, err := b.conn.Receive(b.pollTimeout)
	if err != nil {
		b.transportErrors.Add(1)
		b.logWarn("transport error, resetting subscription", "error", err)
		b.disconnect("transport error")
		return
	}

	if ready {
		b.handleFrames(frames)
		return
	}

	// Liveness is only judged once the socket has nothing queued. A slow
	// actuation must not expire heartbeats that are already waiting.
	if b.conn.IsStale() {
		b.heartbeatTimeouts.Add(1)
		b.logWarn("heartbeat timeout, resetting subscription",
			"silence", b.conn.Liveness().Silence().String(),
			"timeout", b.conn.Liveness().Timeout().String(),
		)
		b.disconnect("heartbeat timeout")
	}
}

// connect opens a fresh subscription and records the transition.
func (b *Bridge) connect(ctx context.Context) error {
	if err := b.conn.Connect(ctx); err != nil {
		return err
	}

	if b.connectedOnce {
		b.reconnectsTotal.Add(1)
	}
	b.connectedOnce = true
	b.connected.Store(true)
	b.notifyConnection(StateConnected, "connected")
	return nil
}

// disconnect closes the subscription and records the transition.
func (b *Bridge) disconnect(reason string) {
	if b.conn.State() == StateDisconnected {
		return
	}
	b.conn.Disconnect(reason)
	b.connected.Store(false)
	b.notifyConnection(StateDisconnected, reason)
}

// wait sleeps for d or until ctx is cancelled.
func (b *Bridge) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// handleFrames decodes and dispatches one logical message.
// Malformed messages are dropped; the connection is left alone.
func (b *Bridge) handleFrames(frames [][]byte) {
	b.messagesRx.Add(1)
	b.lastMessage.Store(b.now().UnixNano())

	msg, err := parseFrames(frames)
	if err != nil {
		b.malformedRx.Add(1)
		b.logWarn("discarding malformed message", "error", err, "frames", len(frames))
		return
	}

	outcome, err := b.dispatcher.Dispatch(msg)
	if err != nil {
		b.malformedRx.Add(1)
		b.logWarn("discarding malformed message", "error", err, "kind", msg.Header.Kind.String())
		return
	}

	switch outcome {
	case OutcomeHeartbeat:
		b.heartbeatsRx.Add(1)
	case OutcomeKeyEvent:
		b.keyEventsRx.Add(1)
	case OutcomePackEvent:
		b.packEventsRx.Add(1)
	default:
		b.unknownRx.Add(1)
	}
}

// parseFrames is ParseMessage, except that a heartbeat is accepted on its
// header alone. Its payload is never read, so a short one still counts.
func parseFrames(frames [][]byte) (Message, error) {
	if len(frames) > 0 {
		if header, err := DecodeHeader(frames[0]); err == nil && header.Kind == KindHeartbeat {
			return Message{Header: header}, nil
		}
	}
	return ParseMessage(frames)
}

func (b *Bridge) handleHeartbeat() {
	b.conn.MarkHeartbeat()
	b.lastHeartbeat.Store(b.now().UnixNano())
	b.logDebug("heartbeat received")
}

func (b *Bridge) handleKeyEvent(ev KeyEvent) {
	b.logDebug("key event received", "queue_id", ev.QueueID, "key_code", ev.KeyCode, "release", ev.IsRelease)
	b.notifyEvent(Event{Kind: KindKeyEvent, Key: &ev, ReceivedAt: b.now()})

	if action, ok := b.mapper.MapKeyEvent(ev); ok {
		b.actuate(action, KindKeyEvent)
	}
}

func (b *Bridge) handlePackEvent(ev PackEvent) {
	b.logDebug("pack event received", "on", ev.On)
	b.notifyEvent(Event{Kind: KindPackEvent, Pack: &ev, ReceivedAt: b.now()})

	if action, ok := b.mapper.MapPackEvent(ev); ok {
		b.actuate(action, KindPackEvent)
	}
}

// actuate performs one actuation call. Failures are logged and counted but
// never reach the connection state machine.
func (b *Bridge) actuate(action Action, source Kind) {
	start := b.now()
	err := Execute(b.ctx, b.actuator, action)
	res := ActuationResult{
		Action:   action,
		Source:   source,
		Err:      err,
		Duration: b.now().Sub(start),
		At:       start,
	}

	if err != nil {
		b.actuationsFailed.Add(1)
		b.logError("actuation failed", err, "action", action.String(), "source", source.String())
	} else {
		b.actuationsOK.Add(1)
		b.logInfo("actuation sent", "action", action.String(), "source", source.String())
	}

	b.notify(func(o Observer) { o.OnActuation(res) })
}

func (b *Bridge) notifyEvent(ev Event) {
	b.notify(func(o Observer) { o.OnEvent(ev) })
}

func (b *Bridge) notifyConnection(state ConnState, reason string) {
	change := ConnectionChange{
		State:    state,
		Endpoint: b.endpoint,
		Reason:   reason,
		At:       b.now(),
	}
	b.notify(func(o Observer) { o.OnConnectionChange(change) })
}

// notify calls the observer with panic recovery.
func (b *Bridge) notify(fn func(Observer)) {
	if b.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logError("observer panic", fmt.Errorf("%v", r))
		}
	}()
	fn(b.observer)
}

// IsConnected returns true while a subscription is open.
func (b *Bridge) IsConnected() bool {
	return b.connected.Load()
}

// Stats returns current operational statistics.
func (b *Bridge) Stats() Stats {
	return Stats{
		MessagesRx:        b.messagesRx.Load(),
		HeartbeatsRx:      b.heartbeatsRx.Load(),
		KeyEventsRx:       b.keyEventsRx.Load(),
		PackEventsRx:      b.packEventsRx.Load(),
		UnknownRx:         b.unknownRx.Load(),
		MalformedRx:       b.malformedRx.Load(),
		ActuationsOK:      b.actuationsOK.Load(),
		ActuationsFailed:  b.actuationsFailed.Load(),
		ReconnectsTotal:   b.reconnectsTotal.Load(),
		HeartbeatTimeouts: b.heartbeatTimeouts.Load(),
		TransportErrors:   b.transportErrors.Load(),
		LastHeartbeat:     unixNanoTime(b.lastHeartbeat.Load()),
		LastMessage:       unixNanoTime(b.lastMessage.Load()),
		Connected:         b.IsConnected(),
		Endpoint:          b.endpoint,
	}
}

func unixNanoTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
