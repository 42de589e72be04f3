package panel

import "fmt"

// Outcome tells the caller which route a message took.
type Outcome int

// Dispatch outcomes.
const (
	OutcomeUnknown Outcome = iota
	OutcomeHeartbeat
	OutcomeKeyEvent
	OutcomePackEvent
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeHeartbeat:
		return "heartbeat"
	case OutcomeKeyEvent:
		return "key_event"
	case OutcomePackEvent:
		return "pack_event"
	default:
		return "unknown"
	}
}

// Handlers receives decoded messages from the dispatcher.
// Nil handlers are skipped; the message is still decoded.
type Handlers struct {
	Heartbeat func()
	KeyEvent  func(KeyEvent)
	PackEvent func(PackEvent)
}

type route struct {
	outcome Outcome
	handle  func(payload []byte) error
}

// Dispatcher routes messages to kind-specific decoders through a fixed table.
type Dispatcher struct {
	routes map[Kind]route
	logger Logger
}

// NewDispatcher builds the routing table for the known message kinds.
func NewDispatcher(h Handlers, logger Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		routes: map[Kind]route{
			KindHeartbeat: {
				outcome: OutcomeHeartbeat,
				handle: func([]byte) error {
					if h.Heartbeat != nil {
						h.Heartbeat()
					}
					return nil
				},
			},
			KindKeyEvent: {
				outcome: OutcomeKeyEvent,
				handle: func(payload []byte) error {
					ev, err := DecodeKeyEvent(payload)
					if err != nil {
						return err
					}
					if h.KeyEvent != nil {
						h.KeyEvent(ev)
					}
					return nil
				},
			},
			KindPackEvent: {
				outcome: OutcomePackEvent,
				handle: func(payload []byte) error {
					ev, err := DecodePackEvent(payload)
					if err != nil {
						return err
					}
					if h.PackEvent != nil {
						h.PackEvent(ev)
					}
					return nil
				},
			},
		},
	}
}

// Dispatch hands the message to the route registered for its kind.
//
// Unknown kinds are not errors: the stream carries message types this bridge
// does not consume. They are logged at debug level and dropped.
//
// Returns:
//   - Outcome: The route taken (OutcomeUnknown for unrecognised kinds)
//   - error: ErrShortPayload if the payload does not fit the kind's layout
func (d *Dispatcher) Dispatch(msg Message) (Outcome, error) {
	r, ok := d.routes[msg.Header.Kind]
	if !ok {
		if d.logger != nil {
			d.logger.Debug("dropping unknown message kind",
				"kind", msg.Header.Kind.String(),
				"length", msg.Header.Length,
			)
		}
		return OutcomeUnknown, nil
	}

	if err := r.handle(msg.Payload); err != nil {
		return r.outcome, fmt.Errorf("%s: %w", msg.Header.Kind, err)
	}
	return r.outcome, nil
}
