package panel

import "time"

// Observer receives bridge activity for mirroring to MQTT, telemetry, audit
// and live feeds. Calls happen synchronously on the bridge loop, so
// implementations must return quickly.
type Observer interface {
	OnEvent(ev Event)
	OnActuation(res ActuationResult)
	OnConnectionChange(change ConnectionChange)
}

// ConnectionChange describes a transition of the subscription state.
type ConnectionChange struct {
	State    ConnState
	Endpoint string
	Reason   string
	At       time.Time
}

// Observers fans out notifications to every non-nil observer in order.
type Observers []Observer

// OnEvent implements Observer.
func (os Observers) OnEvent(ev Event) {
	for _, o := range os {
		if o != nil {
			o.OnEvent(ev)
		}
	}
}

// OnActuation implements Observer.
func (os Observers) OnActuation(res ActuationResult) {
	for _, o := range os {
		if o != nil {
			o.OnActuation(res)
		}
	}
}

// OnConnectionChange implements Observer.
func (os Observers) OnConnectionChange(change ConnectionChange) {
	for _, o := range os {
		if o != nil {
			o.OnConnectionChange(change)
		}
	}
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are ignored.
type ObserverFuncs struct {
	Event      func(Event)
	Actuation  func(ActuationResult)
	Connection func(ConnectionChange)
}

// OnEvent implements Observer.
func (f ObserverFuncs) OnEvent(ev Event) {
	if f.Event != nil {
		f.Event(ev)
	}
}

// OnActuation implements Observer.
func (f ObserverFuncs) OnActuation(res ActuationResult) {
	if f.Actuation != nil {
		f.Actuation(res)
	}
}

// OnConnectionChange implements Observer.
func (f ObserverFuncs) OnConnectionChange(change ConnectionChange) {
	if f.Connection != nil {
		f.Connection(change)
	}
}
