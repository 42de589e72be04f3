package main

import (
	"time"

	"github.com/nerrad567/gray-logic-panelbridge/internal/bridges/panel"
)

// telemetryWriter is the subset of influxdb.Client the bridge records to.
type telemetryWriter interface {
	WritePanelEvent(kind string, fields map[string]any, at time.Time)
	WriteActuation(target, entityID string, on, ok bool, duration time.Duration, at time.Time)
	WriteConnection(endpoint string, connected bool, reason string, at time.Time)
}

// telemetryObserver writes bridge activity as InfluxDB points. Writes are
// batched by the client and never block the loop.
type telemetryObserver struct {
	w telemetryWriter
}

func newTelemetryObserver(w telemetryWriter) *telemetryObserver {
	return &telemetryObserver{w: w}
}

// OnEvent implements panel.Observer.
func (o *telemetryObserver) OnEvent(ev panel.Event) {
	switch {
	case ev.Key != nil:
		o.w.WritePanelEvent("key", map[string]any{
			"queue_id": ev.Key.QueueID,
			"key_code": ev.Key.KeyCode,
			"release":  ev.Key.IsRelease,
		}, ev.ReceivedAt)
	case ev.Pack != nil:
		o.w.WritePanelEvent("pack", map[string]any{"on": ev.Pack.On}, ev.ReceivedAt)
	}
}

// OnActuation implements panel.Observer.
func (o *telemetryObserver) OnActuation(res panel.ActuationResult) {
	o.w.WriteActuation(string(res.Action.Target), res.Action.EntityID, res.Action.On,
		res.Err == nil, res.Duration, res.At)
}

// OnConnectionChange implements panel.Observer.
func (o *telemetryObserver) OnConnectionChange(change panel.ConnectionChange) {
	o.w.WriteConnection(change.Endpoint, change.State == panel.StateConnected, change.Reason, change.At)
}
