package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPanelEvent = "panel_event"
	MeasurementActuation  = "panel_actuation"
	MeasurementConnection = "panel_connection"
)

// WritePanelEvent records a decoded key or pack event.
//
// Parameters:
//   - kind: Event kind tag, e.g. "key" or "pack"
//   - fields: Event fields (queue_id, key_code, release or on)
//   - at: Receive time
//
// Example:
//
//	client.WritePanelEvent("key", map[string]any{"queue_id": 9, "key_code": 0x13, "release": true}, now)
func (c *Client) WritePanelEvent(kind string, fields map[string]any, at time.Time) {
	c.WritePointWithTime(MeasurementPanelEvent, map[string]string{"kind": kind}, fields, at)
}

// WriteActuation records one Home Assistant call and its outcome.
//
// Tags stay low-cardinality (target, entity, result); the latency and the
// requested state are fields.
func (c *Client) WriteActuation(target, entityID string, on, ok bool, duration time.Duration, at time.Time) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.WritePointWithTime(MeasurementActuation,
		map[string]string{
			"target":    target,
			"entity_id": entityID,
			"result":    result,
		},
		map[string]any{
			"on":          on,
			"duration_ms": float64(duration) / float64(time.Millisecond),
		},
		at,
	)
}

// WriteConnection records a subscriber state transition.
func (c *Client) WriteConnection(endpoint string, connected bool, reason string, at time.Time) {
	c.WritePointWithTime(MeasurementConnection,
		map[string]string{"endpoint": endpoint},
		map[string]any{
			"connected": connected,
			"reason":    reason,
		},
		at,
	)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
// Dropped silently when the client is not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
