package panel

import (
	"fmt"
	"time"
)

// MQTT message types published by the panel bridge for the rest of Gray Logic.
// All payloads are JSON; timestamps are UTC.

// BridgeID identifies this bridge in health and event messages.
const BridgeID = "panel"

// TopicPrefix is the base topic for all Gray Logic messages.
const TopicPrefix = "graylogic"

// EventMessage mirrors one decoded key or pack event.
// Topic: graylogic/event/panel/{key|pack}
// QoS: 0, Retained: No
type EventMessage struct {
	// Timestamp is when the event was received (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Kind is "key_event" or "pack_event".
	Kind string `json:"kind"`

	// QueueID is the input queue of a key event.
	QueueID *int32 `json:"queue_id,omitempty"`

	// KeyCode is the key of a key event.
	KeyCode *int32 `json:"key_code,omitempty"`

	// Release is true for a key release, false for a press.
	Release *bool `json:"release,omitempty"`

	// On is the pack state of a pack event.
	On *bool `json:"on,omitempty"`
}

// ActuationMessage reports the outcome of one Home Assistant call.
// Topic: graylogic/ack/panel/{target}
// QoS: 1, Retained: No
type ActuationMessage struct {
	Timestamp  time.Time `json:"timestamp"`
	Target     Target    `json:"target"`
	EntityID   string    `json:"entity_id"`
	On         bool      `json:"on"`
	Source     string    `json:"source"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports operational status.
// Topic: graylogic/health/panel
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier ("panel").
	Bridge string `json:"bridge"`

	// Timestamp is when the health status was generated (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Status indicates the current operational status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is how long the bridge has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Connection describes the subscription to the panel publisher.
	Connection *ConnectionStatus `json:"connection,omitempty"`

	// Statistics contains operational metrics.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains a degraded status.
	Reason string `json:"reason,omitempty"`
}

// ConnectionStatus describes the subscription state.
type ConnectionStatus struct {
	// Status is "connected" or "disconnected".
	Status string `json:"status"`

	// Endpoint is the ZeroMQ publisher endpoint.
	Endpoint string `json:"endpoint"`

	// LastHeartbeat is when the last heartbeat arrived.
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	MessagesReceived  uint64 `json:"messages_received"`
	Heartbeats        uint64 `json:"heartbeats"`
	KeyEvents         uint64 `json:"key_events"`
	PackEvents        uint64 `json:"pack_events"`
	Unknown           uint64 `json:"unknown"`
	Malformed         uint64 `json:"malformed"`
	ActuationsOK      uint64 `json:"actuations_ok"`
	ActuationsFailed  uint64 `json:"actuations_failed"`
	Reconnects        uint64 `json:"reconnects"`
	HeartbeatTimeouts uint64 `json:"heartbeat_timeouts"`
	TransportErrors   uint64 `json:"transport_errors"`
}

// NewEventMessage builds the MQTT mirror of a decoded event.
func NewEventMessage(ev Event) EventMessage {
	msg := EventMessage{Timestamp: ev.ReceivedAt.UTC()}
	switch {
	case ev.Key != nil:
		k := *ev.Key
		msg.Kind = OutcomeKeyEvent.String()
		msg.QueueID = &k.QueueID
		msg.KeyCode = &k.KeyCode
		msg.Release = &k.IsRelease
	case ev.Pack != nil:
		p := *ev.Pack
		msg.Kind = OutcomePackEvent.String()
		msg.On = &p.On
	}
	return msg
}

// NewActuationMessage builds the MQTT report of an actuation result.
func NewActuationMessage(res ActuationResult) ActuationMessage {
	msg := ActuationMessage{
		Timestamp:  res.At.UTC(),
		Target:     res.Action.Target,
		EntityID:   res.Action.EntityID,
		On:         res.Action.On,
		Source:     res.Source.String(),
		Success:    res.Err == nil,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		msg.Error = res.Err.Error()
	}
	return msg
}

// NewHealthMessage creates a health status message from bridge statistics.
func NewHealthMessage(version string, status HealthStatus, stats Stats, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:        BridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}

	conn := &ConnectionStatus{
		Status:   StateDisconnected.String(),
		Endpoint: stats.Endpoint,
	}
	if stats.Connected {
		conn.Status = StateConnected.String()
	}
	if !stats.LastHeartbeat.IsZero() {
		last := stats.LastHeartbeat.UTC()
		conn.LastHeartbeat = &last
	}
	msg.Connection = conn

	msg.Statistics = &BridgeStatistics{
		MessagesReceived:  stats.MessagesRx,
		Heartbeats:        stats.HeartbeatsRx,
		KeyEvents:         stats.KeyEventsRx,
		PackEvents:        stats.PackEventsRx,
		Unknown:           stats.UnknownRx,
		Malformed:         stats.MalformedRx,
		ActuationsOK:      stats.ActuationsOK,
		ActuationsFailed:  stats.ActuationsFailed,
		Reconnects:        stats.ReconnectsTotal,
		HeartbeatTimeouts: stats.HeartbeatTimeouts,
		TransportErrors:   stats.TransportErrors,
	}

	return msg
}

// Topic helpers

// EventTopic returns the MQTT topic for mirrored events.
// Example: graylogic/event/panel/key
func EventTopic(kind Kind) string {
	name := "unknown"
	switch kind {
	case KindKeyEvent:
		name = "key"
	case KindPackEvent:
		name = "pack"
	}
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, BridgeID, name)
}

// ActuationTopic returns the MQTT topic for actuation reports.
// Example: graylogic/ack/panel/light
func ActuationTopic(target Target) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, BridgeID, target)
}

// HealthTopic returns the MQTT topic for health status.
// Example: graylogic/health/panel
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, BridgeID)
}
