package panel

import (
	"encoding/json"
	"fmt"
)

// MQTTObserver mirrors bridge activity onto MQTT.
//
// Events go out at QoS 0 since they are informational. Actuation reports use
// QoS 1. Connection changes trigger an immediate health publish when a
// reporter is attached.
type MQTTObserver struct {
	publisher Publisher
	health    *HealthReporter
	logger    Logger
}

// NewMQTTObserver creates an observer publishing through p.
// health may be nil.
func NewMQTTObserver(p Publisher, health *HealthReporter, logger Logger) *MQTTObserver {
	return &MQTTObserver{
		publisher: p,
		health:    health,
		logger:    logger,
	}
}

// OnEvent implements Observer.
func (o *MQTTObserver) OnEvent(ev Event) {
	o.publish(EventTopic(ev.Kind), NewEventMessage(ev), 0)
}

// OnActuation implements Observer.
func (o *MQTTObserver) OnActuation(res ActuationResult) {
	o.publish(ActuationTopic(res.Action.Target), NewActuationMessage(res), 1)
}

// OnConnectionChange implements Observer.
func (o *MQTTObserver) OnConnectionChange(ConnectionChange) {
	if o.health == nil {
		return
	}
	if err := o.health.PublishNow(); err != nil {
		o.logWarn("publishing health after connection change failed", err)
	}
}

func (o *MQTTObserver) publish(topic string, v any, qos byte) {
	if o.publisher == nil || !o.publisher.IsConnected() {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		o.logWarn("encoding MQTT message failed", fmt.Errorf("%s: %w", topic, err))
		return
	}

	if err := o.publisher.Publish(topic, payload, qos, false); err != nil {
		o.logWarn("publishing MQTT message failed", fmt.Errorf("%s: %w", topic, err))
	}
}

func (o *MQTTObserver) logWarn(msg string, err error) {
	if o.logger != nil {
		o.logger.Warn(msg, "error", err)
	}
}
