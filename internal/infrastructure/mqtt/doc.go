// Package mqtt publishes panel bridge telemetry to an MQTT broker.
//
// The bridge only publishes: decoded panel events, actuation results and a
// retained health document. It never consumes commands, so the client keeps
// no subscription state.
//
// # Presence
//
// On every (re)connect the client publishes a retained "online" document to
// graylogic/system/status. The broker publishes the matching "offline" Last
// Will if the process dies without calling Close. Close publishes a graceful
// "offline" document before disconnecting.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish("graylogic/event/panel/key", payload, 0, false)
//
// Publish fails fast with ErrNotConnected while paho is reconnecting, so a
// slow broker never stalls the receive loop.
package mqtt
