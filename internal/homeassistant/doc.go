// Package homeassistant is a small REST client for Home Assistant services.
//
// It implements the actuator used by the panel bridge: on/off commands for
// the dome light and the cabin climate unit, sent as
//
//	POST {base_url}/api/services/{domain}/{service}
//	Authorization: Bearer {token}
//	{"entity_id": "..."}
//
// # Service Mapping
//
//   - Light on/off: {light_domain}.turn_on / {light_domain}.turn_off
//     (light_domain defaults to "switch")
//   - Climate on: climate.set_hvac_mode with the configured hvac_mode
//   - Climate off: climate.turn_off
//
// # Failure Handling
//
// Each attempt is bounded by the client timeout (10 seconds by default).
// Network errors, 429 and 5xx are retried with exponential backoff;
// 401/403 and other 4xx fail at once. Callers receive a wrapped sentinel
// error and decide what to do with it; the panel bridge logs and moves on.
package homeassistant
