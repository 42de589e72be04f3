// Package api implements the panel bridge's HTTP status API and WebSocket
// live feed.
//
// This package provides:
//   - Health and status endpoints backed by the bridge counters
//   - Paged history of Home Assistant calls and subscription changes
//   - A WebSocket hub that relays bridge activity as it happens
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Endpoints
//
// All routes live under /api/v1:
//
//	GET /health       200 when healthy, 503 when degraded
//	GET /status       health document with connection and counters
//	GET /metrics      runtime, feed, bridge and pool metrics
//	GET /actuations   ?target=&limit=&offset=
//	GET /connections  ?limit=
//	GET /ws           ?channels=panel.event,panel.actuation,panel.connection
//
// # Graceful Degradation
//
// The history endpoints answer 503 when the audit store is disabled. The
// rest of the API works without it.
//
// The API is read-only and unauthenticated; bind it to a trusted interface.
package api
