package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Bridge        BridgeMetrics    `json:"bridge"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// BridgeMetrics mirrors the panel bridge counters.
type BridgeMetrics struct {
	Connected         bool    `json:"connected"`
	Endpoint          string  `json:"endpoint"`
	MessagesRx        uint64  `json:"messages_rx"`
	HeartbeatsRx      uint64  `json:"heartbeats_rx"`
	KeyEventsRx       uint64  `json:"key_events_rx"`
	PackEventsRx      uint64  `json:"pack_events_rx"`
	UnknownRx         uint64  `json:"unknown_rx"`
	MalformedRx       uint64  `json:"malformed_rx"`
	ActuationsOK      uint64  `json:"actuations_ok"`
	ActuationsFailed  uint64  `json:"actuations_failed"`
	Reconnects        uint64  `json:"reconnects"`
	HeartbeatTimeouts uint64  `json:"heartbeat_timeouts"`
	TransportErrors   uint64  `json:"transport_errors"`
	HeartbeatAgeSec   float64 `json:"heartbeat_age_seconds,omitempty"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, feed, bridge and pool metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	now := time.Now()
	stats := s.bridge.Stats()

	metrics := SystemMetrics{
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Bridge: BridgeMetrics{
			Connected:         stats.Connected,
			Endpoint:          stats.Endpoint,
			MessagesRx:        stats.MessagesRx,
			HeartbeatsRx:      stats.HeartbeatsRx,
			KeyEventsRx:       stats.KeyEventsRx,
			PackEventsRx:      stats.PackEventsRx,
			UnknownRx:         stats.UnknownRx,
			MalformedRx:       stats.MalformedRx,
			ActuationsOK:      stats.ActuationsOK,
			ActuationsFailed:  stats.ActuationsFailed,
			Reconnects:        stats.ReconnectsTotal,
			HeartbeatTimeouts: stats.HeartbeatTimeouts,
			TransportErrors:   stats.TransportErrors,
		},
	}
	if !stats.LastHeartbeat.IsZero() {
		metrics.Bridge.HeartbeatAgeSec = now.Sub(stats.LastHeartbeat).Seconds()
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
