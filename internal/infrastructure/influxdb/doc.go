// Package influxdb writes panel bridge telemetry to InfluxDB v2.
//
// Three measurements are recorded:
//   - panel_event: decoded key and pack events, tagged by kind
//   - panel_actuation: Home Assistant calls with result and latency
//   - panel_connection: subscriber connect and disconnect transitions
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteConnection("tcp://panel:5556", true, "connected", time.Now())
//
// Writes never block: points are batched by the client library and flushed
// on the configured interval. Batch failures are logged, not returned.
package influxdb
