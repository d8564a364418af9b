// Package influxdb provides InfluxDB connectivity for the JeeLabs bridge.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched point writing, and health monitoring.
//
// # Purpose
//
// The bridge writes its own operational counters (frames received,
// format errors, publish drops, serial reconnects) to the
// "jeelabs_bridge" measurement on every health tick. Sensor readings are
// not stored here; they are published over MQTT only.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // statistics sink not configured
//	}
//	defer client.Close()
//
//	client.WriteBridgeStats("jeelabs-bridge-01", stats, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
package influxdb
