package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// bridgeMeasurement is the measurement holding bridge counters.
const bridgeMeasurement = "jeelabs_bridge"

// BridgeStats is one snapshot of the bridge's operational counters.
// Counters are cumulative since process start.
type BridgeStats struct {
	FramesReceived    uint64
	ReadingsPublished uint64
	FormatErrors      uint64
	UnsupportedFrames uint64
	IgnoredLines      uint64
	OverflowedLines   uint64
	PublishErrors     uint64
	PublishDropped    uint64
	Reconnects        uint64
	SerialConnected   bool
}

// WriteBridgeStats records a counter snapshot tagged with the bridge ID.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Readings themselves are never stored, only the bridge's own counters.
//
// Example:
//
//	client.WriteBridgeStats("jeelabs-bridge-01", stats, time.Now())
func (c *Client) WriteBridgeStats(bridgeID string, stats BridgeStats, timestamp time.Time) {
	c.WritePointWithTime(
		bridgeMeasurement,
		map[string]string{"bridge_id": bridgeID},
		bridgeStatsFields(stats),
		timestamp,
	)
}

// bridgeStatsFields flattens a snapshot into InfluxDB fields.
// Counters are written as unsigned integers.
func bridgeStatsFields(s BridgeStats) map[string]interface{} {
	return map[string]interface{}{
		"frames_received":    s.FramesReceived,
		"readings_published": s.ReadingsPublished,
		"format_errors":      s.FormatErrors,
		"unsupported_frames": s.UnsupportedFrames,
		"ignored_lines":      s.IgnoredLines,
		"overflowed_lines":   s.OverflowedLines,
		"publish_errors":     s.PublishErrors,
		"publish_dropped":    s.PublishDropped,
		"reconnects":         s.Reconnects,
		"serial_connected":   s.SerialConnected,
	}
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// It is a no-op when the client is not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
