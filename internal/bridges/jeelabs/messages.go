package jeelabs

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/mqtt"
)

// Protocol is the protocol identifier used in topics and payloads.
const Protocol = "jeelabs"

// StateTopic returns the topic a node's readings are published on.
//
// Example: graylogic/state/jeelabs/3
func StateTopic(nodeID string) string {
	return mqtt.Topics{}.BridgeState(Protocol, nodeID)
}

// HealthTopic returns the bridge health topic.
func HealthTopic() string {
	return mqtt.Topics{}.BridgeHealth(Protocol)
}

// RequestSubscribeTopic returns the wildcard topic for requests to this bridge.
func RequestSubscribeTopic() string {
	return mqtt.Topics{}.BridgeRequests(Protocol)
}

// ResponseTopic returns the topic for the response to requestID.
func ResponseTopic(requestID string) string {
	return mqtt.Topics{}.BridgeResponse(Protocol, requestID)
}

// StateMessage is sent from Bridge to Core for every decoded frame.
// Topic: graylogic/state/jeelabs/{node_id}
// QoS: configured, Retained: Yes
type StateMessage struct {
	// ReadingID uniquely identifies this reading.
	ReadingID string `json:"reading_id"`

	// DeviceID is the node ID; JeeNodes have no other identity.
	DeviceID string `json:"device_id"`

	// Timestamp is when the frame was decoded (UTC, RFC3339).
	Timestamp time.Time `json:"timestamp"`

	// State holds the sensor values in decoder order.
	State Values `json:"state"`

	// NodeType is the sketch that produced the frame ("roomnode", "outside").
	NodeType string `json:"node_type"`

	// Protocol is always "jeelabs".
	Protocol string `json:"protocol"`

	// Address is the node ID as printed by the JeeLink.
	Address string `json:"address"`

	// BridgeID identifies the publishing bridge instance.
	BridgeID string `json:"bridge_id"`
}

// NewStateMessage creates a state message for a decoded reading.
func NewStateMessage(bridgeID string, r NodeReading) StateMessage {
	return StateMessage{
		ReadingID: uuid.New().String(),
		DeviceID:  r.NodeID,
		Timestamp: time.Now().UTC(),
		State:     r.Values,
		NodeType:  r.Type.String(),
		Protocol:  Protocol,
		Address:   r.NodeID,
		BridgeID:  bridgeID,
	}
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the serial port or the broker is unavailable.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge vanished (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/jeelabs
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string            `json:"bridge"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        HealthStatus      `json:"status"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Connection    *ConnectionStatus `json:"connection,omitempty"`
	Statistics    *BridgeStatistics `json:"statistics,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// ConnectionStatus describes the serial port state.
type ConnectionStatus struct {
	// Status is "connected" or "disconnected".
	Status string `json:"status"`

	// Address is the serial device name.
	Address string `json:"address"`

	// ConnectedSince is when the port was last opened.
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

// BridgeStatistics mirrors Stats in the health payload.
type BridgeStatistics struct {
	FramesReceived    uint64     `json:"frames_received"`
	ReadingsPublished uint64     `json:"readings_published"`
	FormatErrors      uint64     `json:"format_errors"`
	UnsupportedFrames uint64     `json:"unsupported_frames"`
	IgnoredLines      uint64     `json:"ignored_lines"`
	OverflowedLines   uint64     `json:"overflowed_lines"`
	PublishErrors     uint64     `json:"publish_errors"`
	PublishDropped    uint64     `json:"publish_dropped"`
	Reconnects        uint64     `json:"reconnects"`
	LastFrame         *time.Time `json:"last_frame,omitempty"`
}

// NewHealthMessage creates a health status message from a stats snapshot.
func NewHealthMessage(bridgeID, version, port string, status HealthStatus, stats Stats, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Connection: &ConnectionStatus{
			Status:  "disconnected",
			Address: port,
		},
		Statistics: &BridgeStatistics{
			FramesReceived:    stats.FramesReceived,
			ReadingsPublished: stats.ReadingsPublished,
			FormatErrors:      stats.FormatErrors,
			UnsupportedFrames: stats.UnsupportedFrames,
			IgnoredLines:      stats.IgnoredLines,
			OverflowedLines:   stats.OverflowedLines,
			PublishErrors:     stats.PublishErrors,
			PublishDropped:    stats.PublishDropped,
			Reconnects:        stats.Reconnects,
		},
	}

	if stats.SerialConnected {
		since := stats.ConnectedSince.UTC()
		msg.Connection.Status = "connected"
		msg.Connection.ConnectedSince = &since
	}
	if !stats.LastFrame.IsZero() {
		last := stats.LastFrame.UTC()
		msg.Statistics.LastFrame = &last
	}

	return msg
}

// NewLWTMessage creates the Last Will message the broker publishes if the
// bridge disappears without a clean shutdown.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Request actions understood by the bridge.
const (
	ActionReadState = "read_state"
	ActionReadAll   = "read_all"
	ActionStats     = "stats"
)

// Response error codes.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnknownAction  = "UNKNOWN_ACTION"
	ErrCodeNotFound       = "NOT_FOUND"
)

// RequestMessage is sent from Core to the bridge.
// Topic: graylogic/request/jeelabs/{request_id}
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`

	// DeviceID is the node ID for read_state.
	DeviceID string `json:"device_id,omitempty"`
}

// ResponseMessage answers a RequestMessage.
// Topic: graylogic/response/jeelabs/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorResponse(requestID, code, message string) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   false,
		Error:     &ResponseError{Code: code, Message: message},
	}
}

func newDataResponse(requestID string, data map[string]any) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data:      data,
	}
}
