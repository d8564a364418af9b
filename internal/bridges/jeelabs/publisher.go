package jeelabs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Publisher receives every decoded reading in decode order.
// Errors are logged and counted by the bridge and never reach the reader.
type Publisher interface {
	Publish(reading NodeReading) error
}

// PublishFunc adapts a function to Publisher.
type PublishFunc func(reading NodeReading) error

// Publish calls f(reading).
func (f PublishFunc) Publish(reading NodeReading) error {
	return f(reading)
}

// TopicPublisher is the subset of the MQTT client the state publisher needs.
type TopicPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher publishes readings as retained StateMessages on
// graylogic/state/jeelabs/{node_id}.
type MQTTPublisher struct {
	client   TopicPublisher
	bridgeID string
	qos      byte
}

// NewMQTTPublisher creates a publisher that writes through client.
func NewMQTTPublisher(client TopicPublisher, bridgeID string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{
		client:   client,
		bridgeID: bridgeID,
		qos:      qos,
	}
}

// Publish marshals the reading and publishes it retained.
func (p *MQTTPublisher) Publish(reading NodeReading) error {
	if err := validateTopicSegment(reading.NodeID); err != nil {
		return err
	}

	payload, err := json.Marshal(NewStateMessage(p.bridgeID, reading))
	if err != nil {
		return fmt.Errorf("marshal state message: %w", err)
	}

	if err := p.client.Publish(StateTopic(reading.NodeID), payload, p.qos, true); err != nil {
		return fmt.Errorf("publish node %s: %w", reading.NodeID, err)
	}
	return nil
}

// validateTopicSegment rejects node IDs that cannot form a single topic level.
func validateTopicSegment(nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidNodeID)
	}
	if strings.ContainsAny(nodeID, "/+#") {
		return fmt.Errorf("%w: %q", ErrInvalidNodeID, nodeID)
	}
	return nil
}
