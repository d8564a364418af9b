package jeelabs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// handleRequest answers a request from Core with cached readings or
// statistics. The response goes to graylogic/response/jeelabs/{request_id}.
func (b *Bridge) handleRequest(topic string, payload []byte) error {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if req.RequestID == "" {
		// Fall back to the topic's last level.
		req.RequestID = topic[strings.LastIndex(topic, "/")+1:]
	}
	if err := validateTopicSegment(req.RequestID); err != nil {
		return fmt.Errorf("request ID: %w", err)
	}

	b.logDebug("received request",
		"request_id", req.RequestID,
		"action", req.Action)

	var resp ResponseMessage
	switch req.Action {
	case ActionReadState:
		resp = b.handleReadState(req)
	case ActionReadAll:
		resp = b.handleReadAll(req)
	case ActionStats:
		resp = b.handleStats(req)
	case "":
		resp = newErrorResponse(req.RequestID, ErrCodeInvalidRequest, "action is required")
	default:
		resp = newErrorResponse(req.RequestID, ErrCodeUnknownAction,
			fmt.Sprintf("unknown action: %s", req.Action))
	}

	respPayload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	if err := b.mqtt.Publish(ResponseTopic(req.RequestID), respPayload, 1, false); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	return nil
}

// handleReadState returns the last reading of one node.
func (b *Bridge) handleReadState(req RequestMessage) ResponseMessage {
	if req.DeviceID == "" {
		return newErrorResponse(req.RequestID, ErrCodeInvalidRequest, "device_id is required")
	}

	node, ok := b.LastReading(req.DeviceID)
	if !ok {
		return newErrorResponse(req.RequestID, ErrCodeNotFound,
			fmt.Sprintf("no reading for node %s", req.DeviceID))
	}

	return newDataResponse(req.RequestID, map[string]any{
		"device_id": req.DeviceID,
		"node":      node,
	})
}

// handleReadAll returns the last reading of every node seen.
func (b *Bridge) handleReadAll(req RequestMessage) ResponseMessage {
	nodes := b.LastReadings()
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return newDataResponse(req.RequestID, map[string]any{
		"node_ids": ids,
		"nodes":    nodes,
	})
}

// handleStats returns the current bridge statistics.
func (b *Bridge) handleStats(req RequestMessage) ResponseMessage {
	msg := b.Health()

	return newDataResponse(req.RequestID, map[string]any{
		"status":         msg.Status,
		"connection":     msg.Connection,
		"statistics":     msg.Statistics,
		"uptime_seconds": msg.UptimeSeconds,
	})
}

// NodeState is the cached view of a node returned by read requests.
type NodeState struct {
	NodeType  string    `json:"node_type"`
	Timestamp time.Time `json:"timestamp"`
	State     Values    `json:"state"`
}

func nodeState(c cachedReading) NodeState {
	return NodeState{
		NodeType:  c.reading.Type.String(),
		Timestamp: c.at.UTC(),
		State:     c.reading.Values,
	}
}

// LastReading returns the most recent reading of nodeID.
func (b *Bridge) LastReading(nodeID string) (NodeState, bool) {
	b.lastReadingsMu.RLock()
	defer b.lastReadingsMu.RUnlock()

	cached, ok := b.lastReadings[nodeID]
	if !ok {
		return NodeState{}, false
	}
	return nodeState(cached), true
}

// LastReadings returns the most recent reading of every node seen, keyed by node ID.
func (b *Bridge) LastReadings() map[string]NodeState {
	b.lastReadingsMu.RLock()
	defer b.lastReadingsMu.RUnlock()

	nodes := make(map[string]NodeState, len(b.lastReadings))
	for id, cached := range b.lastReadings {
		nodes[id] = nodeState(cached)
	}
	return nodes
}

// Health returns a health message describing the bridge right now.
func (b *Bridge) Health() HealthMessage {
	status, reason := b.health.determineStatus()
	msg := NewHealthMessage(b.cfg.BridgeID, b.cfg.Version, b.cfg.Port, status, b.Stats(), b.health.startTime)
	msg.Reason = reason
	return msg
}
