package jeelabs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats struct {
	mu    sync.Mutex
	stats Stats
}

func (s *staticStats) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

type mockRecorder struct {
	mu       sync.Mutex
	bridgeID string
	calls    int
	last     Stats
}

func (r *mockRecorder) RecordStats(bridgeID string, stats Stats, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridgeID = bridgeID
	r.calls++
	r.last = stats
}

func (r *mockRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		mqttUp     bool
		serialUp   bool
		wantStatus HealthStatus
		wantReason string
	}{
		{"all connected", true, true, HealthHealthy, ""},
		{"mqtt down", false, true, HealthDegraded, "MQTT disconnected"},
		{"serial down", true, false, HealthDegraded, "serial port disconnected"},
		{"both down", false, false, HealthDegraded, "MQTT disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockMQTTClient()
			client.SetConnected(tt.mqttUp)
			h := NewHealthReporter(HealthReporterConfig{
				BridgeID:  "b",
				Publisher: client,
				Source:    &staticStats{stats: Stats{SerialConnected: tt.serialUp}},
			})

			status, reason := h.determineStatus()
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestHealthReporter_PublishStarting(t *testing.T) {
	client := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "jeelabs-attic",
		Version:   "1.0.0",
		Port:      "/dev/ttyUSB0",
		Publisher: client,
		Source:    &staticStats{},
	})

	require.NoError(t, h.PublishStarting())

	msgs := client.PublishedOn(HealthTopic())
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(1), msgs[0].QoS)
	assert.True(t, msgs[0].Retained)

	var msg HealthMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &msg))
	assert.Equal(t, "jeelabs-attic", msg.Bridge)
	assert.Equal(t, HealthStarting, msg.Status)
	assert.Equal(t, "1.0.0", msg.Version)
	assert.Equal(t, "/dev/ttyUSB0", msg.Connection.Address)
}

func TestHealthReporter_StartPublishesAndRecords(t *testing.T) {
	client := NewMockMQTTClient()
	source := &staticStats{stats: Stats{SerialConnected: true, FramesReceived: 4}}
	recorder := &mockRecorder{}
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "b",
		Interval:  10 * time.Millisecond,
		Publisher: client,
		Source:    source,
		Recorder:  recorder,
	})

	h.Start(context.Background())
	require.Eventually(t, func() bool { return recorder.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()

	msgs := client.PublishedOn(HealthTopic())
	require.GreaterOrEqual(t, len(msgs), 3)

	var first, last HealthMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &first))
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &last))
	assert.Equal(t, HealthHealthy, first.Status)
	assert.Equal(t, HealthStopping, last.Status)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, "b", recorder.bridgeID)
	assert.Equal(t, uint64(4), recorder.last.FramesReceived)
}

func TestHealthReporter_RecordsWhileMQTTDown(t *testing.T) {
	client := NewMockMQTTClient()
	client.SetConnected(false)
	recorder := &mockRecorder{}
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "b",
		Interval:  time.Hour,
		Publisher: client,
		Source:    &staticStats{},
		Recorder:  recorder,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	require.Eventually(t, func() bool { return recorder.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	h.Stop()

	var msg HealthMessage
	msgs := client.PublishedOn(HealthTopic())
	require.NotEmpty(t, msgs)
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &msg))
	assert.Equal(t, HealthDegraded, msg.Status)
	assert.Equal(t, "MQTT disconnected", msg.Reason)
}

func TestHealthReporter_NilPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "b"})

	assert.NoError(t, h.PublishNow())
	assert.Equal(t, defaultHealthInterval, h.interval)
}

func TestHealthReporter_LWT(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "jeelabs-attic"})

	assert.Equal(t, "graylogic/health/jeelabs", h.GetLWTTopic())

	payload, err := h.GetLWTPayload()
	require.NoError(t, err)

	var msg HealthMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "jeelabs-attic", msg.Bridge)
	assert.Equal(t, HealthOffline, msg.Status)
	assert.Equal(t, "unexpected_disconnect", msg.Reason)
}
