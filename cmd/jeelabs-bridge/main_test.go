package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-jeelabs/internal/bridges/jeelabs"
	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/influxdb"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("JEELABS_CONFIG", "/nonexistent/path/jeelabs.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config", err)
	}
}

// TestRun_ValidationFailure verifies run rejects a config without a serial port.
func TestRun_ValidationFailure(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "jeelabs.yaml")
	content := `
bridge:
  id: "jeelabs-test"
serial:
  port: ""
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "jeelabs-test"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("JEELABS_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail validation")
	}
	if !strings.Contains(err.Error(), "serial.port") {
		t.Errorf("run() error = %v, want serial.port message", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("JEELABS_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("JEELABS_CONFIG", "/etc/jeelabs/bridge.yaml")
	if got := getConfigPath(); got != "/etc/jeelabs/bridge.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

type captureWriter struct {
	bridgeID string
	stats    influxdb.BridgeStats
	at       time.Time
}

func (c *captureWriter) WriteBridgeStats(bridgeID string, stats influxdb.BridgeStats, timestamp time.Time) {
	c.bridgeID = bridgeID
	c.stats = stats
	c.at = timestamp
}

func TestInfluxRecorder_RecordStats(t *testing.T) {
	w := &captureWriter{}
	r := &influxRecorder{client: w}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r.RecordStats("jeelabs-test", jeelabs.Stats{
		FramesReceived:    10,
		ReadingsPublished: 8,
		FormatErrors:      1,
		UnsupportedFrames: 1,
		IgnoredLines:      4,
		OverflowedLines:   2,
		PublishErrors:     3,
		PublishDropped:    5,
		Reconnects:        6,
		SerialConnected:   true,
	}, at)

	if w.bridgeID != "jeelabs-test" {
		t.Errorf("bridgeID = %q", w.bridgeID)
	}
	if !w.at.Equal(at) {
		t.Errorf("timestamp = %v, want %v", w.at, at)
	}
	want := influxdb.BridgeStats{
		FramesReceived:    10,
		ReadingsPublished: 8,
		FormatErrors:      1,
		UnsupportedFrames: 1,
		IgnoredLines:      4,
		OverflowedLines:   2,
		PublishErrors:     3,
		PublishDropped:    5,
		Reconnects:        6,
		SerialConnected:   true,
	}
	if w.stats != want {
		t.Errorf("stats = %+v, want %+v", w.stats, want)
	}
}
