package mqtt

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker-backed tests require Mosquitto at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "jeelabs-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test in -short mode or when no broker is listening.
func requireBroker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available at 127.0.0.1:1883")
	}
	conn.Close()
}

// =============================================================================
// Unit Tests (no broker)
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{name: "empty topic", topic: "", payload: []byte("{}"), qos: 1, wantErr: ErrInvalidTopic},
		{name: "invalid qos", topic: "graylogic/state/jeelabs/3", payload: []byte("{}"), qos: 3, wantErr: ErrInvalidQoS},
		{name: "payload too large", topic: "graylogic/state/jeelabs/3", payload: make([]byte, maxPayloadSize+1), qos: 1, wantErr: ErrPublishFailed},
		{name: "not connected", topic: "graylogic/state/jeelabs/3", payload: []byte("{}"), qos: 1, wantErr: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("graylogic/request/jeelabs/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("graylogic/request/jeelabs/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("graylogic/request/jeelabs/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestHealthCheckNotConnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "bridge", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "jeelabs-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "jeelabs-test")
	}
	if opts.Username != "bridge" {
		t.Errorf("Username = %q, want %q", opts.Username, "bridge")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLSConfig not configured with minimum version")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
}

func TestConfigureLWT(t *testing.T) {
	t.Run("default status topic", func(t *testing.T) {
		opts := buildClientOptions(testConfig())
		configureLWT(opts, "jeelabs-test", nil)

		if !opts.WillEnabled {
			t.Fatal("WillEnabled = false, want true")
		}
		if opts.WillTopic != "graylogic/system/status/jeelabs-test" {
			t.Errorf("WillTopic = %q", opts.WillTopic)
		}
		if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
			t.Errorf("WillPayload = %s, want unexpected_disconnect reason", opts.WillPayload)
		}
		if !opts.WillRetained || opts.WillQos != 1 {
			t.Errorf("Will QoS/retained = %d/%v, want 1/true", opts.WillQos, opts.WillRetained)
		}
	})

	t.Run("explicit will", func(t *testing.T) {
		opts := buildClientOptions(testConfig())
		configureLWT(opts, "jeelabs-test", &Will{
			Topic:   "graylogic/health/jeelabs",
			Payload: []byte(`{"status":"offline"}`),
		})

		if opts.WillTopic != "graylogic/health/jeelabs" {
			t.Errorf("WillTopic = %q, want graylogic/health/jeelabs", opts.WillTopic)
		}
		if string(opts.WillPayload) != `{"status":"offline"}` {
			t.Errorf("WillPayload = %s", opts.WillPayload)
		}
	})
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("jeelabs-test")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"jeelabs-test"`) {
		t.Errorf("buildOnlinePayload() = %s", online)
	}

	offline := buildOfflinePayload("jeelabs-test")
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("buildOfflinePayload() = %s", offline)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "BridgeState",
			builder:  func() string { return Topics{}.BridgeState("jeelabs", "3") },
			expected: "graylogic/state/jeelabs/3",
		},
		{
			name:     "BridgeHealth",
			builder:  func() string { return Topics{}.BridgeHealth("jeelabs") },
			expected: "graylogic/health/jeelabs",
		},
		{
			name:     "BridgeRequest",
			builder:  func() string { return Topics{}.BridgeRequest("jeelabs", "req-1") },
			expected: "graylogic/request/jeelabs/req-1",
		},
		{
			name:     "BridgeResponse",
			builder:  func() string { return Topics{}.BridgeResponse("jeelabs", "req-1") },
			expected: "graylogic/response/jeelabs/req-1",
		},
		{
			name:     "ClientStatus",
			builder:  func() string { return Topics{}.ClientStatus("jeelabs-bridge") },
			expected: "graylogic/system/status/jeelabs-bridge",
		},
		{
			name:     "BridgeRequests",
			builder:  func() string { return Topics{}.BridgeRequests("jeelabs") },
			expected: "graylogic/request/jeelabs/+",
		},
		{
			name:     "AllBridgeStates",
			builder:  func() string { return Topics{}.AllBridgeStates("jeelabs") },
			expected: "graylogic/state/jeelabs/+",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder(); got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection timeout test in short mode")
	}
	cfg := testConfig()
	cfg.Broker.Port = 19999
	cfg.Reconnect.InitialDelay = 0

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
	if err := client.Publish("graylogic/state/jeelabs/3", []byte("{}"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topic := Topics{}.BridgeRequests("jeelabs-test")
	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) {
		t.Error("HasSubscription() = false, want true")
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	requireBroker(t)

	cfg := testConfig()
	cfg.Broker.ClientID = "jeelabs-test-pub"
	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	cfg.Broker.ClientID = "jeelabs-test-sub"
	subClient, err := ConnectWithWill(cfg, &Will{
		Topic:   Topics{}.BridgeHealth("jeelabs-test"),
		Payload: []byte(`{"status":"offline"}`),
	})
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	topic := Topics{}.BridgeState("jeelabs-test", "roundtrip")
	expected := `{"device_id":"roundtrip"}`
	received := make(chan string, 1)

	err = subClient.Subscribe(Topics{}.AllBridgeStates("jeelabs-test"), 1, func(_ string, payload []byte) error {
		select {
		case received <- string(payload):
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pubClient.Publish(topic, []byte(expected), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-received:
		if payload != expected {
			t.Errorf("Received payload = %q, want %q", payload, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}
