// Gray Logic JeeLabs Bridge
//
// This is the main entry point for the JeeLabs bridge. It reads radio
// frames from a JeeLink on a serial port, decodes Roomnode and outside
// sensor readings, and publishes them to MQTT as retained JSON state.
//
// For the topic layout, see: internal/bridges/jeelabs/doc.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-jeelabs/internal/api"
	"github.com/nerrad567/gray-logic-jeelabs/internal/bridges/jeelabs"
	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/jeelabs.yaml"

// startupHealthTimeout bounds the initial infrastructure health check.
const startupHealthTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting JeeLabs bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing log: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	// Connect to MQTT with the bridge's offline health message as LWT
	lwt, err := jeelabs.LWTPayload(cfg.Bridge.ID)
	if err != nil {
		return fmt.Errorf("building LWT payload: %w", err)
	}
	mqttClient, err := mqtt.ConnectWithWill(cfg.MQTT, &mqtt.Will{
		Topic:   jeelabs.HealthTopic(),
		Payload: lwt,
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var recorder jeelabs.StatsRecorder
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = &influxRecorder{client: influxClient}
	} else {
		log.Info("InfluxDB disabled")
	}

	registry := api.NewRegistry()

	bridge, err := jeelabs.NewBridge(jeelabs.BridgeOptions{
		Config:        jeelabs.NewConfig(cfg, version),
		MQTTClient:    &mqttBridgeAdapter{client: mqttClient},
		Metrics:       jeelabs.NewMetrics(registry),
		StatsRecorder: recorder,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("creating JeeLabs bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting JeeLabs bridge: %w", err)
	}
	defer func() {
		log.Info("stopping JeeLabs bridge")
		bridge.Stop()
	}()
	log.Info("JeeLabs bridge started",
		"bridge_id", cfg.Bridge.ID,
		"port", cfg.Serial.Port,
	)

	// Start status server (optional)
	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Bridge:  bridge,
			Metrics: registry,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	healthCtx, cancel := context.WithTimeout(ctx, startupHealthTimeout)
	defer cancel()
	if err := healthCheck(healthCtx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (if enabled)
	// 2. Bridge (drains queued readings, publishes "stopping")
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Log file

	log.Info("JeeLabs bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses JEELABS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("JEELABS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The serial port is not checked: the bridge keeps retrying it and
// reports its state on the health topic.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The bridge takes a plain func handler; the
// infrastructure client takes the named mqtt.MessageHandler type.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements jeelabs.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements jeelabs.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}

// Unsubscribe implements jeelabs.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements jeelabs.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// influxRecorder writes bridge statistics snapshots to InfluxDB.
type influxRecorder struct {
	client interface {
		WriteBridgeStats(bridgeID string, stats influxdb.BridgeStats, timestamp time.Time)
	}
}

// RecordStats implements jeelabs.StatsRecorder.
func (r *influxRecorder) RecordStats(bridgeID string, s jeelabs.Stats, at time.Time) {
	r.client.WriteBridgeStats(bridgeID, toBridgeStats(s), at)
}

func toBridgeStats(s jeelabs.Stats) influxdb.BridgeStats {
	return influxdb.BridgeStats{
		FramesReceived:    s.FramesReceived,
		ReadingsPublished: s.ReadingsPublished,
		FormatErrors:      s.FormatErrors,
		UnsupportedFrames: s.UnsupportedFrames,
		IgnoredLines:      s.IgnoredLines,
		OverflowedLines:   s.OverflowedLines,
		PublishErrors:     s.PublishErrors,
		PublishDropped:    s.PublishDropped,
		Reconnects:        s.Reconnects,
		SerialConnected:   s.SerialConnected,
	}
}
