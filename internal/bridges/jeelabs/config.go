package jeelabs

import (
	"time"

	"github.com/nerrad567/gray-logic-jeelabs/internal/infrastructure/config"
)

// Default operational settings.
const (
	defaultReadTimeout       = time.Second
	defaultReconnectInterval = 5 * time.Second
	defaultHealthInterval    = 30 * time.Second
	defaultQueueSize         = 100
)

// Config holds the bridge's runtime settings.
type Config struct {
	// BridgeID identifies this bridge in payloads and health messages.
	BridgeID string

	// Version is reported in health messages.
	Version string

	// Port is the serial device name.
	Port string

	// ReadTimeout bounds one serial read so shutdown is noticed.
	ReadTimeout time.Duration

	// ReconnectInterval is the first delay before reopening the port.
	// Later attempts back off by 1.5x up to two minutes.
	ReconnectInterval time.Duration

	// MaxLineLength caps the partial-line buffer.
	MaxLineLength int

	// QueueSize is the capacity of the publish queue.
	QueueSize int

	// QoS is the MQTT QoS for state messages.
	QoS byte

	// HealthInterval is how often health is published.
	HealthInterval time.Duration
}

// NewConfig derives bridge settings from the application configuration.
func NewConfig(cfg *config.Config, version string) *Config {
	return &Config{
		BridgeID:          cfg.Bridge.ID,
		Version:           version,
		Port:              cfg.Serial.Port,
		ReadTimeout:       cfg.GetReadTimeout(),
		ReconnectInterval: cfg.GetReconnectInterval(),
		MaxLineLength:     cfg.Serial.MaxLineLength,
		QueueSize:         cfg.Publish.QueueSize,
		QoS:               byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2 by config.Validate
		HealthInterval:    cfg.GetHealthInterval(),
	}
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = defaultReconnectInterval
	}
	if c.MaxLineLength <= 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
	return c
}
