// Package mqtt provides MQTT client connectivity for the JeeLabs bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge publishes decoded sensor readings and its own health onto
// the Gray Logic MQTT bus, and answers state requests from Core.
//
//	JeeLink (serial) → JeeLabs Bridge ↔ MQTT Broker ↔ Gray Logic Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.ConnectWithWill(cfg.MQTT, &mqtt.Will{Topic: topic, Payload: lwt})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.BridgeState("jeelabs", "3")
//	client.Publish(topic, payload, 1, true)
package mqtt
