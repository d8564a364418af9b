package mqtt

import "fmt"

// TopicPrefix is the base for every topic the bridge touches.
// Bridge topics use the flat scheme: graylogic/{category}/{protocol}/{address}
const TopicPrefix = "graylogic"

// Topics provides builders for Gray Logic MQTT topics.
// Using these helpers keeps topic naming consistent across the bridge.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("jeelabs", "3")
//	// Returns: "graylogic/state/jeelabs/3"
type Topics struct{}

// BridgeState returns the topic for device state updates from a bridge.
//
// Example: graylogic/state/jeelabs/3
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, address)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/jeelabs
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// BridgeRequest returns the topic for requests to a bridge.
//
// Example: graylogic/request/jeelabs/req-abc123
func (Topics) BridgeRequest(protocol, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, protocol, requestID)
}

// BridgeResponse returns the topic for request responses from a bridge.
//
// Example: graylogic/response/jeelabs/req-abc123
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, protocol, requestID)
}

// ClientStatus returns the online/offline status topic for one MQTT client.
//
// Example: graylogic/system/status/jeelabs-bridge
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/system/status/%s", TopicPrefix, clientID)
}

// BridgeRequests returns a pattern matching all requests to one bridge.
//
// Pattern: graylogic/request/jeelabs/+
func (Topics) BridgeRequests(protocol string) string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefix, protocol)
}

// AllBridgeStates returns a pattern matching all state updates of one bridge.
//
// Pattern: graylogic/state/jeelabs/+
func (Topics) AllBridgeStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, protocol)
}
