// Package jeelabs bridges a JeeLink USB radio running the RF12demo sketch
// to MQTT.
//
// The JeeLink prints one line per received radio packet:
//
//	OK <node_id> <node_type> <byte> <byte> ...
//
// The bridge splits the serial stream into lines (LineFramer), decodes
// each "OK" line by node type (Decoder) and publishes the readings
// (Publisher). Two node types are understood:
//
//	1  roomnode: light, humidity, temperature, motion, battery
//	2  outside:  lux, pressure, temperature
//
// Values keep the exact text formatting of the legacy decoder, including
// its known quirks with negative and short numbers; see formatTenths.
//
// MQTT Topics:
//   - graylogic/state/jeelabs/{node_id}    (publish, retained)
//   - graylogic/health/jeelabs             (publish, retained, LWT)
//   - graylogic/request/jeelabs/+          (subscribe)
//   - graylogic/response/jeelabs/{req_id}  (publish)
//
// Serial failures never stop the bridge: the port is reopened with
// exponential backoff and health reports "degraded" until it is back.
package jeelabs
