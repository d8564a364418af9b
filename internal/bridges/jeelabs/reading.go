package jeelabs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is one complete text line received from the JeeLink, without its
// line terminator. Only lines beginning with "OK" become frames.
type Frame string

// NodeType is the sketch selector carried in the third token of a frame.
type NodeType int

// Known node types.
const (
	// NodeTypeRoom is the Roomnode sketch: light, motion, humidity,
	// temperature and battery from four data bytes.
	NodeTypeRoom NodeType = 1

	// NodeTypeOutside is the outside sketch: temperature, lux and pressure
	// from six data bytes.
	NodeTypeOutside NodeType = 2
)

// String returns the sketch name used in payloads and logs.
func (t NodeType) String() string {
	switch t {
	case NodeTypeRoom:
		return "roomnode"
	case NodeTypeOutside:
		return "outside"
	default:
		return "unknown"
	}
}

// Field is one named sensor value. Values are kept as the exact strings
// produced by the decoders.
type Field struct {
	Name  string
	Value string
}

// Values is an ordered list of sensor values. Order is the decoder's
// emission order and is preserved when marshalled to JSON.
type Values []Field

// Get returns the value named name and whether it was present.
func (v Values) Get(name string) (string, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Map returns the values as an unordered map.
func (v Values) Map() map[string]string {
	m := make(map[string]string, len(v))
	for _, f := range v {
		m[f.Name] = f.Value
	}
	return m
}

// Names returns the field names in emission order.
func (v Values) Names() []string {
	names := make([]string, len(v))
	for i, f := range v {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON encodes the values as a JSON object with keys in emission order.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (v *Values) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*v = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("values: expected object, got %v", tok)
	}

	var out Values
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("values: unexpected key %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("values: field %q: %w", name, err)
		}
		out = append(out, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*v = out
	return nil
}

// NodeReading is the decoded content of one frame.
type NodeReading struct {
	// NodeID is the second token of the frame, passed through verbatim.
	NodeID string

	// Type is the node type that selected the decoder.
	Type NodeType

	// Values holds the sensor values in decoder order.
	Values Values
}

// logArgs flattens the reading into slog key/value pairs.
func (r NodeReading) logArgs() []any {
	args := make([]any, 0, 4+2*len(r.Values))
	args = append(args, "node_id", r.NodeID, "node_type", r.Type.String())
	for _, f := range r.Values {
		args = append(args, f.Name, f.Value)
	}
	return args
}
