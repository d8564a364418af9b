package jeelabs

import (
	"fmt"
	"strconv"
	"strings"
)

// Token positions within a frame.
const (
	tokenMarker   = 0
	tokenNodeID   = 1
	tokenNodeType = 2
	tokenData     = 3
)

// nodeDecoder decodes the data bytes of one node type.
type nodeDecoder struct {
	// fields is the exact number of data tokens after the type token.
	fields int

	decode func(data []byte) Values
}

// Decoder turns frames into readings. It holds no per-frame state, so one
// Decoder may be shared by any number of goroutines.
type Decoder struct {
	nodes map[NodeType]nodeDecoder
}

// NewDecoder returns a Decoder for the Roomnode and outside-node sketches.
func NewDecoder() *Decoder {
	return &Decoder{
		nodes: map[NodeType]nodeDecoder{
			NodeTypeRoom: {
				fields: roomNodeFields,
				decode: func(d []byte) Values { return DecodeRoomNode(d[0], d[1], d[2], d[3]) },
			},
			NodeTypeOutside: {
				fields: outsideNodeFields,
				decode: func(d []byte) Values { return DecodeOutsideNode([outsideNodeFields]byte(d)) },
			},
		},
	}
}

// Supports reports whether t has a registered decoder.
func (d *Decoder) Supports(t NodeType) bool {
	_, ok := d.nodes[t]
	return ok
}

// Decode parses one frame.
//
// Tokens are separated by single spaces; doubled spaces yield empty tokens
// that fail integer parsing. The node ID is passed through verbatim.
//
// Returns:
//   - NodeReading: the decoded reading on success
//   - error: *FrameFormatError for malformed frames, or an error wrapping
//     ErrUnsupportedNodeType for well-formed frames of an unknown type
func (d *Decoder) Decode(line Frame) (NodeReading, error) {
	tokens := strings.Split(string(line), " ")
	if len(tokens) < tokenData {
		return NodeReading{}, formatErrorf(line, "expected at least %d tokens, got %d", tokenData, len(tokens))
	}
	if tokens[tokenMarker] != frameMarker {
		return NodeReading{}, formatErrorf(line, "first token %q is not %q", tokens[tokenMarker], frameMarker)
	}

	typ, err := strconv.Atoi(tokens[tokenNodeType])
	if err != nil {
		return NodeReading{}, formatErrorf(line, "node type %q is not an integer", tokens[tokenNodeType])
	}
	nodeType := NodeType(typ)

	node, ok := d.nodes[nodeType]
	if !ok {
		return NodeReading{}, fmt.Errorf("%w: %d", ErrUnsupportedNodeType, typ)
	}

	data := tokens[tokenData:]
	if len(data) != node.fields {
		return NodeReading{}, formatErrorf(line, "%s frame needs %d data fields, got %d", nodeType, node.fields, len(data))
	}

	raw := make([]byte, len(data))
	for i, tok := range data {
		b, err := parseByte(tok)
		if err != nil {
			return NodeReading{}, formatErrorf(line, "data field %d: %v", i+1, err)
		}
		raw[i] = b
	}

	return NodeReading{
		NodeID: tokens[tokenNodeID],
		Type:   nodeType,
		Values: node.decode(raw),
	}, nil
}

// parseByte parses a decimal token in the range 0..255.
func parseByte(tok string) (byte, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", tok)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%d is outside 0..255", n)
	}
	return byte(n), nil
}

// defaultDecoder backs ParseFrame.
var defaultDecoder = NewDecoder()

// ParseFrame decodes one frame with the built-in node decoders.
func ParseFrame(line Frame) (NodeReading, error) {
	return defaultDecoder.Decode(line)
}
