package jeelabs

import (
	"errors"
	"fmt"
)

// Domain errors for the JeeLabs bridge package.
var (
	// ErrFrameFormat is matched by every *FrameFormatError.
	ErrFrameFormat = errors.New("jeelabs: malformed frame")

	// ErrUnsupportedNodeType is returned for frames whose node type has no
	// decoder. Such frames are dropped without being counted as failures.
	ErrUnsupportedNodeType = errors.New("jeelabs: unsupported node type")

	// ErrPortHangup is reported when the serial device keeps returning
	// end-of-file without waiting for the read timeout (device unplugged).
	ErrPortHangup = errors.New("jeelabs: serial port hung up")

	// ErrInvalidNodeID is returned when a node ID cannot be used as an
	// MQTT topic level.
	ErrInvalidNodeID = errors.New("jeelabs: invalid node ID")

	// ErrAlreadyStarted is returned by Start on a running bridge.
	ErrAlreadyStarted = errors.New("jeelabs: bridge already started")

	// ErrQueueFull is reported when a reading is dropped because the
	// publish queue is at capacity.
	ErrQueueFull = errors.New("jeelabs: publish queue full")
)

// FrameFormatError describes a frame that starts with "OK" but cannot be
// decoded: wrong field count, a non-integer token or a byte out of range.
type FrameFormatError struct {
	// Line is the offending frame text.
	Line string

	// Reason is a short human-readable description.
	Reason string
}

// Error implements error.
func (e *FrameFormatError) Error() string {
	return fmt.Sprintf("%s: %s (line %q)", ErrFrameFormat, e.Reason, e.Line)
}

// Unwrap lets errors.Is(err, ErrFrameFormat) match.
func (e *FrameFormatError) Unwrap() error {
	return ErrFrameFormat
}

func formatErrorf(line Frame, format string, args ...any) *FrameFormatError {
	return &FrameFormatError{Line: string(line), Reason: fmt.Sprintf(format, args...)}
}
