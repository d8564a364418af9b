package jeelabs

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of bridge counters.
type Stats struct {
	// FramesReceived counts lines starting with "OK", decoded or not.
	FramesReceived uint64

	// ReadingsPublished counts readings the publisher accepted.
	ReadingsPublished uint64

	// FormatErrors counts frames rejected as malformed.
	FormatErrors uint64

	// UnsupportedFrames counts well-formed frames of unknown node types.
	UnsupportedFrames uint64

	// IgnoredLines counts lines without the "OK" marker.
	IgnoredLines uint64

	// OverflowedLines counts lines discarded for exceeding the length limit.
	OverflowedLines uint64

	// PublishErrors counts readings whose publish failed.
	PublishErrors uint64

	// PublishDropped counts readings dropped on a full queue.
	PublishDropped uint64

	// Reconnects counts serial reopens after a previously open port failed.
	Reconnects uint64

	// SerialConnected reports whether the port is currently open.
	SerialConnected bool

	// ConnectedSince is when the port was last opened. Zero if never.
	ConnectedSince time.Time

	// LastFrame is when the last frame arrived. Zero if none yet.
	LastFrame time.Time
}

// counters holds the live values behind Stats.
type counters struct {
	framesReceived    atomic.Uint64
	readingsPublished atomic.Uint64
	formatErrors      atomic.Uint64
	unsupportedFrames atomic.Uint64
	publishErrors     atomic.Uint64
	publishDropped    atomic.Uint64
	reconnects        atomic.Uint64

	serialConnected atomic.Bool
	connectedSince  atomic.Int64 // unix nanoseconds
	lastFrame       atomic.Int64 // unix nanoseconds
}

func unixNanoTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
