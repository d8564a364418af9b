package jeelabs

import (
	"bytes"
	"sync/atomic"
)

// frameMarker starts every data line printed by the RF12demo sketch.
const frameMarker = "OK"

// DefaultMaxLineLength bounds the partial-line buffer when no limit is configured.
const DefaultMaxLineLength = 1024

// LineFramer splits the serial byte stream into frames.
//
// Lines end with LF; a single trailing CR is removed. Lines that do not
// start with "OK" (sketch banners, help text, empty lines) are counted and
// discarded. A partial line longer than the configured maximum is thrown
// away and everything up to the next LF is skipped.
//
// Feed and Reset must be called from one goroutine. The counters may be
// read concurrently.
type LineFramer struct {
	buf        []byte
	maxLen     int
	discarding bool

	ignored   atomic.Uint64
	overflows atomic.Uint64
}

// NewLineFramer creates a framer. A maxLineLength of zero or less selects
// DefaultMaxLineLength.
func NewLineFramer(maxLineLength int) *LineFramer {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &LineFramer{
		buf:    make([]byte, 0, 64),
		maxLen: maxLineLength,
	}
}

// Feed appends chunk to the buffer and returns every frame completed by
// it, in arrival order. A trailing partial line is retained for the next call.
func (f *LineFramer) Feed(chunk []byte) []Frame {
	var frames []Frame

	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		segment := chunk
		if idx >= 0 {
			segment = chunk[:idx]
			chunk = chunk[idx+1:]
		} else {
			chunk = nil
		}

		switch {
		case f.discarding:
			// Remainder of an oversized line.
		case len(f.buf)+len(segment) > f.maxLen:
			f.overflows.Add(1)
			f.buf = f.buf[:0]
			f.discarding = true
		default:
			f.buf = append(f.buf, segment...)
		}

		if idx < 0 {
			break
		}

		// End of line.
		if f.discarding {
			f.discarding = false
			continue
		}
		if frame, ok := f.takeLine(); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

// takeLine converts the buffered line into a frame and clears the buffer.
func (f *LineFramer) takeLine() (Frame, bool) {
	line := f.buf
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	defer func() { f.buf = f.buf[:0] }()

	if !bytes.HasPrefix(line, []byte(frameMarker)) {
		f.ignored.Add(1)
		return "", false
	}
	return Frame(line), true
}

// Reset drops any buffered partial line. Called when the port is reopened
// so bytes from the old connection never join bytes from the new one.
func (f *LineFramer) Reset() {
	f.buf = f.buf[:0]
	f.discarding = false
}

// Buffered returns the number of bytes held for an incomplete line.
func (f *LineFramer) Buffered() int {
	return len(f.buf)
}

// Ignored returns the number of complete lines discarded for lacking the "OK" marker.
func (f *LineFramer) Ignored() uint64 {
	return f.ignored.Load()
}

// Overflows returns the number of lines discarded for exceeding the length limit.
func (f *LineFramer) Overflows() uint64 {
	return f.overflows.Load()
}
