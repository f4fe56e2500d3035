// Package framer extracts whole protocol frames from a byte stream using the
// 2-byte length prefix defined by the wire codec (internal/wire). Datagram
// transports never need it: each datagram is already exactly one frame.
package framer

import (
	"github.com/alxayo/c2w/internal/bufpool"
	"github.com/alxayo/c2w/internal/wire"
)

// StreamFramer buffers bytes read from a stream transport (TCP) and detaches
// whole frames as they become available. It never delivers a partial frame.
//
// Not safe for concurrent use; a connection's single readLoop owns it.
type StreamFramer struct {
	buf []byte
}

// NewStreamFramer returns an empty framer ready to accept bytes.
func NewStreamFramer() *StreamFramer {
	return &StreamFramer{}
}

// Feed appends newly read bytes to the internal buffer and returns every
// whole frame that can now be detached, in arrival order. Leftover bytes
// (a partial frame) remain buffered for the next call.
//
// Each detached frame is allocated via internal/bufpool, since
// wire.Decode takes its own defensive copy of the payload before
// returning — the caller must bufpool.Put the raw frame back once
// Decode has consumed it (see transport.StreamTransport.readLoop).
func (f *StreamFramer) Feed(data []byte) [][]byte {
	f.buf = append(f.buf, data...)

	var frames [][]byte
	for {
		if len(f.buf) < wire.HeaderSize {
			break
		}
		declared := int(wire.PeekLength(f.buf))
		if declared < wire.HeaderSize || len(f.buf) < declared {
			break
		}
		frame := bufpool.Get(declared)
		copy(frame, f.buf[:declared])
		frames = append(frames, frame)
		f.buf = f.buf[declared:]
	}

	// Compact so the backing array doesn't grow unbounded across many
	// small reads once the pending partial frame is small relative to
	// what's already been sliced off.
	if len(f.buf) == 0 {
		f.buf = nil
	} else if cap(f.buf) > 4*len(f.buf) {
		compacted := make([]byte, len(f.buf))
		copy(compacted, f.buf)
		f.buf = compacted
	}

	return frames
}

// Pending returns the number of bytes currently buffered awaiting a
// complete frame (for diagnostics/tests).
func (f *StreamFramer) Pending() int { return len(f.buf) }

// DatagramFrame returns dg unchanged: a datagram transport delivers exactly
// one frame per read, so there is nothing to buffer or detach.
func DatagramFrame(dg []byte) []byte { return dg }
