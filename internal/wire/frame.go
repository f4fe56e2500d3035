package wire

import (
	"encoding/binary"

	c2werrors "github.com/alxayo/c2w/internal/errors"
)

// HeaderSize is the fixed 4-byte frame header: a big-endian u16 total length
// followed by a big-endian u16 word packing a 12-bit sequence number in the
// high bits and the 4-bit message type in the low bits.
const HeaderSize = 4

// MaxSequence is the largest value a 12-bit sequence number can hold.
// Sequence counters are conceptually unbounded; callers wrap with
// (seq + 1) & MaxSequence rather than panicking at the boundary.
const MaxSequence = 0x0FFF

// MaxPayloadSize is the largest payload a single frame can carry given the
// u16 length field covers header + payload.
const MaxPayloadSize = 0xFFFF - HeaderSize

// Frame is a fully decoded protocol message: header fields plus raw payload
// bytes. Payload interpretation depends on Type (see payload.go).
type Frame struct {
	Sequence uint16
	Type     MessageType
	Payload  []byte
}

// Encode serializes seq, typ and payload into a single frame buffer ready
// for transport. seq is masked to 12 bits; callers are responsible for
// sequence wraparound policy.
func Encode(seq uint16, typ MessageType, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(HeaderSize+len(payload)))
	word := (seq&MaxSequence)<<4 | uint16(typ)&0xF
	binary.BigEndian.PutUint16(buf[2:4], word)
	copy(buf[HeaderSize:], payload)
	return buf
}

// PeekLength reads the declared total frame length from the first 2 bytes
// of buf without validating the rest of the frame. Used by the stream
// framer to decide how many bytes to wait for. buf must have length >= 2.
func PeekLength(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[0:2])
}

// Decode parses a complete frame (header + payload) out of buf. buf must
// contain exactly one frame's worth of bytes (the framer's job for stream
// transports; a whole datagram for datagram transports). Returns a
// *c2werrors.FrameError on any malformation, per the codec's "drop
// silently, no ACK" contract.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < HeaderSize {
		return Frame{}, c2werrors.NewFrameError("decode.header", errShortHeader)
	}

	declared := PeekLength(buf)
	if int(declared) != len(buf) {
		return Frame{}, c2werrors.NewFrameError("decode.header", errLengthMismatch)
	}

	word := binary.BigEndian.Uint16(buf[2:4])
	seq := word >> 4
	typ := MessageType(word & 0xF)

	if !typ.Known() {
		return Frame{}, c2werrors.NewUnknownTypeError(uint8(typ))
	}

	payload := buf[HeaderSize:]
	// Defensive copy: callers may reuse/release buf (e.g. a pooled read buffer).
	out := make([]byte, len(payload))
	copy(out, payload)

	return Frame{Sequence: seq, Type: typ, Payload: out}, nil
}
