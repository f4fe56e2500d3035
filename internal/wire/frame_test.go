package wire

import (
	"bytes"
	"errors"
	"testing"

	c2werrors "github.com/alxayo/c2w/internal/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		seq     uint16
		typ     MessageType
		payload []byte
	}{
		{"ack", 12, ACK, nil},
		{"connect", 0, CONNECT, EncodeText("alice")},
		{"chat", 7, CHAT, EncodeChat("alice", "hi there")},
		{"empty chat text", 7, CHAT, EncodeChat("bob", "")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := Encode(tc.seq, tc.typ, tc.payload)
			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Sequence != tc.seq {
				t.Fatalf("sequence mismatch: got %d want %d", got.Sequence, tc.seq)
			}
			if got.Type != tc.typ {
				t.Fatalf("type mismatch: got %v want %v", got.Type, tc.typ)
			}
			if !bytes.Equal(got.Payload, tc.payload) && !(len(got.Payload) == 0 && len(tc.payload) == 0) {
				t.Fatalf("payload mismatch: got %v want %v", got.Payload, tc.payload)
			}
		})
	}
}

func TestEncodeLengthFieldMatchesByteLength(t *testing.T) {
	buf := Encode(1, CHAT, EncodeChat("carol", "hello"))
	if int(PeekLength(buf)) != len(buf) {
		t.Fatalf("length field %d does not match buffer length %d", PeekLength(buf), len(buf))
	}
}

func TestSequenceIsMaskedTo12Bits(t *testing.T) {
	buf := Encode(0xFFFF, ACK, nil)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Sequence != (0xFFFF & MaxSequence) {
		t.Fatalf("expected masked sequence %d, got %d", 0xFFFF&MaxSequence, got.Sequence)
	}
}

func TestDecodeShortBufferIsFrameError(t *testing.T) {
	_, err := Decode([]byte{0, 1})
	if !c2werrors.IsProtocolError(err) {
		t.Fatalf("expected protocol error for short buffer")
	}
	var fe *c2werrors.FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
}

func TestDecodeLengthMismatchIsFrameError(t *testing.T) {
	buf := Encode(0, ACK, nil)
	buf = append(buf, 0xFF) // trailing junk the declared length doesn't account for
	_, err := Decode(buf)
	if !c2werrors.IsProtocolError(err) {
		t.Fatalf("expected protocol error for length mismatch")
	}
}

func TestDecodeUnknownTypeIgnoredNotACKed(t *testing.T) {
	// Craft a frame whose type nibble (0xF = 15) is outside the known range.
	buf := []byte{0, 4, 0x00, 0x0F}
	_, err := Decode(buf)
	var ut *c2werrors.UnknownTypeError
	if !errors.As(err, &ut) {
		t.Fatalf("expected *UnknownTypeError, got %T (%v)", err, err)
	}
}
