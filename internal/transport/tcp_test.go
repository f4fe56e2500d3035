package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/alxayo/c2w/internal/wire"
)

func TestStreamTransportRoundTrip(t *testing.T) {
	server := NewStreamTransport(nil)
	defer server.Close()

	var mu sync.Mutex
	var received []wire.Frame
	if err := server.ListenAndServe("127.0.0.1:0", func(address string, f wire.Frame) {
		mu.Lock()
		received = append(received, f)
		mu.Unlock()
		_ = server.SendTo(address, wire.Encode(f.Sequence, wire.ACK, nil))
	}); err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}

	client := NewStreamTransport(nil)
	defer client.Close()

	var gotAck bool
	serverAddr := server.LocalAddr().String()
	clientSideKey, err := client.Dial(serverAddr, func(address string, f wire.Frame) {
		if f.Type == wire.ACK {
			mu.Lock()
			gotAck = true
			mu.Unlock()
		}
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	frame := wire.Encode(0, wire.CONNECT, wire.EncodeText("alice"))
	if err := client.SendTo(clientSideKey, frame); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && gotAck
	})

	mu.Lock()
	defer mu.Unlock()
	if received[0].Type != wire.CONNECT {
		t.Fatalf("expected CONNECT, got %v", received[0].Type)
	}
}

func TestStreamTransportFeedsPartialFramesAcrossReads(t *testing.T) {
	server := NewStreamTransport(nil)
	defer server.Close()

	var mu sync.Mutex
	var received []wire.Frame
	if err := server.ListenAndServe("127.0.0.1:0", func(address string, f wire.Frame) {
		mu.Lock()
		received = append(received, f)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}

	client := NewStreamTransport(nil)
	defer client.Close()
	addr, err := client.Dial(server.LocalAddr().String(), func(string, wire.Frame) {})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	frame := wire.Encode(1, wire.CHAT, wire.EncodeChat("bob", "hello"))
	// Split the write into two halves to exercise the framer's partial-read path.
	mid := len(frame) / 2
	client.mu.RLock()
	conn := client.conns[addr]
	client.mu.RUnlock()
	if _, err := conn.Write(frame[:mid]); err != nil {
		t.Fatalf("write first half: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := conn.Write(frame[mid:]); err != nil {
		t.Fatalf("write second half: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})
}
