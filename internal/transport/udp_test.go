package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/alxayo/c2w/internal/wire"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestDatagramTransportRoundTrip(t *testing.T) {
	server, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport server: %v", err)
	}
	defer server.Close()

	client, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport client: %v", err)
	}
	defer client.Close()

	var mu sync.Mutex
	var received []wire.Frame
	server.Start(func(address string, f wire.Frame) {
		mu.Lock()
		received = append(received, f)
		mu.Unlock()
		_ = server.SendTo(address, wire.Encode(f.Sequence, wire.ACK, nil))
	})

	var gotAck bool
	client.Start(func(address string, f wire.Frame) {
		if f.Type == wire.ACK {
			mu.Lock()
			gotAck = true
			mu.Unlock()
		}
	})

	frame := wire.Encode(0, wire.CONNECT, wire.EncodeText("alice"))
	if err := client.SendTo(server.LocalAddr().String(), frame); err != nil {
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

func TestDatagramTransportLossRateDropsSend(t *testing.T) {
	server, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport server: %v", err)
	}
	defer server.Close()
	client, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport client: %v", err)
	}
	defer client.Close()

	var mu sync.Mutex
	count := 0
	server.Start(func(address string, f wire.Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	client.Start(func(string, wire.Frame) {})

	client.SetLossRate(1.0) // always drop
	frame := wire.Encode(0, wire.CONNECT, wire.EncodeText("alice"))
	if err := client.SendTo(server.LocalAddr().String(), frame); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("expected datagram dropped under loss rate 1.0, got %d delivered", count)
	}
}

func TestDatagramTransportMalformedDatagramDropped(t *testing.T) {
	server, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport: %v", err)
	}
	defer server.Close()

	var mu sync.Mutex
	count := 0
	server.Start(func(string, wire.Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	client, err := NewDatagramTransport("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewDatagramTransport: %v", err)
	}
	defer client.Close()
	client.Start(func(string, wire.Frame) {})

	// A single zero byte is shorter than the frame header.
	if err := client.SendTo(server.LocalAddr().String(), []byte{0x00}); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("expected malformed datagram dropped, got %d delivered", count)
	}
}
