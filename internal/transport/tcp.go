package transport

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/alxayo/c2w/internal/bufpool"
	"github.com/alxayo/c2w/internal/framer"
	"github.com/alxayo/c2w/internal/wire"
)

// StreamTransport is the TCP transport: one net.Conn per peer, each fed
// through its own internal/framer.StreamFramer to recover whole frames
// from the byte stream. Unlike the datagram transport there is no shared
// socket — the server side owns a net.Listener and one read goroutine per
// accepted connection; the client side owns a single dialed connection.
// Writes happen synchronously in SendTo.
type StreamTransport struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]net.Conn // address -> live connection, server side only

	handler FrameHandler

	listener net.Listener
	closeWg  sync.WaitGroup
}

// NewStreamTransport constructs an unstarted StreamTransport.
func NewStreamTransport(log *slog.Logger) *StreamTransport {
	if log == nil {
		log = defaultLogger()
	}
	return &StreamTransport{log: log, conns: make(map[string]net.Conn)}
}

// ListenAndServe binds addr and accepts connections until Close is called,
// delivering every decoded inbound frame from every connection to handler.
func (t *StreamTransport) ListenAndServe(addr string, handler FrameHandler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln
	t.handler = handler

	t.closeWg.Add(1)
	go t.acceptLoop(ln)
	return nil
}

// LocalAddr returns the bound listener address, or nil if not serving.
func (t *StreamTransport) LocalAddr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *StreamTransport) acceptLoop(ln net.Listener) {
	defer t.closeWg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.log.Warn("transport(tcp): accept error", "error", err)
			return
		}
		address := conn.RemoteAddr().String()
		t.mu.Lock()
		t.conns[address] = conn
		t.mu.Unlock()
		go t.readLoop(address, conn)
	}
}

// Dial establishes a client-side connection to addr and starts its read
// loop, delivering frames to handler under the connection's remote address
// string (a single client has exactly one peer, so the address string is
// informational only).
func (t *StreamTransport) Dial(addr string, handler FrameHandler) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	t.handler = handler
	address := conn.RemoteAddr().String()
	t.mu.Lock()
	t.conns[address] = conn
	t.mu.Unlock()
	go t.readLoop(address, conn)
	return address, nil
}

func (t *StreamTransport) readLoop(address string, conn net.Conn) {
	defer t.removeConn(address, conn)
	fr := framer.NewStreamFramer()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, raw := range fr.Feed(buf[:n]) {
				f, decErr := wire.Decode(raw)
				bufpool.Put(raw) // Decode already took its own copy of the payload
				if decErr != nil {
					t.log.Debug("transport(tcp): dropping malformed frame", "remote", address, "error", decErr)
					continue
				}
				if t.handler != nil {
					t.handler(address, f)
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				t.log.Warn("transport(tcp): read error", "remote", address, "error", err)
			}
			return
		}
	}
}

func (t *StreamTransport) removeConn(address string, conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, address)
	t.mu.Unlock()
	_ = conn.Close()
}

// SendTo writes an already-encoded frame to the connection registered under
// address. Satisfies internal/servercore.Transport.
func (t *StreamTransport) SendTo(address string, frame []byte) error {
	t.mu.RLock()
	conn, ok := t.conns[address]
	t.mu.RUnlock()
	if !ok {
		return errConnNotFound(address)
	}
	_, err := conn.Write(frame)
	return err
}

// Close shuts down the listener (if any) and every tracked connection.
func (t *StreamTransport) Close() error {
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.mu.Lock()
	conns := make([]net.Conn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = make(map[string]net.Conn)
	t.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	t.closeWg.Wait()
	return nil
}
