package transport

import (
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/alxayo/c2w/internal/wire"
)

// DatagramTransport is the UDP transport: one *net.UDPConn per endpoint,
// shared by every peer address it has seen. Each c2w frame is exactly one
// datagram; there is no framer involved (internal/framer is stream-only).
//
// LossRate optionally drops a fraction of outbound datagrams before they
// reach the socket, simulating the lossy network the reliability layer is
// built to tolerate (spec.md §3: "UDP transport is assumed lossy").
type DatagramTransport struct {
	conn *net.UDPConn
	log  *slog.Logger

	mu       sync.RWMutex
	lossRate float64
	rng      randSource

	handler FrameHandler

	closeOnce sync.Once
}

// randSource is the minimal surface transport needs from math/rand,
// isolated so tests can inject a deterministic source.
type randSource interface {
	Float64() float64
}

// NewDatagramTransport binds a UDP socket at listenAddr (host:port; an
// empty host binds all interfaces) and returns a transport ready to Start.
// Pass "" for listenAddr on a client that only needs an ephemeral outbound
// port.
func NewDatagramTransport(listenAddr string, log *slog.Logger) (*DatagramTransport, error) {
	if log == nil {
		log = defaultLogger()
	}
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &DatagramTransport{conn: conn, log: log, rng: defaultRand()}, nil
}

// LocalAddr returns the bound local address (useful when listenAddr used
// port 0).
func (t *DatagramTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// SetLossRate sets the fraction (0.0-1.0) of outbound datagrams dropped
// before transmission. Zero (the default) disables injection entirely.
func (t *DatagramTransport) SetLossRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lossRate = rate
}

// Start launches the read loop, delivering every decoded inbound frame to
// handler. Malformed datagrams (per internal/wire.Decode) are logged and
// dropped, not delivered — per spec.md §7, unparseable frames are silently
// ignored at the wire layer.
func (t *DatagramTransport) Start(handler FrameHandler) {
	t.handler = handler
	go t.readLoop()
}

func (t *DatagramTransport) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.log.Warn("transport(udp): read error", "error", err)
			return
		}
		f, decErr := wire.Decode(buf[:n])
		if decErr != nil {
			t.log.Debug("transport(udp): dropping malformed datagram", "remote", addr.String(), "error", decErr)
			continue
		}
		if t.handler != nil {
			t.handler(addr.String(), f)
		}
	}
}

// SendTo writes an already-encoded frame to address ("ip:port"), subject to
// injected loss if configured. Satisfies internal/servercore.Transport.
func (t *DatagramTransport) SendTo(address string, frame []byte) error {
	t.mu.RLock()
	rate := t.lossRate
	t.mu.RUnlock()
	if rate > 0 && t.rng.Float64() < rate {
		return nil // simulated loss: report success, the PRE's timer covers recovery
	}

	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(frame, addr)
	return err
}

// Close releases the underlying socket. Safe to call more than once.
func (t *DatagramTransport) Close() error {
	var err error
	t.closeOnce.Do(func() { err = t.conn.Close() })
	return err
}
