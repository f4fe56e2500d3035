// Package reliability implements the per-peer reliability engine (PRE): a
// stop-and-wait sender with a bounded retransmission timer, and a receiver
// that deduplicates and orders inbound frames by sequence number. One
// PeerState exists per peer (per TCP connection, or per UDP "ip:port").
package reliability

import (
	"log/slog"
	"sync"
	"time"

	c2werrors "github.com/alxayo/c2w/internal/errors"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/wire"
)

// MaxAttemptsResend is the retransmission attempt cap (value 7 in the
// reference implementation). A Pending frame is transmitted
// MaxAttemptsResend+1 times in total (1 initial send + this many resends)
// before the peer is declared unreachable.
const MaxAttemptsResend = 7

// ResendInterval is the fixed delay between a (re)transmission and the next
// retransmission attempt if no ACK has arrived.
const ResendInterval = 1 * time.Second

// Sender writes a single already-encoded frame to the peer's transport.
// Implementations must be safe to call from the PeerState's goroutine and
// from timer callbacks; they must not block indefinitely (UDP writes and
// framed TCP writes are both effectively non-blocking at this layer).
type Sender func(frame []byte) error

// ExhaustedFunc is invoked, outside the PeerState's lock, when a pending
// frame's retransmissions are exhausted. The caller (client or server
// session logic) must treat this as involuntary peer teardown.
type ExhaustedFunc func(seq uint16, attempts uint8)

// Pending is a single outbound frame awaiting acknowledgement.
type Pending struct {
	Bytes        []byte
	Type         wire.MessageType
	Attempts     uint8
	Acknowledged bool
	timer        *time.Timer
}

// PeerState is the reliability state for a single peer: outbound
// sequencing/retransmission plus inbound sequence deduplication. Zero value
// is not usable; construct with NewPeerState.
type PeerState struct {
	mu sync.Mutex

	nextOutboundSeq    uint16
	ackedUpTo          uint16
	expectedInboundSeq uint16
	outbox             map[uint16]*Pending

	send      Sender
	onExhaust ExhaustedFunc
	log       *slog.Logger

	resendInterval time.Duration
	closed         bool
}

// Option configures a PeerState at construction time.
type Option func(*PeerState)

// withResendInterval overrides the retransmission timer period. Unexported:
// production callers always get the spec-mandated 1-second interval; it
// exists so tests don't have to wait out real-time retransmission windows.
func withResendInterval(d time.Duration) Option {
	return func(p *PeerState) { p.resendInterval = d }
}

// NewPeerState constructs a PeerState for a newly admitted peer. send
// performs the raw transport write (UDP datagram or framed TCP write);
// onExhaust is called when a frame exceeds MaxAttemptsResend retransmits.
func NewPeerState(send Sender, onExhaust ExhaustedFunc, log *slog.Logger, opts ...Option) *PeerState {
	if log == nil {
		log = logger.Logger()
	}
	p := &PeerState{
		outbox:         make(map[uint16]*Pending),
		send:           send,
		onExhaust:      onExhaust,
		log:            log,
		resendInterval: ResendInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func nextSeq(seq uint16) uint16 { return (seq + 1) & wire.MaxSequence }

// Send assigns the next outbound sequence number to (typ, payload), enqueues
// it, and transmits immediately if the stop-and-wait window is free (i.e. no
// earlier frame is still awaiting ACK). Returns the assigned sequence.
func (p *PeerState) Send(typ wire.MessageType, payload []byte) (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, c2werrors.NewProtocolError("reliability.send", errPeerClosed)
	}

	seq := p.nextOutboundSeq
	frame := wire.Encode(seq, typ, payload)
	p.outbox[seq] = &Pending{Bytes: frame, Type: typ}
	p.nextOutboundSeq = nextSeq(seq)

	if seq == p.ackedUpTo {
		p.transmitLocked(seq)
	}

	return seq, nil
}

// transmitLocked writes the pending frame at seq (must exist) and (re)arms
// its retransmission timer. Caller holds p.mu.
func (p *PeerState) transmitLocked(seq uint16) {
	pending, ok := p.outbox[seq]
	if !ok {
		return
	}
	if err := p.send(pending.Bytes); err != nil {
		p.log.Warn("reliability: transmit failed", "seq", seq, "type", pending.Type, "error", err)
	}
	pending.timer = time.AfterFunc(p.resendInterval, func() { p.onTimerFire(seq) })
}

// onTimerFire runs ResendInterval after a (re)transmission of seq.
func (p *PeerState) onTimerFire(seq uint16) {
	p.mu.Lock()
	pending, ok := p.outbox[seq]
	if !ok || pending.Acknowledged {
		p.mu.Unlock()
		return
	}
	if pending.Attempts >= MaxAttemptsResend {
		delete(p.outbox, seq)
		attempts := pending.Attempts
		p.mu.Unlock()
		p.log.Warn("reliability: retransmission exhausted", "seq", seq, "attempts", attempts)
		if p.onExhaust != nil {
			p.onExhaust(seq, attempts)
		}
		return
	}
	pending.Attempts++
	p.transmitLocked(seq)
	p.mu.Unlock()
}

// HandleAck processes an inbound ACK frame. Only an ACK matching the
// current ackedUpTo sequence advances the window; others are ignored
// (already satisfied, or a stray duplicate ACK for a frame already
// removed from the outbox).
func (p *PeerState) HandleAck(seq uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.ackedUpTo {
		return
	}
	pending, ok := p.outbox[seq]
	if !ok {
		return
	}
	pending.Acknowledged = true
	if pending.timer != nil {
		pending.timer.Stop()
	}
	delete(p.outbox, seq)
	p.ackedUpTo = nextSeq(seq)

	if _, ok := p.outbox[p.ackedUpTo]; ok {
		p.transmitLocked(p.ackedUpTo)
	}
}

// Deliver pairs an inbound frame with whether it is to be delivered
// upward. HandleInbound itself returns only the deliver flag and an error.
type Deliver struct {
	Frame   wire.Frame
	Deliver bool
}

// HandleInbound processes a decoded non-ACK frame arriving from the peer.
// It always emits an ACK with the frame's sequence first (a side effect,
// via send), then classifies the frame against expectedInboundSeq:
//   - equal: advances expectedInboundSeq and returns (true, nil) for the
//     caller to deliver the frame upward.
//   - less: duplicate of an already-processed frame; returns
//     (false, *errors.SequenceError) with SequenceDuplicate.
//   - greater: out-of-order, unsupported under stop-and-wait; returns
//     (false, *errors.SequenceError) with SequenceOutOfOrder.
func (p *PeerState) HandleInbound(f wire.Frame) (bool, error) {
	ack := wire.Encode(f.Sequence, wire.ACK, nil)
	if err := p.send(ack); err != nil {
		p.log.Warn("reliability: ack send failed", "seq", f.Sequence, "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case f.Sequence == p.expectedInboundSeq:
		p.expectedInboundSeq = nextSeq(f.Sequence)
		return true, nil
	case f.Sequence < p.expectedInboundSeq:
		return false, c2werrors.NewSequenceError(c2werrors.SequenceDuplicate, f.Sequence, p.expectedInboundSeq)
	default:
		return false, c2werrors.NewSequenceError(c2werrors.SequenceOutOfOrder, f.Sequence, p.expectedInboundSeq)
	}
}

// Close discards the outbox, stopping all pending retransmission timers.
// Safe to call once a peer has left or been evicted.
func (p *PeerState) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for seq, pending := range p.outbox {
		if pending.timer != nil {
			pending.timer.Stop()
		}
		delete(p.outbox, seq)
	}
}

// OutboxLen reports the number of unacknowledged outbound frames, counting
// the one in flight and any queued behind it (for tests/diagnostics).
func (p *PeerState) OutboxLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outbox)
}
