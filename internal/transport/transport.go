// Package transport implements the two c2w wire transports: a UDP datagram
// transport (lossy, with optional injected loss for testing the reliability
// layer) and a framed TCP stream transport. Both satisfy
// internal/servercore.Transport and supply a internal/reliability.Sender
// per peer.
package transport

import (
	"log/slog"
	"math/rand"

	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/wire"
)

// FrameHandler is invoked once per decoded inbound frame, with the peer
// address that sent it ("ip:port" for UDP, the remote address string for a
// TCP connection).
type FrameHandler func(address string, f wire.Frame)

// maxDatagramSize bounds a single UDP read. The largest legal c2w frame is
// HeaderSize + MaxPayloadSize, which is exactly this size.
const maxDatagramSize = 65535

func defaultLogger() *slog.Logger { return logger.Logger() }

// mathRandSource adapts math/rand's package-level source to randSource.
type mathRandSource struct{}

func (mathRandSource) Float64() float64 { return rand.Float64() }

func defaultRand() randSource { return mathRandSource{} }
