// Package servercore implements the server-side session logic (spec.md
// §4.5): admission, room changes, chat fan-out, and forced eviction on
// retransmission exhaustion, layered on top of internal/reliability and an
// external Directory.
package servercore

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	c2werrors "github.com/alxayo/c2w/internal/errors"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/reliability"
	"github.com/alxayo/c2w/internal/wire"
)

// Transport delivers an already-encoded frame to a specific peer address.
// Implemented by internal/transport for UDP and TCP.
type Transport interface {
	SendTo(address string, frame []byte) error
}

// EventSink receives fire-and-forget operational events. Implemented by
// internal/hooks.Manager; nil-safe via noopEventSink so Server never has
// to branch on whether one was configured.
type EventSink interface {
	Emit(eventType, address, username string, fields map[string]any)
}

// MetricsSink receives instrumentation counters. Implemented by
// internal/metrics.Collector.
type MetricsSink interface {
	PeerConnected()
	PeerDisconnected()
	PeerEvicted()
	FrameSent()
	FrameReceived()
	Retransmission()
	RoomOccupancy(room string, n int)
}

type noopEventSink struct{}

func (noopEventSink) Emit(string, string, string, map[string]any) {}

type noopMetricsSink struct{}

func (noopMetricsSink) PeerConnected()           {}
func (noopMetricsSink) PeerDisconnected()        {}
func (noopMetricsSink) PeerEvicted()             {}
func (noopMetricsSink) FrameSent()               {}
func (noopMetricsSink) FrameReceived()           {}
func (noopMetricsSink) Retransmission()          {}
func (noopMetricsSink) RoomOccupancy(string, int) {}

// peerEntry is the server's per-address reliability state plus the
// username it is currently admitted under (empty if not yet admitted).
// sessionID is a process-local identifier for log/metrics correlation only
// — it never appears on the wire, which identifies peers purely by
// address (spec.md §3).
type peerEntry struct {
	pre       *reliability.PeerState
	address   string
	username  string
	refused   bool
	sessionID uuid.UUID
}

// Server holds one PeerState per actively-communicating address and
// dispatches decoded inbound frames into directory mutations and fan-out
// broadcasts.
type Server struct {
	mu    sync.Mutex
	dir   Directory
	peers map[string]*peerEntry

	transport Transport
	events    EventSink
	metrics   MetricsSink
	log       *slog.Logger
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithEventSink attaches an operational event sink (internal/hooks.Manager).
func WithEventSink(sink EventSink) Option {
	return func(s *Server) { s.events = sink }
}

// WithMetricsSink attaches a metrics collector (internal/metrics.Collector).
func WithMetricsSink(sink MetricsSink) Option {
	return func(s *Server) { s.metrics = sink }
}

// WithLogger overrides the default global logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer constructs a Server backed by dir and transport.
func NewServer(dir Directory, transport Transport, opts ...Option) *Server {
	s := &Server{
		dir:       dir,
		peers:     make(map[string]*peerEntry),
		transport: transport,
		events:    noopEventSink{},
		metrics:   noopMetricsSink{},
		log:       logger.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// peerFor returns the PeerState for address, lazily creating it (and its
// reliability.PeerState) on first contact — a PerPeerState exists "for the
// period a peer address is actively communicating" (spec.md §3).
func (s *Server) peerFor(address string) *peerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.peers[address]; ok {
		return entry
	}
	entry := &peerEntry{address: address, sessionID: uuid.New()}
	sender := func(frame []byte) error {
		s.metrics.FrameSent()
		return s.transport.SendTo(address, frame)
	}
	entry.pre = reliability.NewPeerState(sender, func(seq uint16, attempts uint8) {
		s.metrics.Retransmission()
		s.onRetransmissionExhausted(address)
	}, s.log)
	s.peers[address] = entry
	return entry
}

// HandleFrame is the entrypoint for every decoded inbound frame, called by
// the listener loop after framer + wire.Decode have produced f.
func (s *Server) HandleFrame(address string, f wire.Frame) error {
	s.metrics.FrameReceived()
	entry := s.peerFor(address)

	if f.Type == wire.ACK {
		entry.pre.HandleAck(f.Sequence)
		return nil
	}

	deliver, err := entry.pre.HandleInbound(f)
	if err != nil {
		if c2werrors.IsProtocolError(err) {
			return nil // duplicate/out-of-order: already ACKed by the PRE
		}
		return err
	}
	if !deliver {
		return nil
	}

	switch f.Type {
	case wire.CONNECT:
		username, decErr := wire.DecodeText(f.Payload)
		if decErr != nil {
			s.log.Warn("servercore: malformed CONNECT", "address", address, "error", decErr)
			return nil
		}
		s.handleConnect(address, entry, username)
	case wire.LEAVE_APP:
		s.handleLeaveApp(address, entry)
	case wire.SELECT_MOVIE:
		title, decErr := wire.DecodeText(f.Payload)
		if decErr != nil {
			s.log.Warn("servercore: malformed SELECT_MOVIE", "address", address, "error", decErr)
			return nil
		}
		s.handleSelectMovie(address, entry, title)
	case wire.LEAVE_MOVIE_ROOM:
		s.handleLeaveMovieRoom(address, entry)
	case wire.CHAT:
		pseudo, text, decErr := wire.DecodeChat(f.Payload)
		if decErr != nil {
			s.log.Warn("servercore: malformed CHAT", "address", address, "error", decErr)
			return nil
		}
		s.handleChat(entry, pseudo, text)
	default:
		s.log.Warn("servercore: unexpected type reached session dispatch", "type", f.Type)
	}
	return nil
}

func (s *Server) emit(entry *peerEntry, typ wire.MessageType, payload []byte) {
	if _, err := entry.pre.Send(typ, payload); err != nil {
		s.log.Warn("servercore: send failed", "address", entry.address, "type", typ, "error", err)
	}
}

// handleConnect implements admission (spec.md §4.5). Duplicate CONNECTs
// from the same address for the same username are idempotent.
func (s *Server) handleConnect(address string, entry *peerEntry, username string) {
	if entry.username == username && !entry.refused {
		return // idempotent retry
	}

	if s.dir.UserExists(username) {
		entry.refused = true
		s.emit(entry, wire.CONNECT_REFUSE, nil)
		s.events.Emit("user_connect_refused", address, username, nil)
		return
	}

	if err := s.dir.AddUser(username, Main, entry, address); err != nil {
		s.log.Warn("servercore: AddUser failed", "username", username, "error", err)
		return
	}
	entry.username = username
	entry.refused = false

	s.emit(entry, wire.CONNECT_ACCEPT, nil)
	s.emit(entry, wire.MOVIE_LIST, wire.EncodeMovieList(s.dir.GetMovieList()))
	s.broadcastUserList(Main)

	s.metrics.PeerConnected()
	s.events.Emit("user_connected", address, username, map[string]any{"session_id": entry.sessionID.String()})
	s.log.Info("servercore: admitted", "address", address, "username", username, "session_id", entry.sessionID)
}

func (s *Server) handleLeaveApp(address string, entry *peerEntry) {
	if entry.username == "" {
		return
	}
	username := entry.username
	if err := s.dir.RemoveUser(username); err != nil {
		s.log.Warn("servercore: RemoveUser failed", "username", username, "error", err)
	}
	entry.username = ""

	s.broadcastUserList(Main)
	s.metrics.PeerDisconnected()
	s.events.Emit("user_disconnected", address, username, nil)
}

func (s *Server) handleSelectMovie(address string, entry *peerEntry, title string) {
	if entry.username == "" {
		return
	}
	movie, ok := s.dir.GetMovieByTitle(title)
	if !ok {
		s.log.Warn("servercore: SELECT_MOVIE references unknown movie", "title", title, "address", address)
		return
	}
	room := Movie(movie.ID, movie.Title)
	if err := s.dir.UpdateUserChatroom(entry.username, room); err != nil {
		s.log.Warn("servercore: UpdateUserChatroom failed", "username", entry.username, "error", err)
		return
	}
	s.dir.StartStreamingMovie(title)

	s.broadcastUserList(Main)
	s.broadcastUserList(room)

	s.events.Emit("room_joined", address, entry.username, map[string]any{"room": title})
}

func (s *Server) handleLeaveMovieRoom(address string, entry *peerEntry) {
	if entry.username == "" {
		return
	}
	user, ok := s.dir.GetUserByName(entry.username)
	if !ok {
		return
	}
	prevRoom := user.Room
	if err := s.dir.UpdateUserChatroom(entry.username, Main); err != nil {
		s.log.Warn("servercore: UpdateUserChatroom failed", "username", entry.username, "error", err)
		return
	}
	if !prevRoom.IsMain() {
		s.dir.StopStreamingMovie(prevRoom.Title)
	}

	s.broadcastUserList(Main)
	if !prevRoom.IsMain() {
		s.broadcastUserList(prevRoom)
	}

	s.events.Emit("room_left", address, entry.username, map[string]any{"room": prevRoom.Title})
}

func (s *Server) handleChat(sender *peerEntry, pseudo, text string) {
	if sender.username == "" {
		return
	}
	user, ok := s.dir.GetUserByName(sender.username)
	if !ok {
		return
	}
	for _, other := range s.dir.GetUserList() {
		if other.Name == user.Name || !other.Room.Equal(user.Room) {
			continue
		}
		otherEntry, ok := other.SessionRef.(*peerEntry)
		if !ok || otherEntry == nil {
			continue
		}
		s.emit(otherEntry, wire.CHAT, wire.EncodeChat(pseudo, text))
	}
	s.events.Emit("chat_relayed", sender.address, sender.username, map[string]any{"room": user.Room.Title})
}

// broadcastUserList sends a USER_LIST to every peer currently in room.
// Composition (spec.md §4.5 "USER_LIST composition"): a MainRoom target
// gets the full directory listing; a movie-room target gets only the
// users currently in that movie.
func (s *Server) broadcastUserList(room Room) {
	users := s.dir.GetUserList()

	var content []wire.UserRecord
	for _, u := range users {
		if room.IsMain() || u.Room.Equal(room) {
			content = append(content, wire.UserRecord{Status: u.Room.Status(), Pseudo: u.Name})
		}
	}
	payload := wire.EncodeUserList(content)

	occupants := 0
	for _, u := range users {
		if !u.Room.Equal(room) {
			continue
		}
		occupants++
		entry, ok := u.SessionRef.(*peerEntry)
		if !ok || entry == nil {
			continue
		}
		s.emit(entry, wire.USER_LIST, payload)
	}

	label := room.Title
	if room.IsMain() {
		label = MainRoomName
	}
	s.metrics.RoomOccupancy(label, occupants)
}

// onRetransmissionExhausted implements the server-side half of spec.md
// §4.3/§4.5: treat as an involuntary LEAVE_APP.
func (s *Server) onRetransmissionExhausted(address string) {
	s.mu.Lock()
	entry, ok := s.peers[address]
	if ok {
		delete(s.peers, address)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	username := entry.username
	if username != "" {
		if err := s.dir.RemoveUser(username); err != nil {
			s.log.Warn("servercore: RemoveUser on eviction failed", "username", username, "error", err)
		}
		s.broadcastUserList(Main)
		s.metrics.PeerEvicted()
		s.events.Emit("peer_evicted", address, username, nil)
	}
	entry.pre.Close()
}
