// Package clientsession implements the client-side session state machine
// (spec.md §4.4): login progress, room membership, and view updates driven
// by an external ClientProxy.
package clientsession

import (
	"fmt"
	"log/slog"
	"sync"

	c2werrors "github.com/alxayo/c2w/internal/errors"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/reliability"
	"github.com/alxayo/c2w/internal/wire"
)

// Session is the client-side state machine. Construct with NewSession,
// drive outbound requests via the Send* methods, and feed every decoded
// inbound frame to HandleFrame.
type Session struct {
	mu sync.Mutex

	pre  *reliability.PeerState
	log  *slog.Logger
	proxy ClientProxy

	userName      string
	room          Room
	pendingRoom   Room // target room recorded by SendJoinRoomRequest, applied on ACK
	movies        []wire.Movie
	initDelivered bool

	// outboundTypes remembers, per assigned sequence, which request type
	// was sent so the session can interpret that sequence's eventual ACK
	// (spec.md §4.4: "the client distinguishes its own ACK-triggered
	// actions by remembering the type of the outstanding outbound frame").
	outboundTypes map[uint16]wire.MessageType
}

// NewSession constructs a client session. send performs the raw transport
// write (UDP datagram or framed TCP write) for this connection.
func NewSession(send reliability.Sender, proxy ClientProxy, log *slog.Logger) *Session {
	if log == nil {
		log = logger.Logger()
	}
	s := &Session{
		proxy:         proxy,
		log:           log,
		outboundTypes: make(map[uint16]wire.MessageType),
	}
	s.pre = reliability.NewPeerState(send, s.onRetransmissionExhausted, log)
	return s
}

func (s *Session) sendTracked(typ wire.MessageType, payload []byte) error {
	seq, err := s.pre.Send(typ, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.outboundTypes[seq] = typ
	s.mu.Unlock()
	return nil
}

// SendLoginRequest emits CONNECT. Per spec.md §4.4 this is always the
// first frame sent, so the PRE's sequence counter (starting at 0) assigns
// seq=0 naturally.
func (s *Session) SendLoginRequest(userName string) error {
	s.mu.Lock()
	s.userName = userName
	s.mu.Unlock()
	return s.sendTracked(wire.CONNECT, wire.EncodeText(userName))
}

// SendChatMessage emits CHAT with the session's own username as sender.
func (s *Session) SendChatMessage(text string) error {
	s.mu.Lock()
	name := s.userName
	s.mu.Unlock()
	return s.sendTracked(wire.CHAT, wire.EncodeChat(name, text))
}

// SendJoinRoomRequest emits LEAVE_MOVIE_ROOM (roomName == MainRoomName) or
// SELECT_MOVIE(roomName), recording the target room pending the server's
// ACK.
func (s *Session) SendJoinRoomRequest(roomName string) error {
	if roomName == MainRoomName {
		return s.sendTracked(wire.LEAVE_MOVIE_ROOM, nil)
	}
	s.mu.Lock()
	s.pendingRoom = Room{Kind: RoomKindMovie, Title: roomName}
	s.mu.Unlock()
	return s.sendTracked(wire.SELECT_MOVIE, wire.EncodeText(roomName))
}

// SendLeaveSystemRequest emits LEAVE_APP.
func (s *Session) SendLeaveSystemRequest() error {
	return s.sendTracked(wire.LEAVE_APP, nil)
}

// onRetransmissionExhausted is the PRE's ExhaustedFunc for this session:
// per spec.md §4.3 the client reports connection failure and requests
// application quit.
func (s *Session) onRetransmissionExhausted(seq uint16, attempts uint8) {
	s.proxy.ConnectionRejected(fmt.Sprintf("no response from server (seq=%d, %d attempts)", seq, attempts))
	s.proxy.ApplicationQuit()
}

// HandleFrame processes one decoded inbound frame, routing ACKs through
// the PRE's window-advance logic and non-ACK frames through
// dedup/ordering before dispatching to the proxy.
func (s *Session) HandleFrame(f wire.Frame) error {
	if f.Type == wire.ACK {
		s.pre.HandleAck(f.Sequence)
		s.handleAckedType(f.Sequence)
		return nil
	}

	deliver, err := s.pre.HandleInbound(f)
	if err != nil {
		if c2werrors.IsProtocolError(err) {
			return nil // duplicate/out-of-order: the PRE already ACKed it
		}
		return err
	}
	if !deliver {
		return nil
	}

	switch f.Type {
	case wire.CONNECT_ACCEPT:
		s.mu.Lock()
		s.room = Main
		s.initDelivered = false
		s.mu.Unlock()
	case wire.MOVIE_LIST:
		movies, decErr := wire.DecodeMovieList(f.Payload)
		if decErr != nil {
			s.log.Warn("clientsession: malformed MOVIE_LIST", "error", decErr)
			return nil
		}
		s.mu.Lock()
		s.movies = movies
		s.mu.Unlock()
	case wire.USER_LIST:
		s.handleUserList(f.Payload)
	case wire.CONNECT_REFUSE:
		s.proxy.ConnectionRejected("duplicate username")
		s.proxy.ApplicationQuit()
	case wire.CHAT:
		pseudo, text, decErr := wire.DecodeChat(f.Payload)
		if decErr != nil {
			s.log.Warn("clientsession: malformed CHAT", "error", decErr)
			return nil
		}
		s.proxy.ChatMessageReceived(pseudo, text)
	default:
		s.log.Warn("clientsession: unexpected type reached session dispatch", "type", f.Type)
	}
	return nil
}

// handleAckedType interprets the ACK for sequence seq according to what
// request type was outstanding at that sequence.
func (s *Session) handleAckedType(seq uint16) {
	s.mu.Lock()
	typ, ok := s.outboundTypes[seq]
	if ok {
		delete(s.outboundTypes, seq)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	switch typ {
	case wire.LEAVE_APP:
		s.proxy.LeaveSystemOK()
	case wire.SELECT_MOVIE:
		s.mu.Lock()
		s.room = s.pendingRoom
		s.mu.Unlock()
		s.proxy.JoinRoomOK()
	case wire.LEAVE_MOVIE_ROOM:
		s.mu.Lock()
		s.room = Main
		s.mu.Unlock()
		s.proxy.JoinRoomOK()
	}
}

// handleUserList decodes a USER_LIST payload and dispatches it per
// spec.md §4.4's "Inbound handling" table.
func (s *Session) handleUserList(payload []byte) {
	records, err := wire.DecodeUserList(payload)
	if err != nil {
		s.log.Warn("clientsession: malformed USER_LIST", "error", err)
		return
	}

	s.mu.Lock()
	room := s.room
	movies := s.movies
	firstReceipt := !s.initDelivered
	s.mu.Unlock()

	users := make([]UserView, len(records))
	for i, r := range records {
		users[i] = UserView{Name: r.Pseudo, Room: resolveRoom(r.Status, movies)}
	}

	if room.IsMain() {
		if firstReceipt {
			s.mu.Lock()
			s.initDelivered = true
			s.mu.Unlock()
			s.proxy.InitComplete(users, movies)
		} else {
			s.proxy.SetUserList(users)
		}
		return
	}

	s.proxy.SetUserList(nil)
	for _, u := range users {
		s.proxy.UserUpdateReceived(u.Name, u.Room)
	}
}

// CurrentRoom reports the session's current room (for tests/diagnostics).
func (s *Session) CurrentRoom() Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}
