package clientsession

import "github.com/alxayo/c2w/internal/wire"

// UserView is one entry of a decoded USER_LIST, with the room resolved as
// far as the client's current knowledge allows.
type UserView struct {
	Name string
	Room Room
}

// ClientProxy is the external GUI/display sink the session drives
// (spec.md §6.3). Implementations must not block for long — callbacks run
// on the goroutine processing inbound frames for this session.
type ClientProxy interface {
	InitComplete(users []UserView, movies []wire.Movie)
	SetUserList(users []UserView)
	UserUpdateReceived(userName string, room Room)
	ChatMessageReceived(sender, text string)
	ConnectionRejected(reason string)
	JoinRoomOK()
	LeaveSystemOK()
	ApplicationQuit()
}
