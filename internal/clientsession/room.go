package clientsession

import "github.com/alxayo/c2w/internal/wire"

// RoomKind distinguishes the lobby from a movie-specific chat room, mirroring
// internal/servercore.RoomKind on the client side.
type RoomKind uint8

const (
	RoomKindMain RoomKind = iota
	RoomKindMovie
)

// MainRoomName is the sentinel roomName value sendJoinRoomRequest compares
// against to decide between SELECT_MOVIE and LEAVE_MOVIE_ROOM.
const MainRoomName = "MainRoom"

// Room is the client's view of its own or another user's current room.
// Title is best-effort: USER_LIST records only carry a movie id, so Title
// is populated by resolving against the retained movie catalog and may be
// empty if the movie hasn't been seen in a MOVIE_LIST yet.
type Room struct {
	Kind    RoomKind
	MovieID uint8
	Title   string
}

// Main is the shared MainRoom value.
var Main = Room{Kind: RoomKindMain}

func (r Room) IsMain() bool { return r.Kind == RoomKindMain }

// resolveRoom turns a USER_LIST status byte into a Room, resolving the
// movie title against the retained catalog when possible. Per spec.md
// §4.1, status 0 is MainRoom; any other value is a movie id.
func resolveRoom(status uint8, movies []wire.Movie) Room {
	if status == 0 {
		return Main
	}
	for _, m := range movies {
		if m.ID == status {
			return Room{Kind: RoomKindMovie, MovieID: status, Title: m.Title}
		}
	}
	return Room{Kind: RoomKindMovie, MovieID: status}
}
