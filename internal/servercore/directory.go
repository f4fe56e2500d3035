package servercore

import (
	"fmt"
	"sync"

	"github.com/alxayo/c2w/internal/wire"
)

// User is the directory's record for a connected peer.
type User struct {
	Name       string
	Room       Room
	Address    string // "ip:port", the wire-visible/directory key
	SessionRef any    // opaque back-reference to the owning session
}

// Directory is the external user/movie store (spec.md §6.4). The server
// session logic depends only on this interface, never on a concrete
// storage choice, so it can be swapped for a persistent implementation
// without touching admission/room-change/chat logic.
type Directory interface {
	UserExists(name string) bool
	AddUser(name string, room Room, sessionRef any, address string) error
	RemoveUser(name string) error
	GetUserByName(name string) (User, bool)
	GetUserList() []User
	GetMovieList() []wire.Movie
	GetMovieByTitle(title string) (wire.Movie, bool)
	UpdateUserChatroom(name string, room Room) error
	StartStreamingMovie(title string)
	StopStreamingMovie(title string)
}

// MemDirectory is the in-memory reference Directory implementation: enough
// to run and test the server session logic end-to-end without any real
// media backend. StartStreamingMovie/StopStreamingMovie just log/count —
// the actual media pipeline is out of scope (spec.md §1).
type MemDirectory struct {
	mu       sync.Mutex
	users    map[string]User
	movies   []wire.Movie
	moviesBy map[string]int // title -> index into movies
	refcount map[string]int // title -> number of streaming sessions (for Stop idempotency)
}

// NewMemDirectory builds an in-memory directory seeded with the given
// movie catalog. The catalog is fixed for the life of the directory —
// the spec does not define a movie-management API, only lookups.
func NewMemDirectory(movies []wire.Movie) *MemDirectory {
	d := &MemDirectory{
		users:    make(map[string]User),
		movies:   movies,
		moviesBy: make(map[string]int, len(movies)),
		refcount: make(map[string]int),
	}
	for i, m := range movies {
		d.moviesBy[m.Title] = i
	}
	return d
}

func (d *MemDirectory) UserExists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[name]
	return ok
}

func (d *MemDirectory) AddUser(name string, room Room, sessionRef any, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[name]; ok {
		return fmt.Errorf("servercore: user %q already exists", name)
	}
	d.users[name] = User{Name: name, Room: room, Address: address, SessionRef: sessionRef}
	return nil
}

func (d *MemDirectory) RemoveUser(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[name]; !ok {
		return fmt.Errorf("servercore: user %q not found", name)
	}
	delete(d.users, name)
	return nil
}

func (d *MemDirectory) GetUserByName(name string) (User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[name]
	return u, ok
}

func (d *MemDirectory) GetUserList() []User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	return out
}

func (d *MemDirectory) GetMovieList() []wire.Movie {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]wire.Movie, len(d.movies))
	copy(out, d.movies)
	return out
}

func (d *MemDirectory) GetMovieByTitle(title string) (wire.Movie, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.moviesBy[title]
	if !ok {
		return wire.Movie{}, false
	}
	return d.movies[idx], true
}

func (d *MemDirectory) UpdateUserChatroom(name string, room Room) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[name]
	if !ok {
		return fmt.Errorf("servercore: user %q not found", name)
	}
	u.Room = room
	d.users[name] = u
	return nil
}

// StartStreamingMovie increments the reference count for title. The actual
// transcode/relay pipeline this would trigger is external (spec.md §1).
func (d *MemDirectory) StartStreamingMovie(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refcount[title]++
}

// StopStreamingMovie decrements the reference count for title; it is a
// no-op once the count reaches zero, matching the "idempotent" contract
// in spec.md §4.5.
func (d *MemDirectory) StopStreamingMovie(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refcount[title] > 0 {
		d.refcount[title]--
	}
}
