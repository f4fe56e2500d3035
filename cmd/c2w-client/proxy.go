package main

import (
	"fmt"
	"sync"

	"github.com/alxayo/c2w/internal/clientsession"
	"github.com/alxayo/c2w/internal/wire"
)

// doneSignal is a close-once shutdown signal shared between the console
// input loop and the ApplicationQuit callback, whichever fires first.
type doneSignal struct {
	ch   chan struct{}
	once sync.Once
}

func newDoneSignal() *doneSignal {
	return &doneSignal{ch: make(chan struct{})}
}

func (d *doneSignal) fire() {
	d.once.Do(func() { close(d.ch) })
}

// consoleProxy is a console implementation of clientsession.ClientProxy:
// every callback prints a line to stdout. It is safe to call from the
// session's inbound-frame goroutine.
type consoleProxy struct {
	done *doneSignal
}

func newConsoleProxy(done *doneSignal) *consoleProxy {
	return &consoleProxy{done: done}
}

func (p *consoleProxy) InitComplete(users []clientsession.UserView, movies []wire.Movie) {
	fmt.Println("-- connected --")
	titles := make([]string, 0, len(movies))
	for _, m := range movies {
		titles = append(titles, m.Title)
	}
	fmt.Printf("movies available: %v\n", titles)
	p.printUserList(users)
}

func (p *consoleProxy) SetUserList(users []clientsession.UserView) {
	p.printUserList(users)
}

func (p *consoleProxy) printUserList(users []clientsession.UserView) {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	fmt.Printf("users in room: %v\n", names)
}

func (p *consoleProxy) UserUpdateReceived(userName string, room clientsession.Room) {
	fmt.Printf("%s is in %s\n", userName, roomLabel(room))
}

func (p *consoleProxy) ChatMessageReceived(sender, text string) {
	fmt.Printf("%s: %s\n", sender, text)
}

func (p *consoleProxy) ConnectionRejected(reason string) {
	fmt.Printf("-- connection rejected: %s --\n", reason)
}

func (p *consoleProxy) JoinRoomOK() {
	fmt.Println("-- room changed --")
}

func (p *consoleProxy) LeaveSystemOK() {
	fmt.Println("-- left system --")
}

func (p *consoleProxy) ApplicationQuit() {
	p.done.fire()
}

func roomLabel(room clientsession.Room) string {
	if room.IsMain() {
		return clientsession.MainRoomName
	}
	if room.Title != "" {
		return room.Title
	}
	return fmt.Sprintf("movie#%d", room.MovieID)
}
