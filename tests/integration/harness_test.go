// Package integration runs the c2w protocol's named scenarios (spec.md §8)
// end-to-end over a real loopback transport: a servercore.Server backed by
// a transport.DatagramTransport (UDP), and one
// clientsession.Session per simulated user, each driven by a recordingProxy
// test double.
package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/alxayo/c2w/internal/clientsession"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/servercore"
	"github.com/alxayo/c2w/internal/transport"
	"github.com/alxayo/c2w/internal/wire"
)

// waitUntil polls cond until it reports true or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

// recordingProxy is a clientsession.ClientProxy test double recording every
// callback under a mutex, for assertion from the test goroutine.
type recordingProxy struct {
	mu sync.Mutex

	initUsers  []clientsession.UserView
	initMovies []wire.Movie
	initCalled int

	setListCalls [][]clientsession.UserView
	updates      []struct {
		name string
		room clientsession.Room
	}
	chats []struct{ sender, text string }

	rejectedReason string
	rejectedCalled int
	joinOKCalled   int
	leaveOKCalled  int
	quitCalled     int
}

func (p *recordingProxy) InitComplete(users []clientsession.UserView, movies []wire.Movie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initUsers = users
	p.initMovies = movies
	p.initCalled++
}
func (p *recordingProxy) SetUserList(users []clientsession.UserView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setListCalls = append(p.setListCalls, users)
}
func (p *recordingProxy) UserUpdateReceived(userName string, room clientsession.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, struct {
		name string
		room clientsession.Room
	}{userName, room})
}
func (p *recordingProxy) ChatMessageReceived(sender, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chats = append(p.chats, struct{ sender, text string }{sender, text})
}
func (p *recordingProxy) ConnectionRejected(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectedReason = reason
	p.rejectedCalled++
}
func (p *recordingProxy) JoinRoomOK()    { p.mu.Lock(); p.joinOKCalled++; p.mu.Unlock() }
func (p *recordingProxy) LeaveSystemOK() { p.mu.Lock(); p.leaveOKCalled++; p.mu.Unlock() }
func (p *recordingProxy) ApplicationQuit() {
	p.mu.Lock()
	p.quitCalled++
	p.mu.Unlock()
}

func (p *recordingProxy) chatCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chats)
}
func (p *recordingProxy) initCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initCalled
}
func (p *recordingProxy) rejected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rejectedCalled
}
func (p *recordingProxy) setListCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.setListCalls)
}
func (p *recordingProxy) quit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quitCalled
}
func (p *recordingProxy) joinOK() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.joinOKCalled
}

// testServer wraps a running servercore.Server over a UDP loopback
// transport, plus the means to stop it.
type testServer struct {
	addr string
	dir  *servercore.MemDirectory
	tr   *transport.DatagramTransport
}

func newTestServer(t *testing.T, movies []wire.Movie) *testServer {
	t.Helper()
	log := logger.Logger().With("component", "test-server")
	dir := servercore.NewMemDirectory(movies)
	tr, err := transport.NewDatagramTransport("127.0.0.1:0", log)
	if err != nil {
		t.Fatalf("NewDatagramTransport: %v", err)
	}
	server := servercore.NewServer(dir, tr, servercore.WithLogger(log))
	tr.Start(func(addr string, f wire.Frame) { _ = server.HandleFrame(addr, f) })
	t.Cleanup(func() { tr.Close() })
	return &testServer{addr: tr.LocalAddr().String(), dir: dir, tr: tr}
}

// testClient is a clientsession.Session wired to its own UDP socket plus
// the recordingProxy observing its callbacks.
type testClient struct {
	session *clientsession.Session
	proxy   *recordingProxy
	tr      *transport.DatagramTransport
}

func newTestClient(t *testing.T, serverAddr string) *testClient {
	t.Helper()
	log := logger.Logger().With("component", "test-client")
	tr, err := transport.NewDatagramTransport("127.0.0.1:0", log)
	if err != nil {
		t.Fatalf("NewDatagramTransport: %v", err)
	}
	proxy := &recordingProxy{}
	session := clientsession.NewSession(func(frame []byte) error {
		return tr.SendTo(serverAddr, frame)
	}, proxy, log)
	tr.Start(func(_ string, f wire.Frame) { _ = session.HandleFrame(f) })
	t.Cleanup(func() { tr.Close() })
	return &testClient{session: session, proxy: proxy, tr: tr}
}
