package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alxayo/c2w/internal/clientsession"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/transport"
	"github.com/alxayo/c2w/internal/wire"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

type connectFlags struct {
	server    string
	transport string
	username  string
	lossPr    float64
	logLevel  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "c2w-client",
		Short:   "c2w chat console client",
		Version: version,
	}
	root.AddCommand(newConnectCmd())
	return root
}

func newConnectCmd() *cobra.Command {
	f := &connectFlags{}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a c2w server and drive the chat session from the console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.server, "server", "127.0.0.1:4000", "server address (host:port)")
	flags.StringVar(&f.transport, "transport", "udp", "wire transport: udp|tcp")
	flags.StringVar(&f.username, "username", "", "username to log in with (required)")
	flags.Float64Var(&f.lossPr, "loss-pr", 0, "UDP-only: fraction (0.0-1.0) of outbound datagrams dropped to simulate loss")
	flags.StringVar(&f.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runConnect(f *connectFlags) error {
	if err := logger.SetLevel(f.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid log level %q, using default\n", f.logLevel)
	}
	log := logger.Logger().With("component", "c2w-client")

	if f.transport != "udp" && f.transport != "tcp" {
		return fmt.Errorf("invalid --transport %q: must be udp or tcp", f.transport)
	}
	if f.lossPr < 0 || f.lossPr > 1 {
		return fmt.Errorf("invalid --loss-pr %v: must be between 0.0 and 1.0", f.lossPr)
	}

	done := newDoneSignal()
	proxy := newConsoleProxy(done)

	var session *clientsession.Session
	var closeFn func() error

	switch f.transport {
	case "udp":
		dt, err := transport.NewDatagramTransport("", log.With("transport", "udp"))
		if err != nil {
			return fmt.Errorf("bind udp socket: %w", err)
		}
		dt.SetLossRate(f.lossPr)
		session = clientsession.NewSession(func(frame []byte) error {
			return dt.SendTo(f.server, frame)
		}, proxy, log)
		dt.Start(func(_ string, fr wire.Frame) { _ = session.HandleFrame(fr) })
		closeFn = dt.Close
	case "tcp":
		st := transport.NewStreamTransport(log.With("transport", "tcp"))
		var address string
		// session must exist before Dial starts its read goroutine: the
		// handler below closes over session, and address is filled in by
		// Dial's return before any frame can reach SendTo.
		session = clientsession.NewSession(func(frame []byte) error {
			return st.SendTo(address, frame)
		}, proxy, log)
		addr, err := st.Dial(f.server, func(_ string, fr wire.Frame) { _ = session.HandleFrame(fr) })
		if err != nil {
			return fmt.Errorf("dial %s: %w", f.server, err)
		}
		address = addr
		closeFn = st.Close
	}
	defer closeFn()

	if err := session.SendLoginRequest(f.username); err != nil {
		return fmt.Errorf("send login request: %w", err)
	}

	go runConsoleLoop(session, done)

	<-done.ch
	time.Sleep(100 * time.Millisecond) // let a final outstanding LEAVE_APP ACK land
	return nil
}

// runConsoleLoop reads user commands from stdin until done fires or EOF.
// Supported commands: /join <room|MainRoom>, /leave, /quit, and any other
// line is sent as a chat message.
func runConsoleLoop(session *clientsession.Session, done *doneSignal) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done.ch:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			_ = session.SendLeaveSystemRequest()
			done.fire()
			return
		case line == "/leave":
			_ = session.SendJoinRoomRequest(clientsession.MainRoomName)
		case strings.HasPrefix(line, "/join "):
			room := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			_ = session.SendJoinRoomRequest(room)
		default:
			_ = session.SendChatMessage(line)
		}
	}
}
