package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alxayo/c2w/internal/hooks"
	"github.com/alxayo/c2w/internal/logger"
	"github.com/alxayo/c2w/internal/metrics"
	"github.com/alxayo/c2w/internal/servercore"
	"github.com/alxayo/c2w/internal/transport"
	"github.com/alxayo/c2w/internal/wire"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// serveFlags collects the serve subcommand's flag values prior to
// validation and translation into collaborators.
type serveFlags struct {
	listen      string
	transport   string
	lossPr      float64
	logLevel    string
	metricsAddr string
	movies      []string

	hookScripts     []string
	hookWebhooks    []string
	hookStdioFormat string
	hookTimeout     time.Duration
	hookConcurrency int
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "c2w-server",
		Short:   "c2w chat server",
		Version: version,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server, admitting peers and routing chat between rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.listen, "listen", ":4000", "listen address (host:port)")
	flags.StringVar(&f.transport, "transport", "udp", "wire transport: udp|tcp")
	flags.Float64Var(&f.lossPr, "loss-pr", 0, "UDP-only: fraction (0.0-1.0) of outbound datagrams dropped to simulate loss")
	flags.StringVar(&f.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "optional address to serve Prometheus /metrics on (empty disables)")
	flags.StringArrayVar(&f.movies, "movie", nil, "movie title available for selection (repeatable; order assigns ids starting at 1)")

	flags.StringArrayVar(&f.hookScripts, "hook-script", nil, "hook script in format event_type=script_path (repeatable)")
	flags.StringArrayVar(&f.hookWebhooks, "hook-webhook", nil, "hook webhook in format event_type=webhook_url (repeatable)")
	flags.StringVar(&f.hookStdioFormat, "hook-stdio-format", "", "enable structured stdio hook output: json|env (empty disables)")
	flags.DurationVar(&f.hookTimeout, "hook-timeout", 30*time.Second, "timeout for a single hook execution")
	flags.IntVar(&f.hookConcurrency, "hook-concurrency", 10, "maximum concurrent hook executions")

	return cmd
}

func runServe(f *serveFlags) error {
	if err := logger.SetLevel(f.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid log level %q, using default\n", f.logLevel)
	}
	log := logger.Logger().With("component", "c2w-server")

	if f.transport != "udp" && f.transport != "tcp" {
		return fmt.Errorf("invalid --transport %q: must be udp or tcp", f.transport)
	}
	if f.lossPr < 0 || f.lossPr > 1 {
		return fmt.Errorf("invalid --loss-pr %v: must be between 0.0 and 1.0", f.lossPr)
	}

	manager := hooks.NewManager(hooks.Config{
		Timeout:     f.hookTimeout.String(),
		Concurrency: f.hookConcurrency,
		StdioFormat: f.hookStdioFormat,
	}, log.With("component", "hooks"))
	defer manager.Close()
	if err := wireHooks(manager, f); err != nil {
		return err
	}

	collector := metrics.NewCollector()

	dir := servercore.NewMemDirectory(buildMovieCatalog(f.movies))

	var tr servercore.Transport
	var start func(handler transport.FrameHandler) error
	var closeFn func() error

	switch f.transport {
	case "udp":
		dt, err := transport.NewDatagramTransport(f.listen, log.With("transport", "udp"))
		if err != nil {
			return fmt.Errorf("bind udp listener: %w", err)
		}
		dt.SetLossRate(f.lossPr)
		tr = dt
		start = func(handler transport.FrameHandler) error { dt.Start(handler); return nil }
		closeFn = dt.Close
	case "tcp":
		st := transport.NewStreamTransport(log.With("transport", "tcp"))
		tr = st
		start = func(handler transport.FrameHandler) error { return st.ListenAndServe(f.listen, handler) }
		closeFn = st.Close
	}

	server := servercore.NewServer(dir, tr,
		servercore.WithEventSink(manager),
		servercore.WithMetricsSink(collector),
		servercore.WithLogger(log),
	)

	if err := start(func(addr string, fr wire.Frame) { _ = server.HandleFrame(addr, fr) }); err != nil {
		return fmt.Errorf("start %s listener: %w", f.transport, err)
	}
	log.Info("server started", "listen", f.listen, "transport", f.transport, "version", version)

	var metricsSrv *http.Server
	if f.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Addr: f.metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", "error", err)
			}
		}()
		log.Info("metrics listening", "addr", f.metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
		if err := closeFn(); err != nil {
			log.Error("transport close error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
	return nil
}

// buildMovieCatalog turns repeatable --movie titles into a MOVIE_LIST
// catalog. The IP/port fields exist on the wire format for a media
// relay this chat layer never implements (spec.md §1); they are left
// zeroed.
func buildMovieCatalog(titles []string) []wire.Movie {
	movies := make([]wire.Movie, 0, len(titles))
	for i, title := range titles {
		movies = append(movies, wire.Movie{ID: uint8(i + 1), Title: title})
	}
	return movies
}

// wireHooks registers --hook-script and --hook-webhook assignments
// (event_type=target) against manager.
func wireHooks(manager *hooks.Manager, f *serveFlags) error {
	for _, assignment := range f.hookScripts {
		eventType, path, err := splitHookAssignment("hook-script", assignment)
		if err != nil {
			return err
		}
		if err := manager.RegisterHook(hooks.EventType(eventType), hooks.NewShellHook(eventType+":"+path, path, f.hookTimeout)); err != nil {
			return err
		}
	}
	for _, assignment := range f.hookWebhooks {
		eventType, url, err := splitHookAssignment("hook-webhook", assignment)
		if err != nil {
			return err
		}
		if err := manager.RegisterHook(hooks.EventType(eventType), hooks.NewWebhookHook(eventType+":"+url, url, f.hookTimeout)); err != nil {
			return err
		}
	}
	return nil
}

func splitHookAssignment(flagName, assignment string) (eventType, target string, err error) {
	parts := strings.SplitN(assignment, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid --%s %q: expected event_type=target", flagName, assignment)
	}
	return parts[0], parts[1], nil
}
