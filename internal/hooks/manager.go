package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager registers hooks per EventType and fans out triggered events to
// them concurrently, bounded by a worker pool. Satisfies
// servercore.EventSink via Emit.
type Manager struct {
	hooks     map[EventType][]Hook
	stdioHook *StdioHook
	mu        sync.RWMutex
	pool      *executionPool
	log       *slog.Logger
	config    Config
}

// NewManager constructs a Manager from config.
func NewManager(config Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if _, err := time.ParseDuration(config.Timeout); err != nil {
		log.Warn("hooks: invalid timeout, using default", "timeout", config.Timeout, "error", err)
	}

	m := &Manager{
		hooks: make(map[EventType][]Hook),
		log:   log,
		config: config,
		pool:  newExecutionPool(config.Concurrency, log),
	}
	if config.StdioFormat != "" {
		_ = m.EnableStdioOutput(config.StdioFormat)
	}
	return m
}

// RegisterHook attaches hook to eventType.
func (m *Manager) RegisterHook(eventType EventType, hook Hook) error {
	if hook == nil {
		return fmt.Errorf("hooks: cannot register nil hook")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[eventType] = append(m.hooks[eventType], hook)
	m.log.Info("hooks: registered", "event_type", eventType, "hook_type", hook.Type(), "hook_id", hook.ID())
	return nil
}

// UnregisterHook removes a hook by ID from eventType, reporting whether it
// was found.
func (m *Manager) UnregisterHook(eventType EventType, hookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.hooks[eventType]
	for i, h := range list {
		if h.ID() == hookID {
			m.hooks[eventType] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Emit builds an Event and triggers it — the servercore.EventSink entrypoint.
func (m *Manager) Emit(eventType, address, username string, fields map[string]any) {
	event := NewEvent(EventType(eventType)).WithAddress(address).WithUsername(username)
	for k, v := range fields {
		event.WithData(k, v)
	}
	m.TriggerEvent(context.Background(), *event)
}

// TriggerEvent runs every hook registered for event.Type asynchronously.
func (m *Manager) TriggerEvent(ctx context.Context, event Event) {
	if m == nil {
		return
	}
	m.mu.RLock()
	list := make([]Hook, len(m.hooks[event.Type]))
	copy(list, m.hooks[event.Type])
	stdio := m.stdioHook
	m.mu.RUnlock()

	if stdio != nil {
		list = append(list, stdio)
	}
	if len(list) == 0 {
		return
	}

	m.log.Debug("hooks: triggering", "event_type", event.Type, "hook_count", len(list), "event", event.String())
	for _, h := range list {
		m.pool.execute(ctx, h, event)
	}
}

// EnableStdioOutput turns on structured stdout/stderr output in format
// ("json" or "env").
func (m *Manager) EnableStdioOutput(format string) error {
	if format != "json" && format != "env" {
		return fmt.Errorf("hooks: unsupported stdio format: %s", format)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stdioHook = NewStdioHook("stdio", format)
	return nil
}

// DisableStdioOutput turns off structured output.
func (m *Manager) DisableStdioOutput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stdioHook = nil
}

// Close drains the worker pool.
func (m *Manager) Close() error {
	if m.pool != nil {
		m.pool.close()
	}
	return nil
}

// executionPool bounds concurrent hook execution via a buffered semaphore
// channel, mirroring the teacher's hook execution pool exactly.
type executionPool struct {
	workers chan struct{}
	size    int
	active  int
	mu      sync.Mutex
	log     *slog.Logger
}

func newExecutionPool(size int, log *slog.Logger) *executionPool {
	if size <= 0 {
		size = 10
	}
	return &executionPool{workers: make(chan struct{}, size), size: size, log: log}
}

func (ep *executionPool) execute(ctx context.Context, hook Hook, event Event) {
	go func() {
		ep.workers <- struct{}{}
		defer func() { <-ep.workers }()

		ep.mu.Lock()
		ep.active++
		ep.mu.Unlock()
		defer func() {
			ep.mu.Lock()
			ep.active--
			ep.mu.Unlock()
		}()

		start := time.Now()
		err := hook.Execute(ctx, event)
		duration := time.Since(start)
		if err != nil {
			ep.log.Error("hooks: execution failed", "hook_type", hook.Type(), "hook_id", hook.ID(),
				"event_type", event.Type, "duration_ms", duration.Milliseconds(), "error", err)
			return
		}
		ep.log.Debug("hooks: executed", "hook_type", hook.Type(), "hook_id", hook.ID(),
			"event_type", event.Type, "duration_ms", duration.Milliseconds())
	}()
}

func (ep *executionPool) close() {
	for i := 0; i < cap(ep.workers); i++ {
		ep.workers <- struct{}{}
	}
}
