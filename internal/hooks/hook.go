package hooks

import "context"

// Hook is a handler executed when a registered Event occurs.
type Hook interface {
	Execute(ctx context.Context, event Event) error
	Type() string
	ID() string
}

// Config configures a Manager.
type Config struct {
	// Timeout is a hook execution timeout in time.Duration syntax
	// (default: 30s). NewManager only validates it; each Hook applies the
	// timeout it was constructed with.
	Timeout string `json:"timeout"`
	// Concurrency caps simultaneous hook executions (default: 10).
	Concurrency int `json:"concurrency"`
	// StdioFormat enables structured stdio output: "json", "env", or "".
	StdioFormat string `json:"stdio_format"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: "30s", Concurrency: 10, StdioFormat: ""}
}
