package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StdioHook writes structured event output to stderr, in "json" or "env"
// format, for shell-script integrations that tail the server's output.
type StdioHook struct {
	id     string
	format string
	output *os.File
}

// NewStdioHook constructs a StdioHook writing to stderr by default.
func NewStdioHook(id, format string) *StdioHook {
	return &StdioHook{id: id, format: format, output: os.Stderr}
}

func (h *StdioHook) Execute(ctx context.Context, event Event) error {
	switch h.format {
	case "json":
		return h.outputJSON(event)
	case "env":
		return h.outputEnv(event)
	default:
		return fmt.Errorf("stdio hook %s: unsupported format: %s", h.id, h.format)
	}
}

func (h *StdioHook) Type() string { return "stdio" }
func (h *StdioHook) ID() string   { return h.id }

func (h *StdioHook) outputJSON(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("stdio hook %s: marshal: %w", h.id, err)
	}
	_, err = fmt.Fprintf(h.output, "C2W_EVENT: %s\n", data)
	return err
}

func (h *StdioHook) outputEnv(event Event) error {
	lines := []string{
		"# c2w event: " + string(event.Type),
		fmt.Sprintf("C2W_EVENT_TYPE=%s", event.Type),
		fmt.Sprintf("C2W_TIMESTAMP=%d", event.Timestamp),
	}
	if event.Address != "" {
		lines = append(lines, "C2W_ADDRESS="+event.Address)
	}
	if event.Username != "" {
		lines = append(lines, "C2W_USERNAME="+event.Username)
	}
	for key, value := range event.Data {
		lines = append(lines, "C2W_"+strings.ToUpper(key)+"="+fmt.Sprintf("%v", value))
	}
	lines = append(lines, "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(h.output, line); err != nil {
			return fmt.Errorf("stdio hook %s: write: %w", h.id, err)
		}
	}
	return nil
}
