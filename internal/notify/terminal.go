package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// TerminalChannel prints notifications to a writer, normally stdout.
type TerminalChannel struct {
	out     io.Writer
	enabled bool
}

// NewTerminalChannel creates a terminal notification channel.
func NewTerminalChannel(enabled bool) *TerminalChannel {
	return &TerminalChannel{out: os.Stdout, enabled: enabled}
}

// NewTerminalChannelWriter creates a terminal channel writing to out.
func NewTerminalChannelWriter(out io.Writer, enabled bool) *TerminalChannel {
	return &TerminalChannel{out: out, enabled: enabled}
}

// Name returns the channel name.
func (t *TerminalChannel) Name() string { return "terminal" }

// IsEnabled reports whether the channel is active.
func (t *TerminalChannel) IsEnabled() bool { return t.enabled }

// Notify prints the event.
func (t *TerminalChannel) Notify(_ context.Context, e Event) error {
	_, err := fmt.Fprintf(t.out, "[%s] %s: %s\n", e.Timestamp.Format("15:04:05"), e.Title, e.Message)
	return err
}
