package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Console is a Conversation over stdin/stdout for local use
type Console struct {
	w       io.Writer
	r       io.Reader
	updates chan Message
}

// NewConsole creates a Console reading from r and writing to w
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{
		w:       w,
		r:       r,
		updates: make(chan Message, 16),
	}
}

// Send writes a message to the console
func (c *Console) Send(_ context.Context, text string) error {
	if _, err := fmt.Fprintln(c.w, text); err != nil {
		return fmt.Errorf("writing to console: %w", err)
	}
	return nil
}

// Updates returns the stream of inbound lines
func (c *Console) Updates() <-chan Message {
	return c.updates
}

// Run reads lines until the reader is exhausted or ctx is cancelled,
// publishing each non-empty line as a Message. It closes the update
// stream on return.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.updates)

	scanner := bufio.NewScanner(c.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case c.updates <- Message{Text: line}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading console input: %w", err)
	}
	return nil
}
