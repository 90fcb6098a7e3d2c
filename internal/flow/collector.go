package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mjaros/paragon-bot/internal/chat"
)

var (
	// ErrTimeout is returned by Await when the timeout elapses first
	ErrTimeout = errors.New("timed out waiting for answer")

	// ErrTurnsExceeded is returned by AwaitValid when the turn budget
	// is spent without a valid answer
	ErrTurnsExceeded = errors.New("answer turn budget exceeded")

	// ErrChannelClosed is returned when the inbound stream ends
	ErrChannelClosed = errors.New("conversation channel closed")
)

// Collector pulls user answers for one receipt flow from the session
// inbox. Messages failing the filter are consumed and dropped, which
// keeps unrelated chatter from leaking into later waits.
type Collector struct {
	conv  chat.Conversation
	inbox <-chan chat.Message
}

// NewCollector creates a Collector reading from inbox and prompting
// over conv
func NewCollector(conv chat.Conversation, inbox <-chan chat.Message) *Collector {
	return &Collector{
		conv:  conv,
		inbox: inbox,
	}
}

// Await blocks until the next inbound message passes filter, the
// timeout elapses, or ctx is cancelled. A nil filter accepts any
// message; a timeout <= 0 waits indefinitely.
func (c *Collector) Await(ctx context.Context, filter func(string) bool, timeout time.Duration) (string, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case msg, ok := <-c.inbox:
			if !ok {
				return "", ErrChannelClosed
			}
			if filter == nil || filter(msg.Text) {
				return msg.Text, nil
			}
		case <-deadline:
			return "", ErrTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// AwaitValid sends prompt and loops until an answer passes validator,
// silently ignoring invalid answers. maxTurns bounds how many answers
// are consumed before giving up with ErrTurnsExceeded; it must be
// positive.
func (c *Collector) AwaitValid(ctx context.Context, prompt string, validator func(string) bool, maxTurns int) (string, error) {
	if maxTurns <= 0 {
		return "", fmt.Errorf("maxTurns must be positive, got %d", maxTurns)
	}

	if err := c.conv.Send(ctx, prompt); err != nil {
		return "", fmt.Errorf("sending prompt: %w", err)
	}

	for turn := 0; turn < maxTurns; turn++ {
		answer, err := c.Await(ctx, nil, 0)
		if err != nil {
			return "", err
		}
		if validator == nil || validator(answer) {
			return answer, nil
		}
	}
	return "", ErrTurnsExceeded
}
