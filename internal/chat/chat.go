package chat

import "context"

// Message is one inbound text message from the user
type Message struct {
	Text string
}

// Conversation is a bidirectional text channel to a single user. The
// core only needs to send text and consume the inbound message stream;
// nothing protocol-specific leaks through this interface.
type Conversation interface {
	// Send delivers a text message to the user
	Send(ctx context.Context, text string) error

	// Updates returns the stream of inbound messages
	Updates() <-chan Message
}
