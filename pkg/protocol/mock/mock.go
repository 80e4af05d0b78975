// Package mock provides a test double for the protocol.Channel interface.
//
// Use Channel to record every envelope the server emits and to feed scripted
// client envelopes to the session under test without a real WebSocket.
//
// Example:
//
//	ch := mock.NewChannel()
//	ch.OnSend = func(e protocol.Envelope) error {
//	    if e.MessageID != "" {
//	        ch.Deliver(protocol.Envelope{Kind: protocol.KindPlaybackCompleted, MessageID: e.MessageID})
//	    }
//	    return nil
//	}
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/voxhire/voxhire/pkg/protocol"
)

// ErrClosed is returned by Send and Receive after the channel is closed.
var ErrClosed = errors.New("mock channel closed")

// Compile-time assertion that Channel satisfies the protocol.Channel interface.
var _ protocol.Channel = (*Channel)(nil)

// Channel is a scripted, in-memory implementation of protocol.Channel.
// All methods are safe for concurrent use.
type Channel struct {
	mu   sync.Mutex
	sent []protocol.Envelope

	incoming chan protocol.Envelope
	closed   chan struct{}
	once     sync.Once

	// CloseCode and CloseReason record the arguments of the first Close call.
	CloseCode   protocol.CloseCode
	CloseReason string

	// OnSend, if non-nil, is invoked for every Send after the envelope is
	// recorded. Returning a non-nil error makes Send fail, which lets tests
	// simulate a dead transport mid-session.
	OnSend func(e protocol.Envelope) error
}

// NewChannel returns a ready-to-use mock channel with a buffered inbox.
func NewChannel() *Channel {
	return &Channel{
		incoming: make(chan protocol.Envelope, 64),
		closed:   make(chan struct{}),
	}
}

// Send implements [protocol.Channel.Send].
func (c *Channel) Send(ctx context.Context, e protocol.Envelope) error {
	select {
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.mu.Lock()
	c.sent = append(c.sent, e)
	hook := c.OnSend
	c.mu.Unlock()

	if hook != nil {
		return hook(e)
	}
	return nil
}

// Receive implements [protocol.Channel.Receive].
func (c *Channel) Receive(ctx context.Context) (protocol.Envelope, error) {
	select {
	case e := <-c.incoming:
		return e, nil
	case <-c.closed:
		return protocol.Envelope{}, ErrClosed
	case <-ctx.Done():
		return protocol.Envelope{}, ctx.Err()
	}
}

// Close implements [protocol.Channel.Close].
func (c *Channel) Close(code protocol.CloseCode, reason string) error {
	c.once.Do(func() {
		c.CloseCode = code
		c.CloseReason = reason
		close(c.closed)
	})
	return nil
}

// Deliver queues an envelope as if the client had sent it.
// It is a no-op after the channel is closed.
func (c *Channel) Deliver(e protocol.Envelope) {
	select {
	case <-c.closed:
	case c.incoming <- e:
	}
}

// Disconnect simulates the client dropping the transport: subsequent Send and
// Receive calls fail with ErrClosed.
func (c *Channel) Disconnect() {
	c.once.Do(func() { close(c.closed) })
}

// Sent returns a copy of all envelopes emitted so far, in order.
func (c *Channel) Sent() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

// SentKinds returns just the ordered kinds of all emitted envelopes, which
// keeps sequence assertions in tests readable.
func (c *Channel) SentKinds() []protocol.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]protocol.Kind, len(c.sent))
	for i, e := range c.sent {
		kinds[i] = e.Kind
	}
	return kinds
}
