package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Compile-time assertion that WSChannel satisfies the Channel interface.
var _ Channel = (*WSChannel)(nil)

// WSChannel adapts a WebSocket connection to the [Channel] interface.
// Envelopes are sent as JSON text messages.
//
// A single mutex serialises writers so concurrently emitting tasks (Turn
// Engine, Heartbeat) cannot interleave frames; reads are expected from a
// single reader task and are not locked.
type WSChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewWSChannel wraps an accepted WebSocket connection.
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{conn: conn}
}

// Send implements [Channel.Send].
func (c *WSChannel) Send(ctx context.Context, e Envelope) error {
	data, err := e.Encode()
	if err != nil {
		return fmt.Errorf("protocol: encode %s envelope: %w", e.Kind, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("protocol: write %s envelope: %w", e.Kind, err)
	}
	return nil
}

// Receive implements [Channel.Receive].
func (c *WSChannel) Receive(ctx context.Context) (Envelope, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: read envelope: %w", err)
	}
	e, err := Decode(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	return e, nil
}

// Close implements [Channel.Close]. Only the first call performs the
// WebSocket close handshake; later calls return the first result.
func (c *WSChannel) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close(websocket.StatusCode(code), reason)
	})
	return c.closeErr
}
