// Package gateway provides an STT provider that delegates utterance capture to
// a remote transcription gateway over WebSocket.
//
// The gateway owns the microphone and the upstream speech engine; this client
// only negotiates the capture parameters and waits for the transcript. The
// wire protocol is JSON text frames:
//
//	client -> gateway  {"stop_duration": 3, "max_wait": 60}
//	client -> gateway  {"command": "cancel"}
//	gateway -> client  {"type": "done", "text": "..."}
//	gateway -> client  {"type": "cancelled", "text": "..."}
//	gateway -> client  {"type": "error", "message": "..."}
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/voxhire/voxhire/pkg/provider/stt"
)

// Provider implements stt.Provider against a transcription gateway.
type Provider struct {
	url         string
	dialTimeout time.Duration
}

// Compile-time assertion that Provider satisfies the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*Provider)

// WithDialTimeout bounds how long a Listen call may spend establishing the
// WebSocket connection. Default is 10 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.dialTimeout = d
	}
}

// New constructs a gateway-backed STT provider. url is the WebSocket endpoint
// of the gateway, e.g. "ws://localhost:8001/ws/transcribe".
func New(url string, opts ...Option) (*Provider, error) {
	if url == "" {
		return nil, fmt.Errorf("gateway: url must not be empty")
	}
	p := &Provider{
		url:         url,
		dialTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// listenRequest is the capture configuration sent on connect.
type listenRequest struct {
	StopDuration int `json:"stop_duration"`
	MaxWait      int `json:"max_wait"`
}

// command is a control frame sent mid-capture.
type command struct {
	Command string `json:"command"`
}

// result is any frame the gateway sends back.
type result struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Listen implements stt.Provider. It opens a fresh connection per call; the
// gateway treats each connection as one capture.
func (p *Provider) Listen(ctx context.Context, cfg stt.ListenConfig) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("gateway: dial %s: %w", p.url, err)
	}
	defer conn.CloseNow()

	req := listenRequest{
		StopDuration: int(cfg.SilenceStop.Seconds()),
		MaxWait:      int(cfg.MaxWait.Seconds()),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("gateway: marshal config: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return "", fmt.Errorf("gateway: send config: %w", err)
	}

	// Read with a detached context so a cancelled ctx can still be turned
	// into a polite cancel command instead of an abrupt connection drop.
	readCtx, stopRead := context.WithCancel(context.Background())
	defer stopRead()

	type readOutcome struct {
		res result
		err error
	}
	outcome := make(chan readOutcome, 1)
	go func() {
		for {
			_, msg, err := conn.Read(readCtx)
			if err != nil {
				outcome <- readOutcome{err: err}
				return
			}
			var res result
			if err := json.Unmarshal(msg, &res); err != nil {
				outcome <- readOutcome{err: fmt.Errorf("decode frame: %w", err)}
				return
			}
			outcome <- readOutcome{res: res}
			return
		}
	}()

	select {
	case <-ctx.Done():
		// Ask the gateway to stop recording, then wait briefly for the
		// cancellation acknowledgement so the capture shuts down clean.
		cancelMsg, _ := json.Marshal(command{Command: "cancel"})
		writeCtx, cancelWrite := context.WithTimeout(context.Background(), 2*time.Second)
		_ = conn.Write(writeCtx, websocket.MessageText, cancelMsg)
		cancelWrite()

		select {
		case <-outcome:
		case <-time.After(2 * time.Second):
		}
		conn.Close(websocket.StatusNormalClosure, "listen cancelled")
		return "", ctx.Err()

	case out := <-outcome:
		if out.err != nil {
			return "", fmt.Errorf("gateway: read result: %w", out.err)
		}
		conn.Close(websocket.StatusNormalClosure, "listen complete")

		switch out.res.Type {
		case "done":
			return out.res.Text, nil
		case "cancelled":
			return "", nil
		case "error":
			return "", fmt.Errorf("gateway: transcription failed: %s", out.res.Message)
		default:
			return "", fmt.Errorf("gateway: unexpected frame type %q", out.res.Type)
		}
	}
}
