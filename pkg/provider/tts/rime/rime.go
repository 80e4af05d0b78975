// Package rime provides a TTS provider backed by the Rime streaming API.
//
// Rime's WebSocket endpoint takes a stream of text tokens terminated by an
// end-of-stream marker and answers with binary audio frames. One connection
// serves one utterance.
package rime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// endOfStream terminates the token stream for one utterance.
const endOfStream = "<EOS>"

// Default synthesis parameters.
const (
	defaultSpeaker     = "cove"
	defaultModelID     = "mistv2"
	defaultAudioFormat = "mp3"
	defaultDialTimeout = 10 * time.Second
)

// Provider implements tts.Provider against the Rime streaming API.
type Provider struct {
	baseURL     string
	apiKey      string
	speaker     string
	modelID     string
	audioFormat string
	dialTimeout time.Duration
}

// Compile-time assertion that Provider satisfies the tts.Provider interface.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*Provider)

// WithSpeaker selects the Rime voice. Default is "cove".
func WithSpeaker(speaker string) Option {
	return func(p *Provider) {
		p.speaker = speaker
	}
}

// WithModelID selects the Rime model. Default is "mistv2".
func WithModelID(modelID string) Option {
	return func(p *Provider) {
		p.modelID = modelID
	}
}

// WithAudioFormat selects the encoded output format. Default is "mp3".
func WithAudioFormat(format string) Option {
	return func(p *Provider) {
		p.audioFormat = format
	}
}

// WithDialTimeout bounds connection establishment. Default is 10 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.dialTimeout = d
	}
}

// New constructs a Rime TTS provider. baseURL is the WebSocket endpoint
// without query parameters, e.g. "wss://users.rime.ai/ws".
func New(baseURL, apiKey string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("rime: baseURL must not be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("rime: apiKey must not be empty")
	}

	p := &Provider{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		speaker:     defaultSpeaker,
		modelID:     defaultModelID,
		audioFormat: defaultAudioFormat,
		dialTimeout: defaultDialTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements tts.Provider. kind does not alter the voice; Rime
// delivery is controlled entirely by speaker and model.
func (p *Provider) Synthesize(ctx context.Context, text string, kind tts.SpeechKind) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("rime: text must not be empty")
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.endpointURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": {"Bearer " + p.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rime: dial: %w", err)
	}
	defer conn.CloseNow()

	// Larger utterances produce more audio frames than the 32 KiB default
	// read limit allows.
	conn.SetReadLimit(1 << 22)

	for _, token := range tokenize(text) {
		if err := conn.Write(ctx, websocket.MessageText, []byte(token)); err != nil {
			return nil, fmt.Errorf("rime: send token: %w", err)
		}
	}

	audio, err := p.receiveAudio(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("rime: no audio received for utterance")
	}
	return audio, nil
}

// receiveAudio collects binary frames until the server closes the connection.
func (p *Provider) receiveAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio []byte
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return audio, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("rime: read audio: %w", err)
		}
		if typ == websocket.MessageBinary {
			audio = append(audio, data...)
		}
	}
}

// endpointURL builds the connection URL with synthesis parameters.
func (p *Provider) endpointURL() string {
	q := url.Values{}
	q.Set("speaker", p.speaker)
	q.Set("modelId", p.modelID)
	q.Set("audioFormat", p.audioFormat)
	return p.baseURL + "?" + q.Encode()
}

// tokenize splits text into the word and space tokens Rime streams over, with
// the end-of-stream marker appended.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, 2*len(words))
	for i, w := range words {
		tokens = append(tokens, w)
		if i < len(words)-1 {
			tokens = append(tokens, " ")
		}
	}
	return append(tokens, endOfStream)
}
