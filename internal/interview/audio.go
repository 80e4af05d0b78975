// Package interview implements the live interview flow: the audio coordinator
// that drives the speak/listen handshake with the client, and the turn engine
// that walks topics, moderation, and follow-ups until the session ends.
package interview

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/pkg/protocol"
	"github.com/voxhire/voxhire/pkg/provider/stt"
	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// Defaults for the speak/listen handshake.
const (
	defaultPlaybackTimeout = 30 * time.Second
	defaultSilenceStop     = 3 * time.Second
	defaultListenMaxWait   = 60 * time.Second
	defaultListenAttempts  = 2

	// ttsFailurePause approximates reading time when audio synthesis failed
	// and the client only received text.
	ttsFailurePause = 2 * time.Second
)

// CoordinatorConfig tunes the audio coordinator timeouts. Zero values fall
// back to the package defaults.
type CoordinatorConfig struct {
	// PlaybackTimeout bounds the wait for a playback acknowledgement.
	PlaybackTimeout time.Duration

	// SilenceStop is the trailing-silence duration that ends an utterance.
	SilenceStop time.Duration

	// ListenMaxWait bounds a single listening attempt.
	ListenMaxWait time.Duration

	// ListenAttempts is how many capture attempts are made before the
	// coordinator gives up on a response.
	ListenAttempts int
}

func (c *CoordinatorConfig) applyDefaults() {
	if c.PlaybackTimeout <= 0 {
		c.PlaybackTimeout = defaultPlaybackTimeout
	}
	if c.SilenceStop <= 0 {
		c.SilenceStop = defaultSilenceStop
	}
	if c.ListenMaxWait <= 0 {
		c.ListenMaxWait = defaultListenMaxWait
	}
	if c.ListenAttempts <= 0 {
		c.ListenAttempts = defaultListenAttempts
	}
}

// Coordinator sequences spoken output and audio capture for one session.
//
// It owns the playback handshake: every utterance carries a message ID, and
// the client acknowledges playback of that ID before the coordinator moves
// on. The session supervisor must route inbound client envelopes to
// [Coordinator.OnClientMessage] for the handshake to settle.
type Coordinator struct {
	ch      protocol.Channel
	tts     tts.Provider
	stt     stt.Provider
	cfg     CoordinatorConfig
	logger  *slog.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	pending map[string]chan struct{}

	// pause is injectable for tests.
	pause func(ctx context.Context, d time.Duration) error
}

// NewCoordinator builds a Coordinator over the given channel and providers.
// A nil logger falls back to slog.Default.
func NewCoordinator(ch protocol.Channel, ttsp tts.Provider, sttp stt.Provider, cfg CoordinatorConfig, logger *slog.Logger) *Coordinator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		ch:      ch,
		tts:     ttsp,
		stt:     sttp,
		cfg:     cfg,
		logger:  logger,
		metrics: observe.DefaultMetrics(),
		pending: make(map[string]chan struct{}),
		pause:   sleep,
	}
}

// SpeakAndWait synthesises text, delivers it to the client, and blocks until
// the client acknowledges playback or the playback timeout elapses. A timeout
// is logged and treated as completion so a stuck client cannot hang the
// interview.
func (c *Coordinator) SpeakAndWait(ctx context.Context, text string, st protocol.SpeechType) error {
	return c.speak(ctx, protocol.KindSpeech, text, st)
}

// AskAndListen speaks the question, waits for its playback, then opens the
// microphone and captures the candidate's answer. It retries capture once
// with a spoken retry prompt; if nothing usable arrives it speaks a skip
// notice and returns an empty transcript.
func (c *Coordinator) AskAndListen(ctx context.Context, question string) (string, error) {
	if err := c.speak(ctx, protocol.KindQuestion, question, protocol.SpeechQuestion); err != nil {
		return "", err
	}
	return c.listen(ctx)
}

// ListenOnly re-opens the microphone without re-asking anything. Used after
// moderation notices where the question stays pending.
func (c *Coordinator) ListenOnly(ctx context.Context) (string, error) {
	return c.listen(ctx)
}

// OnClientMessage routes one inbound client envelope into the playback
// handshake. Unknown kinds and unmatched message IDs are ignored.
func (c *Coordinator) OnClientMessage(e protocol.Envelope) {
	switch e.Kind {
	case protocol.KindPlaybackCompleted:
	case protocol.KindPlaybackError:
		// A client that cannot play audio still saw the text; treat the
		// error as completion so the flow continues.
		c.logger.Warn("client playback error", "message_id", e.MessageID, "error", e.Error)
	default:
		return
	}

	c.mu.Lock()
	done, ok := c.pending[e.MessageID]
	if ok {
		delete(c.pending, e.MessageID)
	}
	c.mu.Unlock()
	if ok {
		close(done)
	}
}

func (c *Coordinator) speak(ctx context.Context, kind protocol.Kind, text string, st protocol.SpeechType) error {
	messageID := uuid.NewString()

	start := time.Now()
	audio, err := c.tts.Synthesize(ctx, text, speechKind(st))
	c.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("tts synthesis failed, sending text only", "speech_type", st, "error", err)
		if sendErr := c.send(ctx, protocol.Envelope{
			Kind:       kind,
			Text:       text,
			SpeechType: st,
			MessageID:  messageID,
			Error:      "audio synthesis failed",
		}); sendErr != nil {
			return sendErr
		}
		return c.pause(ctx, ttsFailurePause)
	}

	done := c.register(messageID)
	defer c.unregister(messageID)

	if err := c.send(ctx, protocol.Envelope{
		Kind:       kind,
		Text:       text,
		SpeechType: st,
		MessageID:  messageID,
		AudioData:  base64.StdEncoding.EncodeToString(audio),
		Format:     "mp3",
		HasAudio:   true,
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.PlaybackTimeout):
		c.logger.Warn("playback acknowledgement timed out, proceeding",
			"message_id", messageID, "timeout", c.cfg.PlaybackTimeout)
		return nil
	}
}

// listen runs the capture attempts, interleaving retry prompts, and reports
// the transcript. An empty transcript with a nil error means the candidate
// never produced usable speech.
func (c *Coordinator) listen(ctx context.Context) (string, error) {
	for attempt := 0; attempt < c.cfg.ListenAttempts; attempt++ {
		if attempt > 0 {
			if err := c.SpeakAndWait(ctx, phraseRetry, protocol.SpeechRetry); err != nil {
				return "", err
			}
		}

		if err := c.send(ctx, protocol.Envelope{Kind: protocol.KindStartListening}); err != nil {
			return "", err
		}

		start := time.Now()
		transcript, err := c.stt.Listen(ctx, stt.ListenConfig{
			SilenceStop: c.cfg.SilenceStop,
			MaxWait:     c.cfg.ListenMaxWait,
		})
		c.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("speech capture failed", "attempt", attempt+1, "error", err)
			continue
		}
		if transcript == "" {
			continue
		}

		if err := c.send(ctx, protocol.Envelope{Kind: protocol.KindAnswer, Text: transcript}); err != nil {
			return "", err
		}
		return transcript, nil
	}

	if err := c.SpeakAndWait(ctx, phraseSkip, protocol.SpeechSkip); err != nil {
		return "", err
	}
	return "", nil
}

func (c *Coordinator) send(ctx context.Context, e protocol.Envelope) error {
	if err := c.ch.Send(ctx, e); err != nil {
		return err
	}
	c.metrics.RecordEnvelope(ctx, string(e.Kind))
	return nil
}

func (c *Coordinator) register(messageID string) chan struct{} {
	done := make(chan struct{})
	c.mu.Lock()
	c.pending[messageID] = done
	c.mu.Unlock()
	return done
}

func (c *Coordinator) unregister(messageID string) {
	c.mu.Lock()
	delete(c.pending, messageID)
	c.mu.Unlock()
}

// speechKind maps the wire speech type onto the TTS provider vocabulary.
func speechKind(st protocol.SpeechType) tts.SpeechKind {
	switch st {
	case protocol.SpeechQuestion:
		return tts.KindQuestion
	case protocol.SpeechTransition:
		return tts.KindTransition
	case protocol.SpeechModeration:
		return tts.KindModeration
	case protocol.SpeechRetry:
		return tts.KindRetry
	case protocol.SpeechSkip:
		return tts.KindSkip
	case protocol.SpeechTermination:
		return tts.KindTermination
	case protocol.SpeechCompletion:
		return tts.KindCompletion
	default:
		return tts.KindSystem
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
