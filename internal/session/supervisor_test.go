package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/internal/questionbank"
	sinkmock "github.com/voxhire/voxhire/internal/sink/mock"
	"github.com/voxhire/voxhire/pkg/protocol"
	chmock "github.com/voxhire/voxhire/pkg/protocol/mock"
	llmmock "github.com/voxhire/voxhire/pkg/provider/llm/mock"
	"github.com/voxhire/voxhire/pkg/provider/stt"
	sttmock "github.com/voxhire/voxhire/pkg/provider/stt/mock"
	ttsmock "github.com/voxhire/voxhire/pkg/provider/tts/mock"
)

// stubVerifier verifies every token as the configured user.
type stubVerifier struct {
	userID string
	err    error
}

func (v *stubVerifier) Verify(string) (string, error) { return v.userID, v.err }

// blockingSTT stalls every Listen until the session is cancelled, which keeps
// the engine mid-turn while tests exercise the supervisor's auxiliary tasks.
type blockingSTT struct{}

func (blockingSTT) Listen(ctx context.Context, _ stt.ListenConfig) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func testBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	bank, err := questionbank.LoadFromReader(strings.NewReader(
		"topics:\n  - name: Ownership\n    questions:\n      - Tell me about ownership.\n"))
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return bank
}

func newTestSupervisor(t *testing.T, deps Deps, cfg Config) *Supervisor {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Verifier == nil {
		deps.Verifier = &stubVerifier{userID: "candidate-7"}
	}
	if deps.Bank == nil {
		deps.Bank = testBank(t)
	}
	if deps.Memory == nil {
		deps.Memory = memory.NewStore(time.Hour)
	}
	if deps.Sink == nil {
		deps.Sink = &sinkmock.Sink{}
	}
	if deps.LLM == nil {
		deps.LLM = &llmmock.Provider{Responses: []string{"safe"}}
	}
	if deps.STT == nil {
		deps.STT = &sttmock.Provider{}
	}
	if deps.TTS == nil {
		deps.TTS = &ttsmock.Provider{}
	}
	if cfg.Audio.PlaybackTimeout == 0 {
		cfg.Audio.PlaybackTimeout = 50 * time.Millisecond
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = time.Second
	}
	return NewSupervisor(deps, cfg)
}

// ackChannel returns a mock channel that acknowledges playback of every
// audible envelope through the real inbound path.
func ackChannel() *chmock.Channel {
	ch := chmock.NewChannel()
	ch.OnSend = func(e protocol.Envelope) error {
		if e.HasAudio {
			ch.Deliver(protocol.Envelope{
				Kind:      protocol.KindPlaybackCompleted,
				MessageID: e.MessageID,
			})
		}
		return nil
	}
	return ch
}

func TestHandle_AuthFailure(t *testing.T) {
	t.Parallel()
	sup := newTestSupervisor(t, Deps{
		Verifier: &stubVerifier{err: errors.New("bad token")},
	}, Config{})
	ch := chmock.NewChannel()

	if err := sup.Handle(context.Background(), ch, "whatever"); err == nil {
		t.Fatal("expected auth error, got nil")
	}
	if ch.CloseCode != protocol.ClosePolicyViolation {
		t.Errorf("close code = %d, want policy violation", ch.CloseCode)
	}
	if len(ch.Sent()) != 0 {
		t.Errorf("sent %d envelopes before auth, want 0", len(ch.Sent()))
	}
}

func TestHandle_DuplicateUserRefused(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	if !registry.TryInsert("candidate-7") {
		t.Fatal("seed insert failed")
	}

	sup := newTestSupervisor(t, Deps{Registry: registry}, Config{})
	ch := chmock.NewChannel()

	if err := sup.Handle(context.Background(), ch, "token"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	sent := ch.Sent()
	if len(sent) != 1 || sent[0].Kind != protocol.KindTerminate || sent[0].Reason != reasonAlreadyActive {
		t.Fatalf("sent = %+v, want one terminate/already-active envelope", sent)
	}
	if ch.CloseCode != protocol.ClosePolicyViolation {
		t.Errorf("close code = %d, want policy violation", ch.CloseCode)
	}
	// The pre-existing slot must survive the refused attempt.
	if registry.Len() != 1 {
		t.Errorf("registry len = %d, want 1", registry.Len())
	}
}

func TestHandle_CompletedInterview(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	sk := &sinkmock.Sink{}
	sup := newTestSupervisor(t, Deps{
		Registry: registry,
		Sink:     sk,
		STT:      &sttmock.Provider{Transcripts: []string{"Hi.", "My answer."}},
	}, Config{
		Engine: interview.EngineConfig{MinTopics: 1},
	})
	ch := ackChannel()

	if err := sup.Handle(context.Background(), ch, "token"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var complete *protocol.Envelope
	for _, e := range ch.Sent() {
		if e.Kind == protocol.KindComplete {
			complete = &e
			break
		}
	}
	if complete == nil {
		t.Fatal("complete envelope never sent")
	}
	if len(sk.Records()) != 1 {
		t.Errorf("sunk records = %d, want 1", len(sk.Records()))
	}
	if registry.Len() != 0 {
		t.Errorf("registry len = %d after session, want 0", registry.Len())
	}
	if ch.CloseCode != protocol.CloseNormal {
		t.Errorf("close code = %d, want normal", ch.CloseCode)
	}
}

func TestHandle_EndSessionCancels(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	sup := newTestSupervisor(t, Deps{
		Registry: registry,
		STT:      blockingSTT{},
	}, Config{
		Engine: interview.EngineConfig{MinTopics: 1},
	})
	ch := ackChannel()
	ch.Deliver(protocol.Envelope{Kind: protocol.KindEndSession})

	if err := sup.Handle(context.Background(), ch, "token"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, e := range ch.Sent() {
		if e.Kind == protocol.KindComplete {
			t.Error("complete envelope sent for an ended session")
		}
	}
	if registry.Len() != 0 {
		t.Errorf("registry len = %d after session, want 0", registry.Len())
	}
}

func TestHandle_DisconnectCancels(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	sup := newTestSupervisor(t, Deps{
		Registry: registry,
		STT:      blockingSTT{},
	}, Config{
		Engine: interview.EngineConfig{MinTopics: 1},
	})
	ch := ackChannel()

	done := make(chan error, 1)
	go func() { done <- sup.Handle(context.Background(), ch, "token") }()

	// Let the session reach the intro listen, then drop the client.
	time.Sleep(100 * time.Millisecond)
	ch.Disconnect()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not unwind after disconnect")
	}
	if registry.Len() != 0 {
		t.Errorf("registry len = %d after disconnect, want 0", registry.Len())
	}
}

func TestHandle_HeartbeatFailureCancels(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	sup := newTestSupervisor(t, Deps{
		Registry: registry,
		STT:      blockingSTT{},
	}, Config{
		Engine:            interview.EngineConfig{MinTopics: 1},
		HeartbeatInterval: 10 * time.Millisecond,
	})

	ch := chmock.NewChannel()
	ch.OnSend = func(e protocol.Envelope) error {
		if e.HasAudio {
			ch.Deliver(protocol.Envelope{
				Kind:      protocol.KindPlaybackCompleted,
				MessageID: e.MessageID,
			})
		}
		if e.Kind == protocol.KindHeartbeat {
			return errors.New("broken pipe")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- sup.Handle(context.Background(), ch, "token") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not unwind after heartbeat failure")
	}
	if registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", registry.Len())
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if !r.TryInsert("a") {
		t.Fatal("first insert refused")
	}
	if r.TryInsert("a") {
		t.Fatal("duplicate insert accepted")
	}
	if !r.TryInsert("b") {
		t.Fatal("second user refused")
	}
	if r.Len() != 2 {
		t.Errorf("len = %d, want 2", r.Len())
	}

	r.Remove("a")
	if !r.TryInsert("a") {
		t.Fatal("re-insert after remove refused")
	}

	// Removing an absent user must not panic.
	r.Remove("ghost")
}
