package interview

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/followup"
	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/internal/moderation"
	"github.com/voxhire/voxhire/internal/questionbank"
	sinkmock "github.com/voxhire/voxhire/internal/sink/mock"
	"github.com/voxhire/voxhire/pkg/protocol"
	chmock "github.com/voxhire/voxhire/pkg/protocol/mock"
	llmmock "github.com/voxhire/voxhire/pkg/provider/llm/mock"
	sttmock "github.com/voxhire/voxhire/pkg/provider/stt/mock"
	ttsmock "github.com/voxhire/voxhire/pkg/provider/tts/mock"
)

const (
	testSessionID = "sess-1"
	testUserID    = "candidate-7"
)

// fixture bundles one engine run's mocks. The channel auto-acknowledges every
// audible envelope so the speak/listen handshake never stalls.
type fixture struct {
	ch     *chmock.Channel
	stt    *sttmock.Provider
	tts    *ttsmock.Provider
	modLLM *llmmock.Provider
	fupLLM *llmmock.Provider
	sink   *sinkmock.Sink
	store  *memory.Store
	engine *Engine
	ctx    context.Context
	cancel context.CancelFunc
}

// newFixture builds an engine over a bank with the given topics (one question
// each, so selection is deterministic per topic).
func newFixture(t *testing.T, cfg EngineConfig, topics []string) *fixture {
	t.Helper()

	var doc strings.Builder
	doc.WriteString("topics:\n")
	for _, topic := range topics {
		doc.WriteString("  - name: " + topic + "\n")
		doc.WriteString("    questions:\n")
		doc.WriteString("      - Tell me about " + topic + ".\n")
	}
	bank, err := questionbank.LoadFromReader(strings.NewReader(doc.String()))
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}

	f := &fixture{
		ch:     chmock.NewChannel(),
		stt:    &sttmock.Provider{},
		tts:    &ttsmock.Provider{},
		modLLM: &llmmock.Provider{},
		fupLLM: &llmmock.Provider{},
		sink:   &sinkmock.Sink{},
		store:  memory.NewStore(time.Hour),
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	t.Cleanup(f.cancel)

	audio := NewCoordinator(f.ch, f.tts, f.stt, CoordinatorConfig{
		PlaybackTimeout: 50 * time.Millisecond,
	}, nil)
	audio.pause = func(context.Context, time.Duration) error { return nil }
	f.ch.OnSend = func(e protocol.Envelope) error {
		if e.HasAudio {
			audio.OnClientMessage(protocol.Envelope{
				Kind:      protocol.KindPlaybackCompleted,
				MessageID: e.MessageID,
			})
		}
		return nil
	}

	f.engine = NewEngine(testSessionID, testUserID, cfg, EngineDeps{
		Channel:   f.ch,
		Audio:     audio,
		Selector:  questionbank.NewSelector(bank),
		Moderator: moderation.NewModerator(f.modLLM, nil),
		Followups: followup.NewAdapter(f.fupLLM, f.store, nil),
		Memory:    f.store,
		Sink:      f.sink,
		Cancel:    f.cancel,
	})
	return f
}

func TestEngineRun_HappyPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 1}, []string{"Ownership"})

	f.stt.Transcripts = []string{
		"Hi, I'm Sam.",          // introduction
		"I owned the rollback.", // main answer
		"We cut MTTR in half.",  // follow-up answer
	}
	f.modLLM.Responses = []string{"safe", "safe"}
	f.fupLLM.Responses = []string{"true", "What was the measurable impact?"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}

	records := f.sink.Records()
	if len(records) != 1 {
		t.Fatalf("sunk records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.SessionID != testSessionID || rec.UserID != testUserID || rec.Topic != "Ownership" {
		t.Errorf("record identity = %+v", rec)
	}
	if rec.MainQuestion.Answer != "I owned the rollback." {
		t.Errorf("main answer = %q", rec.MainQuestion.Answer)
	}
	if len(rec.Followups) != 1 || rec.Followups[0].Question != "What was the measurable impact?" {
		t.Errorf("followups = %+v", rec.Followups)
	}

	sent := f.ch.Sent()
	if sent[0].Kind != protocol.KindSystem || sent[0].SessionID != testSessionID || sent[0].Text != systemGreeting {
		t.Errorf("opening envelope = %+v", sent[0])
	}
	last := sent[len(sent)-1]
	if last.Kind != protocol.KindComplete || last.SessionID != testSessionID {
		t.Errorf("closing envelope = %+v", last)
	}
	if intro := findSpeech(sent, protocol.SpeechTransition); intro == nil || intro.Text != phraseIntroThanks {
		t.Errorf("intro transition = %+v, want thanks variant", intro)
	}
	if completion := findSpeech(sent, protocol.SpeechCompletion); completion == nil || completion.Text != phraseCompletion {
		t.Errorf("completion speech = %+v", completion)
	}

	if f.store.Has(testSessionID, "Ownership") {
		t.Error("session memory not cleaned up on completion")
	}
}

func TestEngineRun_SilentIntroUsesPlainTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 0}, []string{"Ownership"})

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}
	if intro := findSpeech(f.ch.Sent(), protocol.SpeechTransition); intro == nil || intro.Text != phraseIntroSilent {
		t.Errorf("intro transition = %+v, want silent variant", intro)
	}
	// min_topics = 0 completes right after the intro.
	if got := len(f.sink.Records()); got != 0 {
		t.Errorf("sunk records = %d, want 0", got)
	}
	if got := len(f.modLLM.Calls()); got != 0 {
		t.Errorf("moderation calls = %d, want 0", got)
	}
}

func TestEngineRun_FollowupDecisionFalseEndsTopic(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 2}, []string{"Ownership"})

	f.stt.Transcripts = []string{"Hi.", "My answer."}
	f.modLLM.Responses = []string{"safe"}
	f.fupLLM.Responses = []string{"false"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}

	records := f.sink.Records()
	if len(records) != 1 || len(records[0].Followups) != 0 {
		t.Fatalf("records = %+v, want one record without followups", records)
	}
	// Only the decision call; generation must not run after a false verdict.
	if got := len(f.fupLLM.Calls()); got != 1 {
		t.Errorf("follow-up LLM calls = %d, want 1", got)
	}
}

func TestEngineRun_MaxFollowupsZero(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 0}, []string{"Ownership"})

	f.stt.Transcripts = []string{"Hi.", "My answer."}
	f.modLLM.Responses = []string{"safe"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}
	records := f.sink.Records()
	if len(records) != 1 || len(records[0].Followups) != 0 {
		t.Fatalf("records = %+v, want one record without followups", records)
	}
	if got := len(f.fupLLM.Calls()); got != 0 {
		t.Errorf("follow-up LLM calls = %d, want 0", got)
	}
}

func TestEngineRun_ModerationBranches(t *testing.T) {
	t.Parallel()

	t.Run("repeat re-asks the question", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 0}, []string{"Ownership"})

		f.stt.Transcripts = []string{"Hi.", "Could you repeat that?", "Real answer."}
		f.modLLM.Responses = []string{"repeat", "safe"}

		if _, err := f.engine.Run(f.ctx); err != nil {
			t.Fatalf("Run: %v", err)
		}

		questions := 0
		for _, e := range f.ch.Sent() {
			if e.Kind == protocol.KindQuestion && e.Text != phraseIntro {
				questions++
			}
		}
		if questions != 2 {
			t.Errorf("main question asked %d times, want 2 (original + repeat)", questions)
		}
		if notice := findSpeech(f.ch.Sent(), protocol.SpeechModeration); notice == nil || notice.Text != phraseRepeat {
			t.Errorf("moderation notice = %+v, want repeat confirmation", notice)
		}
	})

	t.Run("off_topic re-listens without re-asking", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 0}, []string{"Ownership"})

		f.stt.Transcripts = []string{"Hi.", "What's the weather like?", "Real answer."}
		f.modLLM.Responses = []string{"off_topic", "safe"}

		if _, err := f.engine.Run(f.ctx); err != nil {
			t.Fatalf("Run: %v", err)
		}

		questions := 0
		for _, e := range f.ch.Sent() {
			if e.Kind == protocol.KindQuestion && e.Text != phraseIntro {
				questions++
			}
		}
		if questions != 1 {
			t.Errorf("main question asked %d times, want 1 (no re-ask)", questions)
		}
		if notice := findSpeech(f.ch.Sent(), protocol.SpeechModeration); notice == nil || notice.Text != phraseOffTopic {
			t.Errorf("moderation notice = %+v, want off-topic nudge", notice)
		}
		if rec := f.sink.Records(); len(rec) != 1 || rec[0].MainQuestion.Answer != "Real answer." {
			t.Errorf("records = %+v, want the second reply accepted", rec)
		}
	})

	t.Run("thinking grants time without re-asking", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 0}, []string{"Ownership"})

		f.stt.Transcripts = []string{"Hi.", "Give me a moment.", "Real answer."}
		f.modLLM.Responses = []string{"thinking", "safe"}

		if _, err := f.engine.Run(f.ctx); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if notice := findSpeech(f.ch.Sent(), protocol.SpeechModeration); notice == nil || notice.Text != phraseThinking {
			t.Errorf("moderation notice = %+v, want thinking grant", notice)
		}
	})
}

func TestEngineRun_AbusiveTerminates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 2}, []string{"Ownership"})

	f.stt.Transcripts = []string{"Hi.", "You are an idiot."}
	f.modLLM.Responses = []string{"abusive"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusTerminated {
		t.Errorf("status = %q, want terminated", status)
	}

	sent := f.ch.Sent()
	if notice := findSpeech(sent, protocol.SpeechTermination); notice == nil || notice.Text != phraseTermination {
		t.Errorf("termination speech = %+v", notice)
	}
	last := sent[len(sent)-1]
	if last.Kind != protocol.KindTerminate || last.Reason != terminateReasonInappropriate {
		t.Errorf("closing envelope = %+v, want terminate/inappropriate", last)
	}
	if f.ctx.Err() == nil {
		t.Error("session cancellation signal not set")
	}
	if got := len(f.sink.Records()); got != 0 {
		t.Errorf("sunk records = %d, want 0", got)
	}
}

func TestEngineRun_SilentCandidateSkipsTopic(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 2}, []string{"Ownership"})

	// Intro reply, then silence for every listen attempt.
	f.stt.Transcripts = []string{"Hi.", ""}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The only topic is skipped, the bank runs dry, the session completes.
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}
	if got := len(f.sink.Records()); got != 0 {
		t.Errorf("sunk records = %d, want 0", got)
	}
	if got := len(f.modLLM.Calls()); got != 0 {
		t.Errorf("moderation calls = %d, want 0 for a silent candidate", got)
	}
}

func TestEngineRun_TransitionBetweenTopics(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 2, MaxFollowups: 0}, []string{"Ownership", "Bias for Action"})

	f.stt.Transcripts = []string{"Hi.", "Answer one.", "Answer two."}
	f.modLLM.Responses = []string{"safe", "safe"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed", status)
	}

	records := f.sink.Records()
	if len(records) != 2 {
		t.Fatalf("sunk records = %d, want 2", len(records))
	}
	if records[0].Topic == records[1].Topic {
		t.Errorf("both records cover %q, want distinct topics", records[0].Topic)
	}

	transitions := 0
	for _, e := range f.ch.Sent() {
		if e.Kind == protocol.KindSpeech && e.SpeechType == protocol.SpeechTransition && e.Text == phraseTransition {
			transitions++
		}
	}
	if transitions != 1 {
		t.Errorf("topic transitions spoken = %d, want 1", transitions)
	}
}

func TestEngineRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1}, []string{"Ownership"})
	f.cancel()

	if _, err := f.engine.Run(f.ctx); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if got := len(f.sink.Records()); got != 0 {
		t.Errorf("sunk records = %d, want 0", got)
	}
}

func TestEngineRun_SinkFailureDoesNotAbort(t *testing.T) {
	t.Parallel()
	f := newFixture(t, EngineConfig{MinTopics: 1, MaxFollowups: 0}, []string{"Ownership"})

	f.sink.Err = context.DeadlineExceeded
	f.stt.Transcripts = []string{"Hi.", "My answer."}
	f.modLLM.Responses = []string{"safe"}

	status, err := f.engine.Run(f.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %q, want completed despite sink outage", status)
	}
}
