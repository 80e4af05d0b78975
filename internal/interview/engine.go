package interview

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxhire/voxhire/internal/followup"
	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/internal/moderation"
	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/internal/questionbank"
	"github.com/voxhire/voxhire/internal/sink"
	"github.com/voxhire/voxhire/pkg/protocol"
)

// Status is the outcome of a finished interview.
type Status string

const (
	// StatusCompleted means the interview reached its normal end.
	StatusCompleted Status = "completed"

	// StatusTerminated means moderation ended the interview early.
	StatusTerminated Status = "terminated"
)

// systemGreeting opens every session.
const systemGreeting = "Interview started!"

// EngineConfig bounds one interview run.
type EngineConfig struct {
	// Duration is the total interview time budget.
	Duration time.Duration

	// MinTopics is the floor of topics to cover before the session may
	// complete. Zero completes right after the introduction.
	MinTopics int

	// MaxFollowups caps follow-up questions per topic. Zero disables
	// follow-ups entirely.
	MaxFollowups int
}

// EngineDeps collects the collaborators an Engine needs. All fields except
// Logger are required.
type EngineDeps struct {
	Channel   protocol.Channel
	Audio     *Coordinator
	Selector  *questionbank.Selector
	Moderator *moderation.Moderator
	Followups *followup.Adapter
	Memory    *memory.Store
	Sink      sink.Sink

	// Cancel sets the session-wide cancellation signal. The engine invokes
	// it when moderation terminates the interview so the supervisor's other
	// tasks unwind too.
	Cancel context.CancelFunc

	Logger *slog.Logger
}

// Engine drives one interview: introduction, topic loop with moderation and
// follow-ups, and completion. It runs on a single task inside the session
// supervisor's group.
type Engine struct {
	sessionID string
	userID    string
	cfg       EngineConfig

	ch        protocol.Channel
	audio     *Coordinator
	selector  *questionbank.Selector
	moderator *moderation.Moderator
	followups *followup.Adapter
	store     *memory.Store
	sink      sink.Sink
	cancel    context.CancelFunc
	logger    *slog.Logger
	metrics   *observe.Metrics

	started time.Time
}

// NewEngine builds an Engine for one session. A nil deps.Logger falls back to
// slog.Default; a zero cfg.Duration falls back to 30 minutes.
func NewEngine(sessionID, userID string, cfg EngineConfig, deps EngineDeps) *Engine {
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessionID: sessionID,
		userID:    userID,
		cfg:       cfg,
		ch:        deps.Channel,
		audio:     deps.Audio,
		selector:  deps.Selector,
		moderator: deps.Moderator,
		followups: deps.Followups,
		store:     deps.Memory,
		sink:      deps.Sink,
		cancel:    deps.Cancel,
		logger:    logger.With("session_id", sessionID),
		metrics:   observe.DefaultMetrics(),
	}
}

// Run executes the interview until completion, moderation termination, or
// cancellation. A non-nil error reports a broken transport or a cancelled
// context; the caller decides the final session status in those cases.
func (e *Engine) Run(ctx context.Context) (Status, error) {
	e.started = time.Now()

	if err := e.send(ctx, protocol.Envelope{
		Kind:      protocol.KindSystem,
		Text:      systemGreeting,
		SessionID: e.sessionID,
	}); err != nil {
		return "", err
	}

	if err := e.runIntro(ctx); err != nil {
		return "", err
	}

	covered := 0
	for e.timeRemaining() > 0 && covered < e.cfg.MinTopics && ctx.Err() == nil {
		topic, ok := e.selector.PickNewTopic()
		if !ok {
			e.logger.Info("question bank exhausted", "topics_covered", covered)
			break
		}
		question, ok := e.selector.PickQuestion(topic)
		if !ok {
			e.logger.Warn("topic without questions, skipping", "topic", topic)
			continue
		}

		e.logger.Info("asking main question", "topic", topic)
		answer, terminated, err := e.askWithModeration(ctx, question)
		if err != nil {
			return "", err
		}
		if terminated {
			return StatusTerminated, nil
		}
		if answer == "" {
			e.logger.Info("no usable answer, skipping topic", "topic", topic)
			continue
		}

		followups, terminated, err := e.handleFollowups(ctx, topic, question, answer)
		if err != nil {
			return "", err
		}
		if terminated {
			return StatusTerminated, nil
		}

		if ctx.Err() == nil {
			rec := sink.TurnRecord{
				SessionID:    e.sessionID,
				UserID:       e.userID,
				Topic:        topic,
				MainQuestion: sink.QA{Question: question, Answer: answer},
				Followups:    followups,
				Timestamp:    time.Now().UTC(),
			}
			if err := e.sink.Append(ctx, rec); err != nil {
				e.logger.Warn("turn record not persisted", "topic", topic, "error", err)
			}
			covered++
			e.metrics.TopicsCovered.Add(ctx, 1)
		}

		if e.timeRemaining() > 0 && covered < e.cfg.MinTopics {
			if err := e.audio.SpeakAndWait(ctx, phraseTransition, protocol.SpeechTransition); err != nil {
				return "", err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := e.audio.SpeakAndWait(ctx, phraseCompletion, protocol.SpeechCompletion); err != nil {
		return "", err
	}
	if err := e.send(ctx, protocol.Envelope{
		Kind:      protocol.KindComplete,
		SessionID: e.sessionID,
	}); err != nil {
		return "", err
	}

	e.store.CleanupSession(e.sessionID)
	e.logger.Info("interview completed", "topics_covered", covered)
	return StatusCompleted, nil
}

// runIntro greets the candidate and lets them introduce themselves. Only the
// presence of a reply matters; its content is discarded.
func (e *Engine) runIntro(ctx context.Context) error {
	answer, err := e.audio.AskAndListen(ctx, phraseIntro)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	transition := phraseIntroSilent
	if answer != "" {
		transition = phraseIntroThanks
	}
	return e.audio.SpeakAndWait(ctx, transition, protocol.SpeechTransition)
}

// askWithModeration asks the question and loops over the candidate's replies
// until one is safe, the candidate falls silent, or moderation terminates the
// session. Re-asks the question only after a repeat request; all other
// moderation notices re-open the microphone without repeating.
func (e *Engine) askWithModeration(ctx context.Context, question string) (answer string, terminated bool, err error) {
	answer, err = e.audio.AskAndListen(ctx, question)
	for {
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			return "", false, err
		}
		if answer == "" {
			return "", false, nil
		}

		label := e.classify(ctx, question, answer)
		switch label {
		case moderation.LabelSafe:
			return answer, false, nil

		case moderation.LabelAbusive, moderation.LabelMalicious:
			e.logger.Warn("terminating interview", "label", label)
			if err := e.terminate(ctx); err != nil {
				return "", false, err
			}
			return "", true, nil

		case moderation.LabelRepeat:
			if err = e.audio.SpeakAndWait(ctx, phraseRepeat, protocol.SpeechModeration); err == nil {
				answer, err = e.audio.AskAndListen(ctx, question)
			}

		case moderation.LabelOffTopic:
			if err = e.audio.SpeakAndWait(ctx, phraseOffTopic, protocol.SpeechModeration); err == nil {
				answer, err = e.audio.ListenOnly(ctx)
			}

		case moderation.LabelChange:
			if err = e.audio.SpeakAndWait(ctx, phraseChange, protocol.SpeechModeration); err == nil {
				answer, err = e.audio.ListenOnly(ctx)
			}

		case moderation.LabelThinking:
			if err = e.audio.SpeakAndWait(ctx, phraseThinking, protocol.SpeechModeration); err == nil {
				answer, err = e.audio.ListenOnly(ctx)
			}

		default:
			return answer, false, nil
		}
	}
}

// handleFollowups runs the follow-up loop for one topic. The decision model
// gates every follow-up; a negative decision ends the topic. An empty answer
// abandons the topic since the skip notice has already been spoken.
func (e *Engine) handleFollowups(ctx context.Context, topic, mainQ, mainA string) ([]sink.QA, bool, error) {
	var followups []sink.QA
	currentQ, currentA := mainQ, mainA

	for len(followups) < e.cfg.MaxFollowups && e.timeRemaining() > 0 && ctx.Err() == nil {
		ex := followup.Exchange{
			SessionID: e.sessionID,
			Topic:     topic,
			Question:  currentQ,
			Answer:    currentA,
		}
		dc := followup.DecisionContext{
			TimeRemainingMin: int(e.timeRemaining().Minutes()),
			TimeSpentMin:     int(time.Since(e.started).Minutes()),
			FollowupsAsked:   len(followups),
			TopicsCovered:    e.selector.Covered(),
		}

		start := time.Now()
		generate := e.followups.ShouldGenerate(ctx, ex, dc)
		e.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		if !generate {
			break
		}

		start = time.Now()
		question := e.followups.Generate(ctx, ex)
		e.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		if ctx.Err() != nil {
			break
		}

		answer, terminated, err := e.askWithModeration(ctx, question)
		if err != nil {
			return followups, false, err
		}
		if terminated {
			return followups, true, nil
		}
		if answer == "" {
			break
		}

		followups = append(followups, sink.QA{Question: question, Answer: answer})
		currentQ, currentA = question, answer
	}

	return followups, false, nil
}

// terminate speaks the termination notice, notifies the client, and sets the
// session cancellation signal.
func (e *Engine) terminate(ctx context.Context) error {
	if err := e.audio.SpeakAndWait(ctx, phraseTermination, protocol.SpeechTermination); err != nil {
		return err
	}
	if err := e.send(ctx, protocol.Envelope{
		Kind:   protocol.KindTerminate,
		Reason: terminateReasonInappropriate,
	}); err != nil {
		return err
	}
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, question, answer string) moderation.Label {
	start := time.Now()
	label := e.moderator.Classify(ctx, question, answer)
	e.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	e.metrics.RecordModerationLabel(ctx, string(label))
	return label
}

func (e *Engine) timeRemaining() time.Duration {
	return e.cfg.Duration - time.Since(e.started)
}

func (e *Engine) send(ctx context.Context, env protocol.Envelope) error {
	if err := e.ch.Send(ctx, env); err != nil {
		return err
	}
	e.metrics.RecordEnvelope(ctx, string(env.Kind))
	return nil
}
