package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voxhire/voxhire/internal/auth"
	"github.com/voxhire/voxhire/internal/followup"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/internal/moderation"
	"github.com/voxhire/voxhire/internal/observe"
	"github.com/voxhire/voxhire/internal/questionbank"
	"github.com/voxhire/voxhire/internal/sink"
	"github.com/voxhire/voxhire/pkg/protocol"
	"github.com/voxhire/voxhire/pkg/provider/llm"
	"github.com/voxhire/voxhire/pkg/provider/stt"
	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// reasonAlreadyActive is sent when a user opens a second concurrent session.
const reasonAlreadyActive = "already active"

// Session statuses reported in metrics and logs.
const (
	statusCompleted  = "completed"
	statusTerminated = "terminated"
	statusError      = "error"
)

// Config tunes the per-session supervisor.
type Config struct {
	// Engine bounds the interview itself.
	Engine interview.EngineConfig

	// Audio tunes the speak/listen handshake.
	Audio interview.CoordinatorConfig

	// HeartbeatInterval is the liveness probe period. Default: 5s.
	HeartbeatInterval time.Duration

	// ShutdownGrace bounds how long cancelled tasks may take to unwind
	// before they are abandoned. Default: 5s.
	ShutdownGrace time.Duration
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
}

// Deps collects the shared collaborators a Supervisor hands to every session.
type Deps struct {
	Registry *Registry
	Verifier auth.Verifier
	Bank     *questionbank.Bank
	Memory   *memory.Store
	Sink     sink.Sink
	LLM      llm.Provider
	STT      stt.Provider
	TTS      tts.Provider
	Logger   *slog.Logger
}

// Supervisor runs the full lifecycle of interview sessions: authentication,
// per-user deduplication, the three session tasks, and cleanup. One
// Supervisor serves all connections; each Handle call owns one session.
type Supervisor struct {
	deps    Deps
	cfg     Config
	logger  *slog.Logger
	metrics *observe.Metrics
}

// NewSupervisor builds a Supervisor. A nil deps.Logger falls back to
// slog.Default.
func NewSupervisor(deps Deps, cfg Config) *Supervisor {
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		metrics: observe.DefaultMetrics(),
	}
}

// Active reports the number of sessions currently running.
func (s *Supervisor) Active() int {
	return s.deps.Registry.Len()
}

// Handle runs one interview session over ch, authenticated by token. It
// returns once the session has fully unwound; the channel is closed on every
// path. The returned error reports authentication failures and unexpected
// session faults, not normal terminations.
func (s *Supervisor) Handle(ctx context.Context, ch protocol.Channel, token string) error {
	userID, err := s.deps.Verifier.Verify(token)
	if err != nil {
		s.logger.Warn("authentication failed", "error", err)
		_ = ch.Close(protocol.ClosePolicyViolation, "authentication failed")
		return err
	}

	if !s.deps.Registry.TryInsert(userID) {
		s.logger.Warn("duplicate session refused", "user_id", userID)
		_ = ch.Send(ctx, protocol.Envelope{
			Kind:   protocol.KindTerminate,
			Reason: reasonAlreadyActive,
		})
		_ = ch.Close(protocol.ClosePolicyViolation, reasonAlreadyActive)
		return nil
	}

	sessionID := uuid.NewString()
	logger := s.logger.With("session_id", sessionID, "user_id", userID)
	started := time.Now()

	s.metrics.ActiveSessions.Add(ctx, 1)

	// Cleanup runs on every exit path: registry slot, session memory, gauge,
	// outcome metric, transport.
	status := statusTerminated
	defer func() {
		s.deps.Registry.Remove(userID)
		s.deps.Memory.CleanupSession(sessionID)
		s.metrics.ActiveSessions.Add(ctx, -1)
		s.metrics.RecordSessionOutcome(ctx, status, time.Since(started).Seconds())
		_ = ch.Close(protocol.CloseNormal, "session over")
		logger.Info("session finished", "status", status, "duration", time.Since(started))
	}()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	audio := interview.NewCoordinator(ch, s.deps.TTS, s.deps.STT, s.cfg.Audio, logger)
	engine := interview.NewEngine(sessionID, userID, s.cfg.Engine, interview.EngineDeps{
		Channel:   ch,
		Audio:     audio,
		Selector:  questionbank.NewSelector(s.deps.Bank),
		Moderator: moderation.NewModerator(s.deps.LLM, logger),
		Followups: followup.NewAdapter(s.deps.LLM, s.deps.Memory, logger),
		Memory:    s.deps.Memory,
		Sink:      s.deps.Sink,
		Cancel:    cancel,
		Logger:    logger,
	})

	logger.Info("session started")

	// Three tasks share the cancellation signal; whichever finishes first
	// cancels the others.
	g := new(errgroup.Group)
	var engineStatus interview.Status
	var engineErr error

	g.Go(func() error {
		defer cancel()
		engineStatus, engineErr = engine.Run(sctx)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		s.readMessages(sctx, ch, audio, cancel, logger)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		s.heartbeat(sctx, ch, logger)
		return nil
	})

	// Cancelled tasks get a bounded grace period to unwind; a stuck task is
	// abandoned rather than wedging the supervisor.
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-waitGrace(sctx, s.cfg.ShutdownGrace):
		// The engine result is off limits while its task may still run.
		logger.Warn("session tasks did not unwind within grace period")
		return nil
	}

	switch {
	case engineStatus == interview.StatusCompleted:
		status = statusCompleted
	case engineStatus == interview.StatusTerminated:
		status = statusTerminated
	case engineErr != nil && !errors.Is(engineErr, context.Canceled):
		status = statusError
		logger.Error("interview failed", "error", engineErr)
		return engineErr
	}
	return nil
}

// readMessages pumps client envelopes into the session: playback
// acknowledgements go to the audio coordinator, end_session and transport
// loss set the cancellation signal.
func (s *Supervisor) readMessages(ctx context.Context, ch protocol.Channel, audio *interview.Coordinator, cancel context.CancelFunc, logger *slog.Logger) {
	for {
		e, err := ch.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Info("client disconnected", "error", err)
				cancel()
			}
			return
		}

		switch e.Kind {
		case protocol.KindPlaybackCompleted, protocol.KindPlaybackError:
			audio.OnClientMessage(e)
		case protocol.KindEndSession:
			logger.Info("candidate ended the session")
			cancel()
			return
		default:
			logger.Debug("ignoring client envelope", "kind", e.Kind)
		}
	}
}

// heartbeat probes the transport every interval. A failed probe means the
// client is gone, which cancels the session.
func (s *Supervisor) heartbeat(ctx context.Context, ch protocol.Channel, logger *slog.Logger) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e := protocol.Envelope{
				Kind:      protocol.KindHeartbeat,
				Timestamp: float64(time.Now().UnixMilli()) / 1000,
			}
			if err := ch.Send(ctx, e); err != nil {
				if ctx.Err() == nil {
					logger.Info("heartbeat failed, client gone", "error", err)
				}
				return
			}
		}
	}
}

// waitGrace returns a channel that fires grace after the session context is
// cancelled. Before cancellation there is no deadline: a healthy interview
// may run for its full duration.
func waitGrace(ctx context.Context, grace time.Duration) <-chan time.Time {
	out := make(chan time.Time, 1)
	go func() {
		<-ctx.Done()
		t := time.NewTimer(grace)
		defer t.Stop()
		out <- <-t.C
	}()
	return out
}
