// Package app wires all Voxhire subsystems into a running application.
//
// New creates and connects the subsystems, Run serves until the context is
// cancelled, and Shutdown tears everything down in order. Inject test doubles
// via functional options; when an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxhire/voxhire/internal/auth"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/internal/questionbank"
	"github.com/voxhire/voxhire/internal/server"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/internal/sink"
	"github.com/voxhire/voxhire/internal/sink/postgres"
	"github.com/voxhire/voxhire/pkg/provider/llm"
	"github.com/voxhire/voxhire/pkg/provider/stt"
	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// memorySweepInterval is how often idle session memory is swept for expiry.
const memorySweepInterval = 5 * time.Minute

// Providers holds one interface value per pipeline stage. All three are
// required to run interviews. Populated by main.go via the config registry.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
	TTS tts.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	bank     *questionbank.Bank
	store    *memory.Store
	sink     sink.Sink
	verifier auth.Verifier
	registry *session.Registry
	server   *server.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSink injects a turn-record sink instead of creating one from config.
func WithSink(s sink.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithVerifier injects a credential verifier instead of creating one from
// the configured JWT secret.
func WithVerifier(v auth.Verifier) Option {
	return func(a *App) { a.verifier = v }
}

// New wires the application together: question bank, session memory, turn
// sink, authentication, supervisor, and HTTP server.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil || providers.STT == nil || providers.TTS == nil {
		return nil, fmt.Errorf("app: llm, stt, and tts providers are all required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		registry:  session.NewRegistry(),
	}
	for _, o := range opts {
		o(a)
	}

	bank, err := questionbank.Load(cfg.Questions.Path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.bank = bank
	slog.Info("question bank loaded", "path", cfg.Questions.Path, "topics", bank.Len())

	a.store = memory.NewStore(cfg.Session.MemoryTTL())

	if err := a.initSink(ctx); err != nil {
		return nil, fmt.Errorf("app: init sink: %w", err)
	}

	if a.verifier == nil {
		v, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.verifier = v
	}

	supervisor := session.NewSupervisor(session.Deps{
		Registry: a.registry,
		Verifier: a.verifier,
		Bank:     a.bank,
		Memory:   a.store,
		Sink:     a.sink,
		LLM:      providers.LLM,
		STT:      providers.STT,
		TTS:      providers.TTS,
	}, session.Config{
		Engine: interview.EngineConfig{
			Duration:     cfg.Session.Duration(),
			MinTopics:    cfg.Session.TopicsFloor(),
			MaxFollowups: cfg.Session.FollowupCap(),
		},
		Audio: interview.CoordinatorConfig{
			PlaybackTimeout: cfg.Session.PlaybackTimeout(),
			SilenceStop:     cfg.Session.SilenceStop(),
			ListenMaxWait:   cfg.Session.ListenMaxWait(),
		},
		HeartbeatInterval: cfg.Session.HeartbeatInterval(),
		ShutdownGrace:     cfg.Session.ShutdownGrace(),
	})

	a.server = server.New(cfg.Server, supervisor, slog.Default())
	return a, nil
}

// initSink connects the PostgreSQL turn sink, or falls back to log-only when
// no DSN is configured.
func (a *App) initSink(ctx context.Context) error {
	if a.sink != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("storage.postgres_dsn not set, turn records will only be logged")
		a.sink = &sink.LogSink{}
		return nil
	}

	store, err := postgres.New(ctx, dsn)
	if err != nil {
		return err
	}
	a.sink = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("turn record sink connected", "backend", "postgres")
	return nil
}

// Run serves interviews until ctx is cancelled. It also owns the periodic
// sweep of expired session memory.
func (a *App) Run(ctx context.Context) error {
	go a.sweepMemory(ctx)
	return a.server.Run(ctx)
}

// sweepMemory periodically removes idle session memory past its TTL.
func (a *App) sweepMemory(ctx context.Context) {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.store.CleanupExpired(); n > 0 {
				slog.Info("expired session memory swept", "sessions", n)
			}
		}
	}
}

// Shutdown tears down subsystems in order. It respects the context deadline:
// remaining closers are skipped once ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
	})
	return shutdownErr
}

// Stats reports live counters for logs and debugging.
func (a *App) Stats() (activeSessions int, memoryStats memory.Stats) {
	return a.registry.Len(), a.store.Stats()
}
