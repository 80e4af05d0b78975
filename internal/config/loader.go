package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"stt": {"gateway"},
	"tts": {"rime"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued session fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Session
	if s.DurationSeconds == 0 {
		s.DurationSeconds = DefaultDurationSeconds
	}
	// Pointer fields: zero is meaningful, only nil means unset.
	if s.MinTopics == nil {
		s.MinTopics = intp(DefaultMinTopics)
	}
	if s.MaxFollowups == nil {
		s.MaxFollowups = intp(DefaultMaxFollowups)
	}
	if s.MemoryTTLSeconds == 0 {
		s.MemoryTTLSeconds = DefaultMemoryTTLSeconds
	}
	if s.PlaybackTimeoutSeconds == 0 {
		s.PlaybackTimeoutSeconds = DefaultPlaybackTimeoutSeconds
	}
	if s.SilenceStopSeconds == 0 {
		s.SilenceStopSeconds = DefaultSilenceStopSeconds
	}
	if s.ListenMaxWaitSeconds == 0 {
		s.ListenMaxWaitSeconds = DefaultListenMaxWaitSeconds
	}
	if s.HeartbeatIntervalSeconds == 0 {
		s.HeartbeatIntervalSeconds = DefaultHeartbeatIntervalSeconds
	}
	if s.ShutdownGraceSeconds == 0 {
		s.ShutdownGraceSeconds = DefaultShutdownGraceSeconds
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required; moderation and follow-up generation need a model"))
	}
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required"))
	}

	// Auth
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	// Session
	s := cfg.Session
	if s.DurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("session.duration_seconds %d must not be negative", s.DurationSeconds))
	}
	if s.MinTopics != nil && *s.MinTopics < 0 {
		errs = append(errs, fmt.Errorf("session.min_topics %d must not be negative", *s.MinTopics))
	}
	if s.MaxFollowups != nil && *s.MaxFollowups < 0 {
		errs = append(errs, fmt.Errorf("session.max_followups %d must not be negative", *s.MaxFollowups))
	}
	if s.SilenceStopSeconds >= s.ListenMaxWaitSeconds {
		errs = append(errs, fmt.Errorf("session.silence_stop_seconds %d must be shorter than session.listen_max_wait_seconds %d", s.SilenceStopSeconds, s.ListenMaxWaitSeconds))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; interview transcripts will not be persisted")
	}

	// Questions
	if cfg.Questions.Path == "" {
		errs = append(errs, errors.New("questions.path is required"))
	}

	return errors.Join(errs...)
}

func intp(v int) *int {
	return &v
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
