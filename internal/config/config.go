// Package config provides the configuration schema, loader, and provider
// registry for the Voxhire interview server.
package config

import "time"

// LogLevel controls log verbosity for the Voxhire server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Voxhire.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	Questions QuestionsConfig `yaml:"questions"`
}

// ServerConfig holds network and logging settings for the Voxhire server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini", "rime").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Gateway-style
	// providers require it (e.g., the STT gateway WebSocket URL).
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gemini-2.0-flash").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// StringOption returns the named option as a string, or def when absent or of
// another type.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// AuthConfig configures candidate token verification.
type AuthConfig struct {
	// JWTSecret is the HMAC secret shared with the token issuer.
	JWTSecret string `yaml:"jwt_secret"`
}

// SessionConfig tunes interview pacing and cleanup. Durations are expressed
// in seconds; zero selects the documented default.
type SessionConfig struct {
	// DurationSeconds is the planned interview length used for time-budget
	// decisions. Default 1800.
	DurationSeconds int `yaml:"duration_seconds"`

	// MinTopics is the minimum number of behavioral topics to cover even
	// when the time budget has run out. Zero is a valid floor, so the field
	// is a pointer: nil means unset and defaults to 1.
	MinTopics *int `yaml:"min_topics"`

	// MaxFollowups caps follow-up questions per topic. An explicit zero
	// disables follow-ups; nil means unset and defaults to 2.
	MaxFollowups *int `yaml:"max_followups"`

	// MemoryTTLSeconds is how long idle session memory survives before the
	// cleanup pass removes it. Default 7200.
	MemoryTTLSeconds int `yaml:"memory_ttl_seconds"`

	// PlaybackTimeoutSeconds bounds the wait for a client playback
	// acknowledgement. Default 30.
	PlaybackTimeoutSeconds int `yaml:"playback_timeout_seconds"`

	// SilenceStopSeconds is the sustained-silence threshold that ends an
	// utterance capture. Default 3.
	SilenceStopSeconds int `yaml:"silence_stop_seconds"`

	// ListenMaxWaitSeconds is the capture patience window when the
	// candidate never speaks. Default 60.
	ListenMaxWaitSeconds int `yaml:"listen_max_wait_seconds"`

	// HeartbeatIntervalSeconds is the server keepalive cadence. Default 5.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds"`

	// ShutdownGraceSeconds bounds the farewell delivery when a session ends.
	// Default 5.
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds"`
}

// Session defaults applied by [ApplyDefaults].
const (
	DefaultDurationSeconds          = 1800
	DefaultMinTopics                = 1
	DefaultMaxFollowups             = 2
	DefaultMemoryTTLSeconds         = 7200
	DefaultPlaybackTimeoutSeconds   = 30
	DefaultSilenceStopSeconds       = 3
	DefaultListenMaxWaitSeconds     = 60
	DefaultHeartbeatIntervalSeconds = 5
	DefaultShutdownGraceSeconds     = 5
)

// Duration returns the planned interview length.
func (s SessionConfig) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// TopicsFloor returns min_topics, or its default when unset.
func (s SessionConfig) TopicsFloor() int {
	if s.MinTopics == nil {
		return DefaultMinTopics
	}
	return *s.MinTopics
}

// FollowupCap returns max_followups, or its default when unset.
func (s SessionConfig) FollowupCap() int {
	if s.MaxFollowups == nil {
		return DefaultMaxFollowups
	}
	return *s.MaxFollowups
}

// MemoryTTL returns the idle-memory time-to-live.
func (s SessionConfig) MemoryTTL() time.Duration {
	return time.Duration(s.MemoryTTLSeconds) * time.Second
}

// PlaybackTimeout returns the playback acknowledgement deadline.
func (s SessionConfig) PlaybackTimeout() time.Duration {
	return time.Duration(s.PlaybackTimeoutSeconds) * time.Second
}

// SilenceStop returns the utterance-ending silence threshold.
func (s SessionConfig) SilenceStop() time.Duration {
	return time.Duration(s.SilenceStopSeconds) * time.Second
}

// ListenMaxWait returns the no-speech patience window.
func (s SessionConfig) ListenMaxWait() time.Duration {
	return time.Duration(s.ListenMaxWaitSeconds) * time.Second
}

// HeartbeatInterval returns the keepalive cadence.
func (s SessionConfig) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalSeconds) * time.Second
}

// ShutdownGrace returns the farewell delivery deadline.
func (s SessionConfig) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceSeconds) * time.Second
}

// StorageConfig configures durable persistence of interview transcripts.
type StorageConfig struct {
	// PostgresDSN is the connection string for the transcript store.
	// When empty, transcripts are logged but not persisted.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// QuestionsConfig locates the behavioral question bank.
type QuestionsConfig struct {
	// Path is the YAML question bank file. Required.
	Path string `yaml:"path"`
}
