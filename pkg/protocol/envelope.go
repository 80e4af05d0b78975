// Package protocol defines the JSON envelope vocabulary exchanged between the
// VoxHire server and an interview client, plus the Channel abstraction that
// carries envelopes over a bidirectional transport.
//
// Every message on the wire is a single Envelope. The "type" field selects the
// kind; all other fields are optional and kind-dependent. The server keeps the
// envelope set deliberately flat so browser clients can dispatch on one field.
package protocol

import "encoding/json"

// Kind identifies the envelope type on the wire.
type Kind string

// Server → client envelope kinds.
const (
	// KindSystem is the opening message carrying the session identifier.
	KindSystem Kind = "system"

	// KindSpeech is a spoken interviewer utterance that is not a question
	// (transitions, moderation notices, termination and completion lines).
	KindSpeech Kind = "speech"

	// KindQuestion is a spoken interviewer question. The client must play the
	// audio (or display the text) and acknowledge playback completion.
	KindQuestion Kind = "question"

	// KindStartListening authorises the client to begin capturing audio.
	// It is never emitted before the preceding utterance's playback settled.
	KindStartListening Kind = "start_listening"

	// KindAnswer echoes the transcript of the candidate's reply.
	KindAnswer Kind = "answer"

	// KindHeartbeat is the periodic liveness probe.
	KindHeartbeat Kind = "heartbeat"

	// KindTerminate ends the session abnormally with a reason.
	KindTerminate Kind = "terminate"

	// KindComplete marks a normally finished interview.
	KindComplete Kind = "complete"
)

// Client → server envelope kinds.
const (
	// KindPlaybackCompleted reports that the client finished playing the
	// utterance identified by MessageID.
	KindPlaybackCompleted Kind = "audio_playback_completed"

	// KindPlaybackError reports a playback failure. The handshake treats it
	// as completion; the error is logged.
	KindPlaybackError Kind = "audio_playback_error"

	// KindEndSession is the candidate's request to terminate the interview.
	KindEndSession Kind = "end_session"
)

// SpeechType classifies interviewer utterances for the client UI and for TTS
// pacing. Carried in the speech_type field of speech envelopes.
type SpeechType string

const (
	SpeechSystem      SpeechType = "system"
	SpeechQuestion    SpeechType = "question"
	SpeechTransition  SpeechType = "transition"
	SpeechModeration  SpeechType = "moderation"
	SpeechRetry       SpeechType = "retry"
	SpeechSkip        SpeechType = "skip"
	SpeechTermination SpeechType = "termination"
	SpeechCompletion  SpeechType = "completion"
)

// Envelope is the single wire message format. Fields not applicable to a kind
// are omitted from the JSON encoding.
type Envelope struct {
	Kind Kind `json:"type"`

	// Text is the utterance, transcript, or system message body.
	Text string `json:"text,omitempty"`

	// SessionID is set on system and complete envelopes.
	SessionID string `json:"session_id,omitempty"`

	// SpeechType classifies speech envelopes.
	SpeechType SpeechType `json:"speech_type,omitempty"`

	// MessageID correlates an utterance with its playback acknowledgement.
	MessageID string `json:"message_id,omitempty"`

	// AudioData is base64-encoded synthesised audio, when available.
	AudioData string `json:"audio_data,omitempty"`

	// Format names the audio container of AudioData (e.g. "mp3").
	Format string `json:"format,omitempty"`

	// HasAudio tells the client whether audio playback is expected. When
	// false the client should display the text and acknowledge promptly.
	HasAudio bool `json:"has_audio,omitempty"`

	// Timestamp is the Unix time of heartbeat envelopes, in seconds.
	Timestamp float64 `json:"timestamp,omitempty"`

	// Reason explains terminate envelopes.
	Reason string `json:"reason,omitempty"`

	// Error carries a client-side playback error description.
	Error string `json:"error,omitempty"`
}

// Encode marshals e to its JSON wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals a wire message into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
