package rime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// capturedRequest records what a mock synthesis server saw for one connection.
type capturedRequest struct {
	authHeader string
	query      map[string]string
	tokens     []string
}

// newSynthServer starts a server that collects text tokens until the
// end-of-stream marker, then streams the given audio chunks and closes.
func newSynthServer(t *testing.T, audioChunks [][]byte, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.authHeader = r.Header.Get("Authorization")
		got.query = map[string]string{
			"speaker":     r.URL.Query().Get("speaker"),
			"modelId":     r.URL.Query().Get("modelId"),
			"audioFormat": r.URL.Query().Get("audioFormat"),
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			got.tokens = append(got.tokens, string(data))
			if string(data) == endOfStream {
				break
			}
		}

		for _, chunk := range audioChunks {
			if err := conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "synthesis complete")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		p, err := New("wss://users.rime.ai/ws", "key")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if p.speaker != defaultSpeaker {
			t.Errorf("speaker = %q, want %q", p.speaker, defaultSpeaker)
		}
		if p.modelID != defaultModelID {
			t.Errorf("modelID = %q, want %q", p.modelID, defaultModelID)
		}
		if p.audioFormat != defaultAudioFormat {
			t.Errorf("audioFormat = %q, want %q", p.audioFormat, defaultAudioFormat)
		}
	})

	t.Run("empty baseURL returns error", func(t *testing.T) {
		t.Parallel()
		if _, err := New("", "key"); err == nil {
			t.Fatal("expected error for empty baseURL, got nil")
		}
	})

	t.Run("empty apiKey returns error", func(t *testing.T) {
		t.Parallel()
		if _, err := New("wss://users.rime.ai/ws", ""); err == nil {
			t.Fatal("expected error for empty apiKey, got nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		t.Parallel()
		p, err := New("wss://users.rime.ai/ws", "key",
			WithSpeaker("allison"),
			WithModelID("arcana"),
			WithAudioFormat("wav"),
		)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if p.speaker != "allison" || p.modelID != "arcana" || p.audioFormat != "wav" {
			t.Errorf("options not applied: %+v", p)
		}
	})
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	chunks := [][]byte{{0x49, 0x44, 0x33}, {0xAA, 0xBB}, {0xCC}}
	var got capturedRequest
	srv := newSynthServer(t, chunks, &got)

	p, err := New(wsURL(srv), "secret-key", WithSpeaker("allison"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	audio, err := p.Synthesize(context.Background(), "Tell me about a challenge.", tts.KindQuestion)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	want := bytes.Join(chunks, nil)
	if !bytes.Equal(audio, want) {
		t.Errorf("audio = %x, want %x", audio, want)
	}
	if got.authHeader != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want bearer key", got.authHeader)
	}
	if got.query["speaker"] != "allison" {
		t.Errorf("speaker = %q, want allison", got.query["speaker"])
	}
	if got.query["modelId"] != defaultModelID {
		t.Errorf("modelId = %q, want %q", got.query["modelId"], defaultModelID)
	}
	if got.query["audioFormat"] != defaultAudioFormat {
		t.Errorf("audioFormat = %q, want %q", got.query["audioFormat"], defaultAudioFormat)
	}

	wantTokens := []string{"Tell", " ", "me", " ", "about", " ", "a", " ", "challenge.", endOfStream}
	if !reflect.DeepEqual(got.tokens, wantTokens) {
		t.Errorf("tokens = %q, want %q", got.tokens, wantTokens)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	t.Parallel()

	p, err := New("wss://users.rime.ai/ws", "key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "   ", tts.KindSystem); err == nil {
		t.Fatal("expected error for blank text, got nil")
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	t.Parallel()

	var got capturedRequest
	srv := newSynthServer(t, nil, &got)

	p, err := New(wsURL(srv), "key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Synthesize(context.Background(), "Hello.", tts.KindSystem)
	if err == nil {
		t.Fatal("expected error when server sends no audio, got nil")
	}
	if !strings.Contains(err.Error(), "rime:") {
		t.Errorf("error %q missing 'rime:' prefix", err.Error())
	}
}

func TestSynthesize_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		// Drain tokens but never answer.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	p, err := New(wsURL(srv), "key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = p.Synthesize(ctx, "Hello.", tts.KindSystem)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single word", "Hello", []string{"Hello", endOfStream}},
		{"two words", "Hello there", []string{"Hello", " ", "there", endOfStream}},
		{"collapses whitespace", "Hello   there ", []string{"Hello", " ", "there", endOfStream}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tokenize(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
