package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"

	llmmock "github.com/voxhire/voxhire/pkg/provider/llm/mock"
)

func TestParseLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Label
	}{
		{"bare safe", "safe", LabelSafe},
		{"bare abusive", "abusive", LabelAbusive},
		{"bare malicious", "malicious", LabelMalicious},
		{"bare off_topic", "off_topic", LabelOffTopic},
		{"bare repeat", "repeat", LabelRepeat},
		{"bare change", "change", LabelChange},
		{"bare thinking", "thinking", LabelThinking},
		{"uppercase", "SAFE", LabelSafe},
		{"surrounding whitespace", "  repeat \n", LabelRepeat},
		{"chatty reply", "The classification is: 'thinking'.", LabelThinking},
		{"unknown falls back to safe", "banana", LabelSafe},
		{"empty falls back to safe", "", LabelSafe},
		{"abusive wins over safe mention", "This is abusive, not safe.", LabelAbusive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseLabel(tt.raw); got != tt.want {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestModerator_Classify(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{Responses: []string{"off_topic"}}
	m := NewModerator(p, nil)

	label := m.Classify(context.Background(), "Tell me about a conflict.", "What's your favorite movie?")
	if label != LabelOffTopic {
		t.Errorf("label = %q, want off_topic", label)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("LLM calls = %d, want 1", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt == "" {
		t.Error("system prompt was not set")
	}
	if len(req.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(req.Messages))
	}
	body := req.Messages[0].Content
	if !strings.Contains(body, "Tell me about a conflict.") {
		t.Error("prompt does not carry the pending question")
	}
	if !strings.Contains(body, "What's your favorite movie?") {
		t.Error("prompt does not carry the utterance")
	}
}

func TestModerator_Classify_ErrorIsSafe(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{Err: errors.New("model unavailable")}
	m := NewModerator(p, nil)

	if label := m.Classify(context.Background(), "Q", "A"); label != LabelSafe {
		t.Errorf("label on provider error = %q, want safe", label)
	}
}

func TestLabel_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []Label{LabelAbusive, LabelMalicious}
	for _, l := range terminal {
		if !l.IsTerminal() {
			t.Errorf("%q.IsTerminal() = false, want true", l)
		}
	}
	benign := []Label{LabelSafe, LabelOffTopic, LabelRepeat, LabelChange, LabelThinking}
	for _, l := range benign {
		if l.IsTerminal() {
			t.Errorf("%q.IsTerminal() = true, want false", l)
		}
	}
}
