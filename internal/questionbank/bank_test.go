package questionbank

import (
	"reflect"
	"strings"
	"testing"
)

const testBankYAML = `
topics:
  - name: Ownership
    questions:
      - "Tell me about a time you took ownership of a failing project."
      - "Describe a decision you made outside your job scope."
  - name: Bias for Action
    questions:
      - "Tell me about a time you acted with incomplete information."
  - name: Earn Trust
    questions:
      - "Describe a time you rebuilt trust with a colleague."
`

func mustLoad(t *testing.T) *Bank {
	t.Helper()
	b, err := LoadFromReader(strings.NewReader(testBankYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return b
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	t.Run("valid bank", func(t *testing.T) {
		t.Parallel()
		b := mustLoad(t)
		if b.Len() != 3 {
			t.Errorf("Len = %d, want 3", b.Len())
		}
		want := []string{"Ownership", "Bias for Action", "Earn Trust"}
		if got := b.Topics(); !reflect.DeepEqual(got, want) {
			t.Errorf("Topics = %v, want %v", got, want)
		}
		if got := b.Questions("Ownership"); len(got) != 2 {
			t.Errorf("Ownership question count = %d, want 2", len(got))
		}
		if got := b.Questions("ghost"); got != nil {
			t.Errorf("Questions for unknown topic = %v, want nil", got)
		}
	})

	t.Run("empty bank rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadFromReader(strings.NewReader("topics: []")); err == nil {
			t.Fatal("expected error for empty bank, got nil")
		}
	})

	t.Run("topic without questions rejected", func(t *testing.T) {
		t.Parallel()
		const bad = `
topics:
  - name: Ownership
    questions: []
`
		if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
			t.Fatal("expected error for topic without questions, got nil")
		}
	})

	t.Run("duplicate topic rejected", func(t *testing.T) {
		t.Parallel()
		const bad = `
topics:
  - name: Ownership
    questions: ["Q1"]
  - name: Ownership
    questions: ["Q2"]
`
		if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
			t.Fatal("expected error for duplicate topic, got nil")
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()
		const bad = `
topics:
  - name: Ownership
    questions: ["Q1"]
    weight: 3
`
		if _, err := LoadFromReader(strings.NewReader(bad)); err == nil {
			t.Fatal("expected error for unknown field, got nil")
		}
	})
}

func TestSelector_PickNewTopic(t *testing.T) {
	t.Parallel()

	b := mustLoad(t)
	s := NewSelector(b)
	s.intN = func(n int) int { return 0 } // deterministic: always first remaining

	seen := make(map[string]bool)
	for i := 0; i < b.Len(); i++ {
		topic, ok := s.PickNewTopic()
		if !ok {
			t.Fatalf("PickNewTopic exhausted after %d picks, want %d", i, b.Len())
		}
		if seen[topic] {
			t.Fatalf("topic %q picked twice", topic)
		}
		seen[topic] = true
	}

	if _, ok := s.PickNewTopic(); ok {
		t.Error("PickNewTopic after exhaustion = ok, want exhausted")
	}
	if got := s.Covered(); got != b.Len() {
		t.Errorf("Covered = %d, want %d", got, b.Len())
	}
}

func TestSelector_PickQuestion(t *testing.T) {
	t.Parallel()

	b := mustLoad(t)
	s := NewSelector(b)
	s.intN = func(n int) int { return n - 1 } // deterministic: always last

	q, ok := s.PickQuestion("Ownership")
	if !ok {
		t.Fatal("PickQuestion(Ownership) not ok")
	}
	if q != "Describe a decision you made outside your job scope." {
		t.Errorf("question = %q", q)
	}

	if _, ok := s.PickQuestion("ghost"); ok {
		t.Error("PickQuestion for unknown topic = ok, want false")
	}
}
