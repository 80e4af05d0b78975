package questionbank

import (
	"math/rand/v2"
	"sync"
)

// Selector tracks which topics a single session has covered and picks the
// next topic and question at random from what remains. Each session owns its
// own Selector; the underlying Bank is shared and never mutated.
type Selector struct {
	mu    sync.Mutex
	bank  *Bank
	asked map[string]bool
	intN  func(n int) int
}

// NewSelector returns a fresh Selector over bank.
func NewSelector(bank *Bank) *Selector {
	return &Selector{
		bank:  bank,
		asked: make(map[string]bool),
		intN:  rand.IntN,
	}
}

// PickNewTopic selects an unasked topic at random and marks it asked.
// The second result is false once every topic has been covered.
func (s *Selector) PickNewTopic() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining []string
	for _, name := range s.bank.Topics() {
		if !s.asked[name] {
			remaining = append(remaining, name)
		}
	}
	if len(remaining) == 0 {
		return "", false
	}

	topic := remaining[s.intN(len(remaining))]
	s.asked[topic] = true
	return topic, true
}

// PickQuestion selects a random main question for topic. The second result is
// false for an unknown topic.
func (s *Selector) PickQuestion(topic string) (string, bool) {
	questions := s.bank.Questions(topic)
	if len(questions) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return questions[s.intN(len(questions))], true
}

// Covered returns how many topics this session has been asked so far.
func (s *Selector) Covered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.asked)
}
