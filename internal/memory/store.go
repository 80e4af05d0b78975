// Package memory holds per-session conversational state for active interviews.
//
// The store keeps, for each (session, topic) pair, the ordered exchange of
// main question, candidate answer, and follow-up turns. Entries carry a
// last-access timestamp so idle sessions can be reclaimed after a TTL.
package memory

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// Turn types for interviewer entries.
const (
	TurnMain     = "main"
	TurnFollowup = "followup"
)

// Turn is one entry of a topic's exchange history.
type Turn struct {
	// Role is RoleInterviewer or RoleCandidate.
	Role string

	// Type is TurnMain or TurnFollowup for interviewer turns, empty for
	// candidate turns.
	Type string

	// Content is the spoken text.
	Content string
}

// topicMemory is the exchange history of one behavioral topic.
type topicMemory struct {
	turns []Turn
}

// sessionMemory groups all topic histories of one session.
type sessionMemory struct {
	topics     map[string]*topicMemory
	lastAccess time.Time
}

// Stats summarises store occupancy for observability.
type Stats struct {
	// Sessions is the number of sessions currently held.
	Sessions int

	// Topics is the total number of topic histories across all sessions.
	Topics int
}

// Store is a thread-safe, in-memory session state store.
// The zero value is not ready; use [NewStore].
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionMemory
	ttl      time.Duration
	now      func() time.Time
}

// NewStore returns an initialised [Store]. Sessions untouched for longer than
// ttl become eligible for [Store.CleanupExpired]. A non-positive ttl disables
// expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*sessionMemory),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Has reports whether the session already holds history for topic. Like all
// session accesses, it refreshes the session's idle timer.
func (s *Store) Has(sessionID, topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	sess.lastAccess = s.now()
	_, ok = sess.topics[topic]
	return ok
}

// StartTopic records the main question of a topic together with the
// candidate's answer, creating session and topic entries as needed. Calling
// it again for the same topic appends another main exchange to the existing
// history rather than resetting it.
func (s *Store) StartTopic(sessionID, topic, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(sessionID)
	tm, ok := sess.topics[topic]
	if !ok {
		tm = &topicMemory{}
		sess.topics[topic] = tm
	}
	tm.turns = append(tm.turns,
		Turn{Role: RoleInterviewer, Type: TurnMain, Content: question},
		Turn{Role: RoleCandidate, Content: answer},
	)
	sess.lastAccess = s.now()
}

// AppendFollowup records one follow-up exchange on an existing topic. An
// append on an unknown session or topic is a no-op; the topic must first be
// started with [Store.StartTopic].
func (s *Store) AppendFollowup(sessionID, topic, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	tm, ok := sess.topics[topic]
	if !ok {
		return
	}
	tm.turns = append(tm.turns,
		Turn{Role: RoleInterviewer, Type: TurnFollowup, Content: question},
		Turn{Role: RoleCandidate, Content: answer},
	)
	sess.lastAccess = s.now()
}

// History returns a copy of the topic's exchange history in order. An unknown
// session or topic yields an empty slice. Like all session accesses, it
// refreshes the session's idle timer.
func (s *Store) History(sessionID, topic string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.lastAccess = s.now()
	tm, ok := sess.topics[topic]
	if !ok {
		return nil
	}
	out := make([]Turn, len(tm.turns))
	copy(out, tm.turns)
	return out
}

// CleanupSession removes all state of one session and reports whether the
// session was present. Cleaning up an already-removed session returns false.
func (s *Store) CleanupSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

// CleanupExpired removes every session idle for longer than the TTL and
// returns how many were removed.
func (s *Store) CleanupExpired() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastAccess.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// ForceCleanupAll drops every session and returns how many were removed.
func (s *Store) ForceCleanupAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sessions)
	s.sessions = make(map[string]*sessionMemory)
	return n
}

// Stats returns current occupancy counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Sessions: len(s.sessions)}
	for _, sess := range s.sessions {
		st.Topics += len(sess.topics)
	}
	return st
}

// session returns the session entry, creating it when absent.
// Caller must hold the write lock.
func (s *Store) session(sessionID string) *sessionMemory {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &sessionMemory{topics: make(map[string]*topicMemory)}
		s.sessions[sessionID] = sess
	}
	return sess
}
