package live

import (
	"sync"

	"github.com/google/uuid"
)

// SessionKey identifies one vote session: a stream and one of its live instances.
type SessionKey struct {
	StreamID uuid.UUID
	LiveID   uuid.UUID
}

type voteSession struct {
	participants map[string]struct{}
	judges       map[string]struct{}
}

// Registry tracks who has voted in each open vote session.
type Registry struct {
	mu       sync.Mutex
	sessions map[SessionKey]*voteSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionKey]*voteSession)}
}

// Open creates an empty vote session for key, replacing any previous one.
func (r *Registry) Open(key SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = &voteSession{
		participants: make(map[string]struct{}),
		judges:       make(map[string]struct{}),
	}
}

// IsOpen reports whether a vote session exists for key.
func (r *Registry) IsOpen(key SessionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	return ok
}

// HasVoted reports whether participantID voted in the session, as audience or judge.
func (r *Registry) HasVoted(key SessionKey, participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	return s.has(participantID)
}

// RecordVote marks participantID as having voted. Callers check HasVoted first;
// TryRecord does both in one step.
func (r *Registry) RecordVote(key SessionKey, participantID string, asJudge bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.add(participantID, asJudge)
	}
}

// TryRecord records the vote unless participantID already voted in the session.
func (r *Registry) TryRecord(key SessionKey, participantID string, asJudge bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return ErrStreamNotLive
	}
	if s.has(participantID) {
		return ErrAlreadyVoted
	}
	s.add(participantID, asJudge)
	return nil
}

// Counts returns how many audience members and judges voted in the session.
func (r *Registry) Counts(key SessionKey) (participants, judges int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return len(s.participants), len(s.judges)
	}
	return 0, 0
}

// Discard drops the session; nothing about it is retained.
func (r *Registry) Discard(key SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

func (s *voteSession) has(id string) bool {
	if _, ok := s.participants[id]; ok {
		return true
	}
	_, ok := s.judges[id]
	return ok
}

func (s *voteSession) add(id string, asJudge bool) {
	if asJudge {
		s.judges[id] = struct{}{}
		return
	}
	s.participants[id] = struct{}{}
}
