package live

import (
	"github.com/google/uuid"
)

// AIState is the state of a stream's AI commentary.
type AIState string

const (
	AIRunning AIState = "running"
	AIPaused  AIState = "paused"
	AIStopped AIState = "stopped"
)

type aiSession struct {
	id    uuid.UUID
	state AIState
}

func (a aiSession) status() AIState {
	if a.state == "" {
		return AIStopped
	}
	return a.state
}

func (a aiSession) active() bool {
	return a.state == AIRunning || a.state == AIPaused
}

// AIStatus is the AI commentary state of one stream.
type AIStatus struct {
	StreamID    uuid.UUID  `json:"streamId"`
	AISessionID *uuid.UUID `json:"aiSessionId,omitempty"`
	Status      AIState    `json:"status"`
}

// StartAI starts AI commentary for a stream with a new AI session ID.
func (c *Coordinator) StartAI(streamID uuid.UUID) (AIStatus, error) {
	st := c.state(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return c.startAILocked(st, streamID)
}

// StopAI stops AI commentary. It fails when commentary is neither running nor paused.
func (c *Coordinator) StopAI(streamID uuid.UUID) (AIStatus, error) {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.ai.active() {
		return AIStatus{}, ErrAINotRunning
	}
	return c.stopAILocked(st, streamID), nil
}

// ToggleAI pauses running commentary or resumes paused commentary.
func (c *Coordinator) ToggleAI(streamID uuid.UUID) (AIStatus, error) {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	switch st.ai.state {
	case AIRunning:
		st.ai.state = AIPaused
	case AIPaused:
		st.ai.state = AIRunning
	default:
		return AIStatus{}, ErrAINotRunning
	}
	return c.publishAI(st, streamID), nil
}

// AIStatusOf returns the AI commentary state of a stream.
func (c *Coordinator) AIStatusOf(streamID uuid.UUID) AIStatus {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return aiStatus(st, streamID)
}

func (c *Coordinator) startAILocked(st *streamState, streamID uuid.UUID) (AIStatus, error) {
	if st.ai.active() {
		return AIStatus{}, ErrAIAlreadyRunning
	}
	st.ai = aiSession{id: uuid.New(), state: AIRunning}
	return c.publishAI(st, streamID), nil
}

// stopAILocked stops active commentary; a no-op otherwise.
func (c *Coordinator) stopAILocked(st *streamState, streamID uuid.UUID) AIStatus {
	if !st.ai.active() {
		return aiStatus(st, streamID)
	}
	st.ai.state = AIStopped
	return c.publishAI(st, streamID)
}

func (c *Coordinator) publishAI(st *streamState, streamID uuid.UUID) AIStatus {
	s := aiStatus(st, streamID)
	c.publish(AIStatusChanged{
		StreamID:    streamID,
		AISessionID: s.AISessionID,
		Status:      s.Status,
		Timestamp:   millis(c.clock.Now()),
	})
	return s
}

func aiStatus(st *streamState, streamID uuid.UUID) AIStatus {
	s := AIStatus{StreamID: streamID, Status: st.ai.status()}
	if st.ai.id != uuid.Nil {
		id := st.ai.id
		s.AISessionID = &id
	}
	return s
}
