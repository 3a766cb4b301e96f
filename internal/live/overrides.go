package live

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdjustAction is an operator override of a persistent tally.
type AdjustAction string

const (
	ActionSet   AdjustAction = "set"
	ActionAdd   AdjustAction = "add"
	ActionReset AdjustAction = "reset"
)

// AdjustResult is the tally after an override.
type AdjustResult struct {
	StreamID      uuid.UUID `json:"streamId"`
	LeftVotes     int       `json:"leftVotes"`
	RightVotes    int       `json:"rightVotes"`
	TotalVotes    int       `json:"totalVotes"`
	Session       *Tally    `json:"liveSessionVotes,omitempty"`
	AllTotalVotes int       `json:"allTotalVotes"`
}

// AdjustTally sets, adds to or resets a stream's persistent tally, bypassing admission.
// While the stream is live the session tally follows: set and add copy the persistent
// tally into it, reset zeroes it. The global counter is never touched.
func (c *Coordinator) AdjustTally(ctx context.Context, streamID uuid.UUID, action AdjustAction, left, right int) (AdjustResult, error) {
	switch action {
	case ActionSet, ActionAdd, ActionReset:
	default:
		return AdjustResult{}, ErrInvalidAction
	}
	if err := c.requireStream(ctx, streamID); err != nil {
		return AdjustResult{}, err
	}

	st := c.state(streamID)
	st.mu.Lock()
	var current Tally
	switch action {
	case ActionSet:
		current = c.ledger.Set(streamID, left, right)
	case ActionAdd:
		current = c.ledger.Add(streamID, left, right)
	case ActionReset:
		current = c.ledger.Reset(streamID)
	}
	var session *Tally
	if st.isLive() {
		var s Tally
		if action == ActionReset {
			s = c.ledger.ResetSession(streamID)
		} else {
			s = c.ledger.SetSession(streamID, current.LeftVotes, current.RightVotes)
		}
		session = &s
	}
	res := c.publishAdmin(streamID, current, session)
	c.persistTally(st, streamID, current)
	st.mu.Unlock()

	c.log.Info("votes adjusted",
		zap.String("stream_id", streamID.String()),
		zap.String("action", string(action)),
		zap.Int("left_votes", current.LeftVotes),
		zap.Int("right_votes", current.RightVotes),
	)
	return res, nil
}

// ResetResult carries the tally before a reset so the operator can restore it.
type ResetResult struct {
	AdjustResult
	Backup Tally `json:"backup"`
}

// ResetTally sets the persistent tally to resetTo (zero when nil) and returns the previous value.
func (c *Coordinator) ResetTally(ctx context.Context, streamID uuid.UUID, resetTo *Tally) (ResetResult, error) {
	if err := c.requireStream(ctx, streamID); err != nil {
		return ResetResult{}, err
	}
	target := Tally{}
	if resetTo != nil {
		target = clamp(*resetTo)
	}

	st := c.state(streamID)
	st.mu.Lock()
	backup := c.ledger.Current(streamID)
	current := c.ledger.Set(streamID, target.LeftVotes, target.RightVotes)
	var session *Tally
	if st.isLive() {
		s := c.ledger.SetSession(streamID, target.LeftVotes, target.RightVotes)
		session = &s
	}
	res := c.publishAdmin(streamID, current, session)
	c.persistTally(st, streamID, current)
	st.mu.Unlock()

	c.log.Info("votes reset",
		zap.String("stream_id", streamID.String()),
		zap.Int("backup_left", backup.LeftVotes),
		zap.Int("backup_right", backup.RightVotes),
	)
	return ResetResult{AdjustResult: res, Backup: backup}, nil
}

func (c *Coordinator) publishAdmin(streamID uuid.UUID, current Tally, session *Tally) AdjustResult {
	all := c.ledger.AllTotal()
	c.publish(VotesUpdated{
		StreamID:      streamID,
		Tally:         current,
		AllTotalVotes: all,
		Session:       session,
		Source:        SourceAdmin,
		Timestamp:     millis(c.clock.Now()),
	})
	return AdjustResult{
		StreamID:      streamID,
		LeftVotes:     current.LeftVotes,
		RightVotes:    current.RightVotes,
		TotalVotes:    current.Total(),
		Session:       session,
		AllTotalVotes: all,
	}
}

func (c *Coordinator) requireStream(ctx context.Context, streamID uuid.UUID) error {
	s, err := c.streams.GetStream(ctx, streamID)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrStreamNotFound
	}
	return nil
}
