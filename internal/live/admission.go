package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/metrics"
	"github.com/aura-debate/backend/internal/models"
)

// VoteRequest is a participant-submitted vote.
type VoteRequest struct {
	StreamID      uuid.UUID
	ParticipantID string
	Side          models.Side
}

// VoteResult is the tally after an admitted vote.
type VoteResult struct {
	StreamID   uuid.UUID `json:"streamId"`
	LiveID     uuid.UUID `json:"liveId"`
	LeftVotes  int       `json:"leftVotes"`
	RightVotes int       `json:"rightVotes"`
	TotalVotes int       `json:"totalVotes"`
	Session    Tally     `json:"liveSessionVotes"`
	Weight     int       `json:"votes"`
	AsJudge    bool      `json:"asJudge"`
}

// SubmitVote admits at most one vote per participant per live session, inside the vote window.
func (c *Coordinator) SubmitVote(ctx context.Context, req VoteRequest) (VoteResult, error) {
	res, err := c.submitVote(ctx, req)
	if err != nil {
		metrics.VotesRejected.WithLabelValues(rejectReason(err)).Inc()
		return VoteResult{}, err
	}
	kind := "audience"
	if res.AsJudge {
		kind = "judge"
	}
	metrics.VotesAdmitted.WithLabelValues(kind, string(req.Side)).Inc()
	return res, nil
}

func (c *Coordinator) submitVote(ctx context.Context, req VoteRequest) (VoteResult, error) {
	if req.ParticipantID == "" {
		return VoteResult{}, ErrMissingParticipant
	}
	if !req.Side.Valid() {
		return VoteResult{}, ErrInvalidSide
	}
	if c.participants != nil {
		p, err := c.participants.GetParticipant(ctx, req.ParticipantID)
		if err != nil {
			return VoteResult{}, fmt.Errorf("load participant: %w", err)
		}
		if p != nil && p.IsBanned() {
			return VoteResult{}, ErrParticipantBanned
		}
	}
	judges, err := c.judgesFor(ctx, req.StreamID)
	if err != nil {
		return VoteResult{}, err
	}
	weight, asJudge := c.audienceWeight(), false
	for _, j := range judges {
		if j.ParticipantID != "" && j.ParticipantID == req.ParticipantID {
			weight, asJudge = judgeWeight(j), true
			break
		}
	}

	// Only StartLive and ScheduleLive register stream state; votes for unknown streams must not.
	st := c.view(req.StreamID)
	st.mu.Lock()
	if !st.isLive() {
		st.mu.Unlock()
		return VoteResult{}, ErrStreamNotLive
	}
	sess := st.session
	now := c.clock.Now()
	elapsed := now.Sub(sess.startTime)
	if elapsed < c.cfg.VoteWindowOpen {
		st.mu.Unlock()
		return VoteResult{}, ErrVotingWindowNotOpen
	}
	if elapsed > c.cfg.VoteWindowClose {
		ended := c.stopLocked(st, req.StreamID, ReasonVoteWindowEnded)
		st.mu.Unlock()
		c.afterStop(ended)
		return VoteResult{}, ErrVotingWindowClosed
	}
	key := SessionKey{StreamID: req.StreamID, LiveID: sess.liveID}
	if err := c.registry.TryRecord(key, req.ParticipantID, asJudge); err != nil {
		st.mu.Unlock()
		return VoteResult{}, err
	}

	left, right := 0, 0
	if req.Side == models.SideLeft {
		left = weight
	} else {
		right = weight
	}
	current := c.ledger.Add(req.StreamID, left, right)
	session := c.ledger.AddSession(req.StreamID, left, right)
	c.publish(VotesUpdated{
		StreamID:      req.StreamID,
		Tally:         current,
		AllTotalVotes: c.ledger.AllTotal(),
		Session:       &session,
		Source:        SourceUser,
		Vote: &VoteDetail{
			ParticipantID: req.ParticipantID,
			Side:          req.Side,
			Weight:        weight,
			AsJudge:       asJudge,
		},
		Timestamp: millis(now),
	})

	rec := models.VoteRecord{
		ParticipantID: req.ParticipantID,
		StreamID:      req.StreamID,
		LiveID:        sess.liveID,
		Side:          req.Side,
		Weight:        weight,
		AsJudge:       asJudge,
		At:            now,
	}
	if c.history != nil {
		c.sink(st, "vote_history", func(ctx context.Context) error {
			return c.history.AppendVoteHistory(ctx, req.ParticipantID, rec)
		})
	}
	if c.global != nil {
		c.sink(st, "global", func(ctx context.Context) error { return c.global.IncrementGlobalTotal(ctx, weight) })
	}
	c.persistTally(st, req.StreamID, current)
	st.mu.Unlock()

	c.log.Debug("vote admitted",
		zap.String("stream_id", req.StreamID.String()),
		zap.String("participant_id", req.ParticipantID),
		zap.String("side", string(req.Side)),
		zap.Int("weight", weight),
	)

	return VoteResult{
		StreamID:   req.StreamID,
		LiveID:     sess.liveID,
		LeftVotes:  current.LeftVotes,
		RightVotes: current.RightVotes,
		TotalVotes: current.Total(),
		Session:    session,
		Weight:     weight,
		AsJudge:    asJudge,
	}, nil
}

func (c *Coordinator) audienceWeight() int {
	if c.cfg.AudienceWeight <= 0 {
		return 2
	}
	return c.cfg.AudienceWeight
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrParticipantBanned):
		return "banned"
	case errors.Is(err, ErrStreamNotLive):
		return "not_live"
	case errors.Is(err, ErrVotingWindowNotOpen):
		return "window_not_open"
	case errors.Is(err, ErrVotingWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrInvalidSide), errors.Is(err, ErrMissingParticipant):
		return "invalid"
	default:
		return "error"
	}
}
