package live

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-debate/backend/internal/models"
)

// CeilingResult reports what CapIfExceeded did.
type CeilingResult struct {
	StreamID uuid.UUID `json:"streamId"`
	Ceiling  int       `json:"ceiling"`
	Before   Tally     `json:"before"`
	After    Tally     `json:"after"`
	Capped   bool      `json:"capped"`
}

// VoteCeiling is judgeBaseTotal + audienceWeight * max(0, onlineCount - judgeCount).
func VoteCeiling(judgeBaseTotal, judgeCount, onlineCount, audienceWeight int) int {
	rest := onlineCount - judgeCount
	if rest < 0 {
		rest = 0
	}
	return judgeBaseTotal + audienceWeight*rest
}

// ScaleToCeiling shrinks t proportionally so its total equals ceiling.
// The left share is floored and right takes the remainder.
func ScaleToCeiling(t Tally, ceiling int) (Tally, bool) {
	total := t.Total()
	if total <= ceiling {
		return t, false
	}
	if ceiling <= 0 {
		return Tally{}, true
	}
	left := t.LeftVotes * ceiling / total
	return Tally{LeftVotes: left, RightVotes: ceiling - left}, true
}

// Ceiling computes the vote ceiling of a stream from its judge panel and online audience.
func (c *Coordinator) Ceiling(ctx context.Context, streamID uuid.UUID) (int, error) {
	judges, err := c.judgesFor(ctx, streamID)
	if err != nil {
		return 0, err
	}
	base, count := c.judgeBase(judges)
	online := 0
	if c.presence != nil {
		online = c.presence.OnlineCount(streamID)
	}
	return VoteCeiling(base, count, online, c.audienceWeight()), nil
}

// CapIfExceeded clamps the persistent tally, and the session tally while live, to the stream's ceiling.
func (c *Coordinator) CapIfExceeded(ctx context.Context, streamID uuid.UUID) (CeilingResult, error) {
	if err := c.requireStream(ctx, streamID); err != nil {
		return CeilingResult{}, err
	}
	ceiling, err := c.Ceiling(ctx, streamID)
	if err != nil {
		return CeilingResult{}, err
	}

	st := c.state(streamID)
	st.mu.Lock()
	before := c.ledger.Current(streamID)
	after, capped := ScaleToCeiling(before, ceiling)
	if capped {
		c.ledger.Set(streamID, after.LeftVotes, after.RightVotes)
	}
	var session *Tally
	if st.isLive() {
		s := c.ledger.Session(streamID)
		if scaled, ok := ScaleToCeiling(s, ceiling); ok {
			s = c.ledger.SetSession(streamID, scaled.LeftVotes, scaled.RightVotes)
			capped = true
		}
		session = &s
	}
	if capped {
		c.publish(VotesUpdated{
			StreamID:      streamID,
			Tally:         after,
			AllTotalVotes: c.ledger.AllTotal(),
			Session:       session,
			Source:        SourceCeiling,
			Timestamp:     millis(c.clock.Now()),
		})
		c.persistTally(st, streamID, after)
	}
	st.mu.Unlock()

	return CeilingResult{StreamID: streamID, Ceiling: ceiling, Before: before, After: after, Capped: capped}, nil
}

func (c *Coordinator) judgesFor(ctx context.Context, streamID uuid.UUID) ([]models.Judge, error) {
	if c.judges == nil {
		return nil, nil
	}
	judges, err := c.judges.GetJudges(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("load judges: %w", err)
	}
	return judges, nil
}

// judgeBase returns the summed judge weights and judge count, falling back to the
// default panel when the stream has none configured.
func (c *Coordinator) judgeBase(judges []models.Judge) (total, count int) {
	if len(judges) == 0 {
		return c.cfg.DefaultJudgeCount * c.cfg.DefaultJudgeWeight, c.cfg.DefaultJudgeCount
	}
	for _, j := range judges {
		total += judgeWeight(j)
	}
	return total, len(judges)
}

// judgeWeight is the stored weight of a configured judge. Zero is a valid weight.
func judgeWeight(j models.Judge) int {
	if j.VoteWeight < 0 {
		return 0
	}
	return j.VoteWeight
}
