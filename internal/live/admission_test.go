package live

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-debate/backend/internal/models"
)

func TestSubmitVote_AudienceScenario(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()

	live, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)

	res, err := h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "U1", Side: models.SideLeft})
	require.NoError(t, err)
	assert.Equal(t, 2, res.LeftVotes)
	assert.Equal(t, 0, res.RightVotes)
	assert.Equal(t, 2, res.TotalVotes)
	assert.Equal(t, live.LiveID, res.LiveID)
	assert.False(t, res.AsJudge)

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "U1", Side: models.SideRight})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	require.Len(t, h.sinks.history["U1"], 1)
	rec := h.sinks.history["U1"][0]
	assert.Equal(t, live.LiveID, rec.LiveID)
	assert.Equal(t, 2, rec.Weight)
	assert.Equal(t, 2, h.sinks.global)
	assert.Equal(t, Tally{LeftVotes: 2}, h.sinks.saved[s.ID])

	votes := h.pub.ofType(TypeVotesUpdated)
	ev := votes[len(votes)-1].(VotesUpdated)
	assert.Equal(t, SourceUser, ev.Source)
	require.NotNil(t, ev.Session)
	assert.Equal(t, Tally{LeftVotes: 2}, *ev.Session)
	require.NotNil(t, ev.Vote)
	assert.Equal(t, "U1", ev.Vote.ParticipantID)
}

func TestSubmitVote_WindowNotOpen(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(44 * time.Second)

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrVotingWindowNotOpen)

	h.clock.Advance(time.Second)
	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideLeft})
	assert.NoError(t, err, "the window opens inclusively at 45s")
}

func TestSubmitVote_WindowClosedStopsStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoStop = 5 * time.Minute
	s := enabledStream("s1")
	h := newHarnessWith(cfg, s)
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(60 * time.Second)
	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideRight})
	require.NoError(t, err, "the window closes inclusively at 60s")

	h.clock.Advance(time.Second)
	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u2", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrVotingWindowClosed)

	_, live := h.coord.ActiveLiveID(s.ID)
	assert.False(t, live)
	require.Len(t, h.sinks.ended, 1)
	assert.Equal(t, ReasonVoteWindowEnded, h.sinks.ended[0].StopReason)
	assert.Equal(t, 2, h.sinks.ended[0].RightVotes)

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u3", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrStreamNotLive)
}

func TestSubmitVote_Rejections(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()
	h.participants["bad"] = &models.Participant{ID: "bad", Status: models.ParticipantBanned}

	_, err := h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "bad", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrParticipantBanned, "banned is checked before liveness")

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrStreamNotLive)

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: "middle"})
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrMissingParticipant)

	_, err = h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)
	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "bad", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrParticipantBanned)
	assert.Equal(t, Tally{}, h.coord.ledger.Current(s.ID))
}

func TestSubmitVote_JudgeWeight(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	h.judges[s.ID] = []models.Judge{
		{ID: "judge-1", VoteWeight: 15, ParticipantID: "j1"},
		{ID: "judge-2", VoteWeight: 0, ParticipantID: "j2"},
	}
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)

	res, err := h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "j1", Side: models.SideLeft})
	require.NoError(t, err)
	assert.True(t, res.AsJudge)
	assert.Equal(t, 15, res.Weight)

	res, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "j2", Side: models.SideRight})
	require.NoError(t, err)
	assert.True(t, res.AsJudge)
	assert.Equal(t, 0, res.Weight, "a judge set to zero weight counts for nothing")
	assert.Equal(t, Tally{LeftVotes: 15}, h.coord.ledger.Session(s.ID))

	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "j1", Side: models.SideLeft})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	key := SessionKey{StreamID: s.ID, LiveID: res.LiveID}
	p, j := h.coord.registry.Counts(key)
	assert.Equal(t, 0, p)
	assert.Equal(t, 2, j)
}

func TestSubmitVote_ConservationUnderConcurrency(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)

	const voters = 100
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := models.SideLeft
			if i%3 == 0 {
				side = models.SideRight
			}
			id := fmt.Sprintf("u%d", i)
			// Each participant tries twice; only one may land.
			_, _ = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: id, Side: side})
			_, _ = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: id, Side: side})
		}(i)
	}
	wg.Wait()

	current := h.coord.ledger.Current(s.ID)
	session := h.coord.ledger.Session(s.ID)
	assert.Equal(t, voters*2, current.Total())
	assert.Equal(t, 34*2, current.RightVotes)
	assert.Equal(t, current, session)
	assert.Equal(t, voters*2, h.sinks.global)
}

func TestGlobalCounterNeverDecreases(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)
	_, err = h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideLeft})
	require.NoError(t, err)
	before := h.sinks.global

	_, err = h.coord.ResetTally(ctx, s.ID, nil)
	require.NoError(t, err)
	_, err = h.coord.AdjustTally(ctx, s.ID, ActionReset, 0, 0)
	require.NoError(t, err)
	_, err = h.coord.StopLive(ctx, s.ID, ReasonManual)
	require.NoError(t, err)

	assert.Equal(t, before, h.sinks.global)
}

func TestSubmitVote_UnknownStreamLeavesNoState(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	ctx := context.Background()

	before := h.coord.Snapshot(ctx)
	require.Len(t, before.Streams, 1)

	for i := 0; i < 5; i++ {
		_, err := h.coord.SubmitVote(ctx, VoteRequest{StreamID: uuid.New(), ParticipantID: "u1", Side: models.SideLeft})
		assert.ErrorIs(t, err, ErrStreamNotLive)
	}

	after := h.coord.Snapshot(ctx)
	assert.Equal(t, before.Streams, after.Streams)
	h.coord.mu.Lock()
	assert.Empty(t, h.coord.states)
	h.coord.mu.Unlock()
}
