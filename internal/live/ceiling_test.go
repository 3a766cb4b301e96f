package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-debate/backend/internal/models"
)

func TestVoteCeiling(t *testing.T) {
	assert.Equal(t, 34, VoteCeiling(30, 3, 5, 2))
	assert.Equal(t, 30, VoteCeiling(30, 3, 1, 2), "audience below the judge count adds nothing")
	assert.Equal(t, 45, VoteCeiling(25, 2, 12, 2))
}

func TestScaleToCeiling(t *testing.T) {
	got, capped := ScaleToCeiling(Tally{LeftVotes: 30, RightVotes: 20}, 34)
	assert.True(t, capped)
	assert.Equal(t, Tally{LeftVotes: 20, RightVotes: 14}, got)

	got, capped = ScaleToCeiling(Tally{LeftVotes: 10, RightVotes: 5}, 34)
	assert.False(t, capped)
	assert.Equal(t, Tally{LeftVotes: 10, RightVotes: 5}, got)

	got, capped = ScaleToCeiling(Tally{LeftVotes: 1, RightVotes: 2}, 0)
	assert.True(t, capped)
	assert.Equal(t, Tally{}, got)
}

func TestCapIfExceeded(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	h.presence[s.ID] = 5
	h.judges[s.ID] = []models.Judge{
		{ID: "judge-1", VoteWeight: 10},
		{ID: "judge-2", VoteWeight: 10},
		{ID: "judge-3", VoteWeight: 10},
	}
	ctx := context.Background()

	_, err := h.coord.AdjustTally(ctx, s.ID, ActionSet, 30, 20)
	require.NoError(t, err)

	res, err := h.coord.CapIfExceeded(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, 34, res.Ceiling)
	assert.Equal(t, 34, res.After.Total())
	assert.Equal(t, Tally{LeftVotes: 20, RightVotes: 14}, h.coord.ledger.Current(s.ID))
	assert.Equal(t, Tally{LeftVotes: 20, RightVotes: 14}, h.sinks.saved[s.ID])

	votes := h.pub.ofType(TypeVotesUpdated)
	assert.Equal(t, SourceCeiling, votes[len(votes)-1].(VotesUpdated).Source)

	res, err = h.coord.CapIfExceeded(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, res.Capped)
}

func TestCapIfExceeded_DefaultPanelAndSession(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	h.presence[s.ID] = 3
	ctx := context.Background()

	_, err := h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)
	_, err = h.coord.AdjustTally(ctx, s.ID, ActionSet, 40, 40)
	require.NoError(t, err)

	ceiling, err := h.coord.Ceiling(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, ceiling)

	res, err := h.coord.CapIfExceeded(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Tally{LeftVotes: 15, RightVotes: 15}, res.After)
	assert.Equal(t, Tally{LeftVotes: 15, RightVotes: 15}, h.coord.ledger.Session(s.ID))
}

func TestCeiling_UsesStoredJudgeWeights(t *testing.T) {
	s := enabledStream("s1")
	h := newHarness(s)
	h.judges[s.ID] = []models.Judge{{ID: "judge-1", VoteWeight: 0, ParticipantID: "j1"}}
	ctx := context.Background()

	ceiling, err := h.coord.Ceiling(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ceiling)

	h.presence[s.ID] = 4
	h.judges[s.ID] = []models.Judge{
		{ID: "judge-1", VoteWeight: 0},
		{ID: "judge-2", VoteWeight: 7},
	}
	ceiling, err = h.coord.Ceiling(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 7+2*2, ceiling)
}

func TestCeiling_AudienceWeightDefault(t *testing.T) {
	s := enabledStream("s1")
	cfg := DefaultConfig()
	cfg.AudienceWeight = 0
	h := newHarnessWith(cfg, s)
	h.presence[s.ID] = 5
	ctx := context.Background()

	ceiling, err := h.coord.Ceiling(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 34, ceiling, "unset audience weight counts as 2, as for admitted votes")

	_, err = h.coord.StartLive(ctx, s.ID, StartOptions{})
	require.NoError(t, err)
	h.clock.Advance(50 * time.Second)
	res, err := h.coord.SubmitVote(ctx, VoteRequest{StreamID: s.ID, ParticipantID: "u1", Side: models.SideLeft})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Weight)
}
