package live

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotesUpdatedJSON(t *testing.T) {
	id := uuid.New()
	ev := VotesUpdated{
		StreamID:      id,
		Tally:         Tally{LeftVotes: 6, RightVotes: 4},
		AllTotalVotes: 30,
		Session:       &Tally{LeftVotes: 2},
		Source:        SourceUser,
		Timestamp:     1700000000000,
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, id.String(), got["streamId"])
	assert.EqualValues(t, 10, got["totalVotes"])
	assert.EqualValues(t, 2, got["liveSessionLeft"])
	assert.EqualValues(t, 0, got["liveSessionRight"])
	assert.Equal(t, "user", got["source"])

	ev.Session = nil
	raw, err = json.Marshal(ev)
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotContains(t, got, "liveSessionLeft")
	assert.NotContains(t, got, "userVote")
}
