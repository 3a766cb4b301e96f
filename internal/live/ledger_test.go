package live

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTallyPercentages(t *testing.T) {
	cases := []struct {
		tally       Tally
		left, right int
	}{
		{Tally{}, 50, 50},
		{Tally{LeftVotes: 2, RightVotes: 1}, 67, 33},
		{Tally{LeftVotes: 1, RightVotes: 1}, 50, 50},
		{Tally{LeftVotes: 10, RightVotes: 0}, 100, 0},
	}
	for _, tc := range cases {
		l, r := tc.tally.Percentages()
		assert.Equal(t, tc.left, l, "%+v", tc.tally)
		assert.Equal(t, tc.right, r, "%+v", tc.tally)
	}
}

func TestLedger_NeverNegative(t *testing.T) {
	l := NewLedger()
	id := uuid.New()

	assert.Equal(t, Tally{}, l.Add(id, -5, -1))
	assert.Equal(t, Tally{LeftVotes: 3}, l.Set(id, 3, -2))
	assert.Equal(t, Tally{LeftVotes: 1}, l.Add(id, -2, 0))
	assert.Equal(t, Tally{}, l.SetSession(id, -1, -1))
}

func TestLedger_SessionIndependentOfCurrent(t *testing.T) {
	l := NewLedger()
	id := uuid.New()

	l.Add(id, 4, 2)
	l.AddSession(id, 2, 0)
	l.ResetSession(id)

	assert.Equal(t, Tally{LeftVotes: 4, RightVotes: 2}, l.Current(id))
	assert.Equal(t, Tally{}, l.Session(id))
}

func TestLedger_AllTotalAndLoad(t *testing.T) {
	l := NewLedger()
	a, b := uuid.New(), uuid.New()
	l.Load(map[uuid.UUID]Tally{
		a: {LeftVotes: 10, RightVotes: 5},
		b: {LeftVotes: -3, RightVotes: 7},
	})

	assert.Equal(t, 22, l.AllTotal())
	assert.ElementsMatch(t, []uuid.UUID{a, b}, l.Streams())

	l.Reset(a)
	assert.Equal(t, 7, l.AllTotal())
}
