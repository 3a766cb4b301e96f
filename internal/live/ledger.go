package live

import (
	"sync"

	"github.com/google/uuid"
)

// Tally is a pair of non-negative vote counters.
type Tally struct {
	LeftVotes  int `json:"leftVotes"`
	RightVotes int `json:"rightVotes"`
}

// Total returns the sum of both sides.
func (t Tally) Total() int { return t.LeftVotes + t.RightVotes }

// Percentages returns the rounded share of each side; an empty tally reads 50/50.
func (t Tally) Percentages() (left, right int) {
	total := t.Total()
	if total == 0 {
		return 50, 50
	}
	left = (t.LeftVotes*200 + total) / (2 * total)
	right = (t.RightVotes*200 + total) / (2 * total)
	return left, right
}

// Ledger holds the persistent ("current") and session tallies of every stream.
// Counters never go below zero.
type Ledger struct {
	mu      sync.Mutex
	current map[uuid.UUID]*Tally
	session map[uuid.UUID]*Tally
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		current: make(map[uuid.UUID]*Tally),
		session: make(map[uuid.UUID]*Tally),
	}
}

// Load seeds persistent tallies, e.g. from the database at startup.
func (l *Ledger) Load(tallies map[uuid.UUID]Tally) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range tallies {
		t := clamp(t)
		l.current[id] = &t
	}
}

// Current returns the persistent tally of a stream.
func (l *Ledger) Current(streamID uuid.UUID) Tally {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.current[streamID]; ok {
		return *t
	}
	return Tally{}
}

// Session returns the session tally of a stream.
func (l *Ledger) Session(streamID uuid.UUID) Tally {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.session[streamID]; ok {
		return *t
	}
	return Tally{}
}

// Add applies deltas to the persistent tally.
func (l *Ledger) Add(streamID uuid.UUID, left, right int) Tally {
	return l.apply(l.current, streamID, func(t Tally) Tally {
		return Tally{LeftVotes: t.LeftVotes + left, RightVotes: t.RightVotes + right}
	})
}

// Set overwrites the persistent tally.
func (l *Ledger) Set(streamID uuid.UUID, left, right int) Tally {
	return l.apply(l.current, streamID, func(Tally) Tally {
		return Tally{LeftVotes: left, RightVotes: right}
	})
}

// Reset zeroes the persistent tally.
func (l *Ledger) Reset(streamID uuid.UUID) Tally {
	return l.Set(streamID, 0, 0)
}

// AddSession applies deltas to the session tally.
func (l *Ledger) AddSession(streamID uuid.UUID, left, right int) Tally {
	return l.apply(l.session, streamID, func(t Tally) Tally {
		return Tally{LeftVotes: t.LeftVotes + left, RightVotes: t.RightVotes + right}
	})
}

// SetSession overwrites the session tally.
func (l *Ledger) SetSession(streamID uuid.UUID, left, right int) Tally {
	return l.apply(l.session, streamID, func(Tally) Tally {
		return Tally{LeftVotes: left, RightVotes: right}
	})
}

// ResetSession zeroes the session tally.
func (l *Ledger) ResetSession(streamID uuid.UUID) Tally {
	return l.SetSession(streamID, 0, 0)
}

// AllTotal sums the persistent tallies of every known stream.
func (l *Ledger) AllTotal() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := 0
	for _, t := range l.current {
		sum += t.Total()
	}
	return sum
}

// Streams returns every stream with a persistent tally.
func (l *Ledger) Streams() []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(l.current))
	for id := range l.current {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) apply(m map[uuid.UUID]*Tally, streamID uuid.UUID, fn func(Tally) Tally) Tally {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := m[streamID]
	if !ok {
		t = &Tally{}
		m[streamID] = t
	}
	*t = clamp(fn(*t))
	return *t
}

func clamp(t Tally) Tally {
	if t.LeftVotes < 0 {
		t.LeftVotes = 0
	}
	if t.RightVotes < 0 {
		t.RightVotes = 0
	}
	return t
}
