package live

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TryRecordOncePerSession(t *testing.T) {
	r := NewRegistry()
	key := SessionKey{StreamID: uuid.New(), LiveID: uuid.New()}
	r.Open(key)

	require.NoError(t, r.TryRecord(key, "u1", false))
	assert.ErrorIs(t, r.TryRecord(key, "u1", false), ErrAlreadyVoted)
	assert.ErrorIs(t, r.TryRecord(key, "u1", true), ErrAlreadyVoted, "judge and audience sets are disjoint")
	assert.True(t, r.HasVoted(key, "u1"))

	require.NoError(t, r.TryRecord(key, "j1", true))
	p, j := r.Counts(key)
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, j)
}

func TestRegistry_KeyedByLiveInstance(t *testing.T) {
	r := NewRegistry()
	stream := uuid.New()
	a := SessionKey{StreamID: stream, LiveID: uuid.New()}
	b := SessionKey{StreamID: stream, LiveID: uuid.New()}
	r.Open(a)
	require.NoError(t, r.TryRecord(a, "u1", false))

	r.Discard(a)
	assert.False(t, r.IsOpen(a))
	assert.ErrorIs(t, r.TryRecord(a, "u1", false), ErrStreamNotLive)

	r.Open(b)
	assert.NoError(t, r.TryRecord(b, "u1", false))
}

func TestRegistry_ConcurrentCheckAndSet(t *testing.T) {
	r := NewRegistry()
	key := SessionKey{StreamID: uuid.New(), LiveID: uuid.New()}
	r.Open(key)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryRecord(key, "same", false) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}
