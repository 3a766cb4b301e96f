package live

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-debate/backend/internal/models"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and fires due timers in deadline order, outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

// callbacks returns every scheduled callback, stopped ones included, to replay fire/cancel races.
func (c *fakeClock) callbacks() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := make([]func(), 0, len(c.timers))
	for _, t := range c.timers {
		fns = append(fns, t.fn)
	}
	return fns
}

type fakeStreams struct {
	streams map[uuid.UUID]*models.Stream
	err     error
}

func newFakeStreams(ss ...models.Stream) *fakeStreams {
	f := &fakeStreams{streams: make(map[uuid.UUID]*models.Stream)}
	for i := range ss {
		s := ss[i]
		f.streams[s.ID] = &s
	}
	return f
}

func (f *fakeStreams) GetStream(_ context.Context, id uuid.UUID) (*models.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.streams[id], nil
}

func (f *fakeStreams) ListEnabledStreams(context.Context) ([]models.Stream, error) {
	var out []models.Stream
	for _, s := range f.streams {
		if s.Enabled {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeParticipants map[string]*models.Participant

func (f fakeParticipants) GetParticipant(_ context.Context, id string) (*models.Participant, error) {
	return f[id], nil
}

type fakeJudges map[uuid.UUID][]models.Judge

func (f fakeJudges) GetJudges(_ context.Context, streamID uuid.UUID) ([]models.Judge, error) {
	return f[streamID], nil
}

type fakePresence map[uuid.UUID]int

func (f fakePresence) OnlineCount(streamID uuid.UUID) int { return f[streamID] }

type dailyKey struct {
	streamID uuid.UUID
	date     string
}

type fakeSinks struct {
	mu      sync.Mutex
	daily   map[dailyKey]Tally
	global  int
	history map[string][]models.VoteRecord
	saved   map[uuid.UUID]Tally
	started []models.LiveSession
	ended   []models.LiveSession
}

func newFakeSinks() *fakeSinks {
	return &fakeSinks{
		daily:   make(map[dailyKey]Tally),
		history: make(map[string][]models.VoteRecord),
		saved:   make(map[uuid.UUID]Tally),
	}
}

func (f *fakeSinks) AccumulateDaily(_ context.Context, streamID uuid.UUID, date string, l, r int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := dailyKey{streamID, date}
	t := f.daily[k]
	f.daily[k] = Tally{LeftVotes: t.LeftVotes + l, RightVotes: t.RightVotes + r}
	return nil
}

func (f *fakeSinks) IncrementGlobalTotal(_ context.Context, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount > 0 {
		f.global += amount
	}
	return nil
}

func (f *fakeSinks) AppendVoteHistory(_ context.Context, id string, rec models.VoteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[id] = append(f.history[id], rec)
	return nil
}

func (f *fakeSinks) SaveTally(_ context.Context, streamID uuid.UUID, l, r int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[streamID] = Tally{LeftVotes: l, RightVotes: r}
	return nil
}

func (f *fakeSinks) SessionStarted(_ context.Context, s models.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, s)
	return nil
}

func (f *fakeSinks) SessionEnded(_ context.Context, s models.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, s)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) ofType(typ string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.EventType() == typ {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	coord        *Coordinator
	clock        *fakeClock
	streams      *fakeStreams
	participants fakeParticipants
	judges       fakeJudges
	presence     fakePresence
	sinks        *fakeSinks
	schedules    *fakeSchedules
	pub          *recordingPublisher
}

func newHarness(ss ...models.Stream) *harness {
	return newHarnessWith(DefaultConfig(), ss...)
}

func newHarnessWith(cfg Config, ss ...models.Stream) *harness {
	h := &harness{
		clock:        newFakeClock(),
		streams:      newFakeStreams(ss...),
		participants: fakeParticipants{},
		judges:       fakeJudges{},
		presence:     fakePresence{},
		sinks:        newFakeSinks(),
		schedules:    &fakeSchedules{rows: make(map[uuid.UUID]models.LiveSchedule)},
		pub:          &recordingPublisher{},
	}
	h.coord = NewCoordinator(cfg, Deps{
		Streams:      h.streams,
		Participants: h.participants,
		Judges:       h.judges,
		Presence:     h.presence,
		Daily:        h.sinks,
		Global:       h.sinks,
		History:      h.sinks,
		Tallies:      h.sinks,
		Audit:        h.sinks,
		Schedules:    h.schedules,
		Publisher:    h.pub,
		Clock:        h.clock,
		Dispatch:     func(f func()) { f() },
	})
	return h
}

func enabledStream(name string) models.Stream {
	return models.Stream{ID: uuid.New(), Name: name, URL: "https://live.example.com/" + name, Enabled: true}
}

// slowTallies delays saves of non-zero tallies, so unordered writers land out of order.
type slowTallies struct {
	mu    sync.Mutex
	delay time.Duration
	saves []Tally
}

func (s *slowTallies) SaveTally(_ context.Context, _ uuid.UUID, l, r int) error {
	if l+r > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, Tally{LeftVotes: l, RightVotes: r})
	return nil
}

func (s *slowTallies) saved() []Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tally(nil), s.saves...)
}

type fakeSchedules struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.LiveSchedule
}

func (f *fakeSchedules) SaveSchedule(_ context.Context, s models.LiveSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.StreamID] = s
	return nil
}

func (f *fakeSchedules) DeleteSchedule(_ context.Context, streamID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, streamID)
	return nil
}

func (f *fakeSchedules) ListSchedules(context.Context) ([]models.LiveSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.LiveSchedule, 0, len(f.rows))
	for _, s := range f.rows {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSchedules) has(streamID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[streamID]
	return ok
}
