package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/config"
	"github.com/aura-debate/backend/internal/metrics"
	"github.com/aura-debate/backend/internal/models"
)

// Stop reasons recorded on live-status-changed and the session audit.
const (
	ReasonManual          = "manual"
	ReasonAutoTimeout     = "auto-timeout"
	ReasonVoteWindowEnded = "vote-window-ended"
	ReasonScheduledEnd    = "scheduled-end"
)

const sinkTimeout = 5 * time.Second

// Config holds the live-session rules.
type Config struct {
	VoteWindowOpen     time.Duration
	VoteWindowClose    time.Duration
	AutoStop           time.Duration
	AudienceWeight     int
	DefaultJudgeWeight int
	DefaultJudgeCount  int
}

// DefaultConfig returns the production rules: window 45s-60s, auto-stop 60s, weights 2/10, 3 judges.
func DefaultConfig() Config {
	return Config{
		VoteWindowOpen:     45 * time.Second,
		VoteWindowClose:    60 * time.Second,
		AutoStop:           60 * time.Second,
		AudienceWeight:     2,
		DefaultJudgeWeight: models.DefaultJudgeWeight,
		DefaultJudgeCount:  models.MaxJudgesPerStream,
	}
}

// ConfigFrom maps environment configuration onto live rules.
func ConfigFrom(c config.LiveConfig) Config {
	return Config{
		VoteWindowOpen:     c.VoteWindowOpen(),
		VoteWindowClose:    c.VoteWindowClose(),
		AutoStop:           c.AutoStop(),
		AudienceWeight:     c.AudienceWeight,
		DefaultJudgeWeight: c.DefaultJudgeWeight,
		DefaultJudgeCount:  c.DefaultJudgeCount,
	}
}

// Deps are the collaborators of a Coordinator. Any port may be nil except Streams.
type Deps struct {
	Streams      StreamDirectory
	Participants ParticipantDirectory
	Judges       JudgeConfig
	Presence     PresenceTracker
	Daily        DailySink
	Global       GlobalCounter
	History      VoteHistory
	Tallies      TallyStore
	Audit        SessionAudit
	Schedules    ScheduleStore
	Publisher    Publisher

	Clock  Clock
	Logger *zap.Logger
	// Dispatch starts the drain of a stream's persistence queue; defaults to a new goroutine.
	Dispatch func(func())
}

type liveSession struct {
	liveID    uuid.UUID
	name      string
	url       string
	startTime time.Time
}

type streamState struct {
	mu          sync.Mutex
	session     *liveSession
	generation  uint64
	windowTimer Timer
	stopTimer   Timer
	endTimer    Timer
	ai          aiSession
	sinks       sinkQueue

	schedule      *models.LiveSchedule
	scheduleTimer Timer
	scheduleGen   uint64
}

func (s *streamState) isLive() bool { return s.session != nil }

func (s *streamState) stopTimers() {
	if s.windowTimer != nil {
		s.windowTimer.Stop()
		s.windowTimer = nil
	}
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
}

// sinkQueue runs one stream's persistence writes one at a time, in the order queued.
type sinkQueue struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

// push queues job and reports whether the caller must start a drain.
func (q *sinkQueue) push(job func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, job)
	if q.running {
		return false
	}
	q.running = true
	return true
}

func (q *sinkQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()
		job()
	}
}

// Coordinator owns the live lifecycle, vote admission and tallies of every stream.
// All mutations of one stream's state are serialized by that stream's mutex, and
// events for a stream are published while it is held so they keep mutation order.
// Persistence writes are queued under the same mutex, so they reach the sinks in
// mutation order too.
type Coordinator struct {
	cfg      Config
	ledger   *Ledger
	registry *Registry

	streams      StreamDirectory
	participants ParticipantDirectory
	judges       JudgeConfig
	presence     PresenceTracker
	daily        DailySink
	global       GlobalCounter
	history      VoteHistory
	tallies      TallyStore
	audit        SessionAudit
	schedules    ScheduleStore
	publisher    Publisher

	clock    Clock
	log      *zap.Logger
	dispatch func(func())

	mu     sync.Mutex
	states map[uuid.UUID]*streamState
}

// NewCoordinator creates a coordinator with empty tallies.
func NewCoordinator(cfg Config, d Deps) *Coordinator {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Dispatch == nil {
		d.Dispatch = func(f func()) { go f() }
	}
	if cfg.DefaultJudgeWeight <= 0 {
		cfg.DefaultJudgeWeight = models.DefaultJudgeWeight
	}
	return &Coordinator{
		cfg:          cfg,
		ledger:       NewLedger(),
		registry:     NewRegistry(),
		streams:      d.Streams,
		participants: d.Participants,
		judges:       d.Judges,
		presence:     d.Presence,
		daily:        d.Daily,
		global:       d.Global,
		history:      d.History,
		tallies:      d.Tallies,
		audit:        d.Audit,
		schedules:    d.Schedules,
		publisher:    d.Publisher,
		clock:        d.Clock,
		log:          d.Logger,
		dispatch:     d.Dispatch,
		states:       make(map[uuid.UUID]*streamState),
	}
}

// SetPublisher replaces the event publisher. Used when the hub is created after the coordinator.
func (c *Coordinator) SetPublisher(p Publisher) {
	c.mu.Lock()
	c.publisher = p
	c.mu.Unlock()
}

// Restore seeds persistent tallies loaded at startup.
func (c *Coordinator) Restore(tallies map[uuid.UUID]Tally) {
	c.ledger.Load(tallies)
}

// StartOptions tunes StartLive.
type StartOptions struct {
	AutoStartAI bool
}

// StartLive moves an idle, enabled stream to live and opens a fresh vote session.
// The persistent tally is left untouched; the session tally starts at zero.
func (c *Coordinator) StartLive(ctx context.Context, streamID uuid.UUID, opts StartOptions) (models.LiveSession, error) {
	stream, err := c.streams.GetStream(ctx, streamID)
	if err != nil {
		return models.LiveSession{}, err
	}
	if stream == nil {
		return models.LiveSession{}, ErrStreamNotFound
	}
	if !stream.Enabled {
		return models.LiveSession{}, ErrStreamDisabled
	}

	st := c.state(streamID)
	st.mu.Lock()
	if st.isLive() {
		st.mu.Unlock()
		return models.LiveSession{}, ErrAlreadyLive
	}

	st.stopTimers()
	st.generation++
	gen := st.generation
	now := c.clock.Now()
	sess := &liveSession{liveID: uuid.New(), name: stream.Name, url: stream.URL, startTime: now}
	st.session = sess

	c.registry.Open(SessionKey{StreamID: streamID, LiveID: sess.liveID})
	c.ledger.ResetSession(streamID)

	st.windowTimer = c.clock.AfterFunc(c.cfg.VoteWindowOpen, func() { c.openWindow(streamID, gen) })
	st.stopTimer = c.clock.AfterFunc(c.cfg.AutoStop, func() { c.autoStop(streamID, gen) })

	start := now
	c.publish(LiveStatusChanged{
		StreamID:  streamID,
		LiveID:    sess.liveID,
		Status:    LiveStarted,
		StreamURL: stream.URL,
		StartTime: &start,
		Timestamp: millis(now),
	})
	session := Tally{}
	c.publish(VotesUpdated{
		StreamID:      streamID,
		Tally:         c.ledger.Current(streamID),
		AllTotalVotes: c.ledger.AllTotal(),
		Session:       &session,
		Source:        SourceLiveStart,
		Timestamp:     millis(now),
	})
	if opts.AutoStartAI {
		if _, err := c.startAILocked(st, streamID); err != nil {
			c.log.Info("ai already running at live start", zap.String("stream_id", streamID.String()))
		}
	}
	record := sessionRecord(streamID, sess)
	if c.audit != nil {
		c.sink(st, "session_start", func(ctx context.Context) error { return c.audit.SessionStarted(ctx, record) })
	}
	st.mu.Unlock()

	metrics.LiveStreams.Inc()
	metrics.LiveTransitions.WithLabelValues(string(LiveStarted), "").Inc()
	c.log.Info("live started",
		zap.String("stream_id", streamID.String()),
		zap.String("live_id", sess.liveID.String()),
	)
	return record, nil
}

// StopResult reports the outcome of StopLive.
type StopResult struct {
	Stopped bool                `json:"stopped"`
	Session *models.LiveSession `json:"session,omitempty"`
}

// StopLive ends the stream's live session. Stopping an idle stream succeeds with Stopped=false.
func (c *Coordinator) StopLive(ctx context.Context, streamID uuid.UUID, reason string) (StopResult, error) {
	if reason == "" {
		reason = ReasonManual
	}
	st := c.view(streamID)
	st.mu.Lock()
	if !st.isLive() {
		st.mu.Unlock()
		return StopResult{Stopped: false}, nil
	}
	ended := c.stopLocked(st, streamID, reason)
	st.mu.Unlock()

	c.afterStop(ended)
	return StopResult{Stopped: true, Session: &ended}, nil
}

// stopLocked tears down the live session. Caller holds st.mu and must call afterStop once released.
func (c *Coordinator) stopLocked(st *streamState, streamID uuid.UUID, reason string) models.LiveSession {
	st.stopTimers()
	st.generation++
	now := c.clock.Now()
	sess := st.session
	final := c.ledger.Session(streamID)

	c.ledger.Reset(streamID)
	c.ledger.ResetSession(streamID)
	c.registry.Discard(SessionKey{StreamID: streamID, LiveID: sess.liveID})
	st.session = nil
	c.stopAILocked(st, streamID)

	stop := now
	c.publish(LiveStatusChanged{
		StreamID:  streamID,
		LiveID:    sess.liveID,
		Status:    LiveStopped,
		StopTime:  &stop,
		Reason:    reason,
		Timestamp: millis(now),
	})
	c.publish(VotesUpdated{
		StreamID:      streamID,
		AllTotalVotes: c.ledger.AllTotal(),
		Source:        SourceLiveEnd,
		Timestamp:     millis(now),
	})

	record := sessionRecord(streamID, sess)
	record.IsLive = false
	record.StopTime = &stop
	record.StopReason = reason
	record.LeftVotes = final.LeftVotes
	record.RightVotes = final.RightVotes

	if c.daily != nil && final.Total() > 0 {
		date := stop.Format("2006-01-02")
		c.sink(st, "daily", func(ctx context.Context) error {
			return c.daily.AccumulateDaily(ctx, streamID, date, final.LeftVotes, final.RightVotes)
		})
	}
	c.persistTally(st, streamID, Tally{})
	if c.audit != nil {
		c.sink(st, "session_end", func(ctx context.Context) error { return c.audit.SessionEnded(ctx, record) })
	}
	return record
}

// afterStop records a finished session once the stream lock is released.
func (c *Coordinator) afterStop(ended models.LiveSession) {
	metrics.LiveStreams.Dec()
	metrics.LiveTransitions.WithLabelValues(string(LiveStopped), ended.StopReason).Inc()
	c.log.Info("live stopped",
		zap.String("stream_id", ended.StreamID.String()),
		zap.String("live_id", ended.LiveID.String()),
		zap.String("reason", ended.StopReason),
		zap.Int("left_votes", ended.LeftVotes),
		zap.Int("right_votes", ended.RightVotes),
	)
}

func (c *Coordinator) openWindow(streamID uuid.UUID, gen uint64) {
	st := c.state(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.generation != gen || !st.isLive() {
		return
	}
	st.windowTimer = nil
	now := c.clock.Now()
	c.publish(VoteWindowChanged{
		StreamID:  streamID,
		LiveID:    st.session.liveID,
		Status:    "open",
		OpensAt:   st.session.startTime.Add(c.cfg.VoteWindowOpen),
		ClosesAt:  st.session.startTime.Add(c.cfg.VoteWindowClose),
		Timestamp: millis(now),
	})
}

func (c *Coordinator) autoStop(streamID uuid.UUID, gen uint64) {
	st := c.state(streamID)
	st.mu.Lock()
	if st.generation != gen || !st.isLive() {
		st.mu.Unlock()
		return
	}
	st.stopTimer = nil
	ended := c.stopLocked(st, streamID, ReasonAutoTimeout)
	st.mu.Unlock()
	c.afterStop(ended)
}

// ActiveLiveID returns the live ID of the stream's current session.
func (c *Coordinator) ActiveLiveID(streamID uuid.UUID) (uuid.UUID, bool) {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.isLive() {
		return uuid.Nil, false
	}
	return st.session.liveID, true
}

// LiveCount returns the number of streams currently live.
func (c *Coordinator) LiveCount() int {
	n := 0
	for _, st := range c.allStates() {
		st.mu.Lock()
		if st.isLive() {
			n++
		}
		st.mu.Unlock()
	}
	return n
}

// StreamStatus is the externally visible state of one stream.
type StreamStatus struct {
	StreamID    uuid.UUID  `json:"streamId"`
	Name        string     `json:"name,omitempty"`
	IsLive      bool       `json:"isLive"`
	LiveID      *uuid.UUID `json:"liveId,omitempty"`
	StreamURL   string     `json:"streamUrl,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	Tally       Tally      `json:"votes"`
	Session     *Tally     `json:"liveSessionVotes,omitempty"`
	AIStatus    AIState    `json:"aiStatus"`
	AISessionID *uuid.UUID `json:"aiSessionId,omitempty"`
	Online      int        `json:"onlineCount"`

	Schedule *models.LiveSchedule `json:"schedule,omitempty"`
}

// Status returns the state of one stream.
func (c *Coordinator) Status(streamID uuid.UUID) StreamStatus {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return c.statusLocked(st, streamID)
}

func (c *Coordinator) statusLocked(st *streamState, streamID uuid.UUID) StreamStatus {
	s := StreamStatus{
		StreamID: streamID,
		Tally:    c.ledger.Current(streamID),
		AIStatus: st.ai.status(),
	}
	if st.ai.id != uuid.Nil {
		id := st.ai.id
		s.AISessionID = &id
	}
	if c.presence != nil {
		s.Online = c.presence.OnlineCount(streamID)
	}
	if st.schedule != nil {
		sched := *st.schedule
		s.Schedule = &sched
	}
	if st.isLive() {
		liveID, start := st.session.liveID, st.session.startTime
		session := c.ledger.Session(streamID)
		s.IsLive = true
		s.LiveID = &liveID
		s.Name = st.session.name
		s.StreamURL = st.session.url
		s.StartTime = &start
		s.Session = &session
	}
	return s
}

// Statuses returns the state of every enabled stream plus any stream with state in memory.
func (c *Coordinator) Statuses(ctx context.Context) []StreamStatus {
	seen := make(map[uuid.UUID]bool)
	var out []StreamStatus
	add := func(id uuid.UUID, name string) {
		if seen[id] {
			return
		}
		seen[id] = true
		s := c.Status(id)
		if s.Name == "" {
			s.Name = name
		}
		out = append(out, s)
	}

	streams, err := c.streams.ListEnabledStreams(ctx)
	if err != nil {
		c.log.Warn("list enabled streams", zap.Error(err))
	}
	for _, s := range streams {
		add(s.ID, s.Name)
	}
	for _, id := range c.ledger.Streams() {
		add(id, "")
	}
	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.states))
	for id := range c.states {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		add(id, "")
	}
	return out
}

// Snapshot is the full state sent to a newly connected subscriber.
type Snapshot struct {
	Streams       []StreamStatus `json:"streams"`
	AllTotalVotes int            `json:"allTotalVotes"`
	LiveCount     int            `json:"liveCount"`
	Timestamp     int64          `json:"timestamp"`
}

func (Snapshot) EventType() string { return TypeState }

// Snapshot captures the current state of every stream.
func (c *Coordinator) Snapshot(ctx context.Context) Snapshot {
	streams := c.Statuses(ctx)
	live := 0
	for _, s := range streams {
		if s.IsLive {
			live++
		}
	}
	return Snapshot{
		Streams:       streams,
		AllTotalVotes: c.ledger.AllTotal(),
		LiveCount:     live,
		Timestamp:     millis(c.clock.Now()),
	}
}

// VoteRatio is the viewer-facing score of a stream.
type VoteRatio struct {
	StreamID        uuid.UUID `json:"streamId"`
	IsLive          bool      `json:"isLive"`
	LeftVotes       int       `json:"leftVotes"`
	RightVotes      int       `json:"rightVotes"`
	TotalVotes      int       `json:"totalVotes"`
	LeftPercentage  int       `json:"leftPercentage"`
	RightPercentage int       `json:"rightPercentage"`
}

// VoteRatio returns the session tally while live and 0:0 otherwise.
func (c *Coordinator) VoteRatio(streamID uuid.UUID) VoteRatio {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	var t Tally
	if st.isLive() {
		t = c.ledger.Session(streamID)
	}
	left, right := t.Percentages()
	return VoteRatio{
		StreamID:        streamID,
		IsLive:          st.isLive(),
		LeftVotes:       t.LeftVotes,
		RightVotes:      t.RightVotes,
		TotalVotes:      t.Total(),
		LeftPercentage:  left,
		RightPercentage: right,
	}
}

// AllTotalVotes sums the persistent tallies of every stream.
func (c *Coordinator) AllTotalVotes() int { return c.ledger.AllTotal() }

// Votes returns both tallies of a stream.
func (c *Coordinator) Votes(streamID uuid.UUID) (current Tally, session *Tally) {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	current = c.ledger.Current(streamID)
	if st.isLive() {
		s := c.ledger.Session(streamID)
		session = &s
	}
	return current, session
}

// Shutdown cancels every pending timer, schedules included. Live sessions and
// persisted schedules are left as they are.
func (c *Coordinator) Shutdown() {
	for _, st := range c.allStates() {
		st.mu.Lock()
		st.stopTimers()
		st.generation++
		if st.scheduleTimer != nil {
			st.scheduleTimer.Stop()
			st.scheduleTimer = nil
		}
		st.scheduleGen++
		st.mu.Unlock()
	}
}

func (c *Coordinator) state(streamID uuid.UUID) *streamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[streamID]
	if !ok {
		st = &streamState{}
		c.states[streamID] = st
	}
	return st
}

// view returns the stream's state without registering unknown streams.
func (c *Coordinator) view(streamID uuid.UUID) *streamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[streamID]; ok {
		return st
	}
	return &streamState{}
}

func (c *Coordinator) allStates() []*streamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*streamState, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, st)
	}
	return out
}

func (c *Coordinator) publish(ev Event) {
	c.mu.Lock()
	p := c.publisher
	c.mu.Unlock()
	if p != nil {
		p.Publish(ev)
	}
}

// persistTally queues a tally save. Caller holds st.mu.
func (c *Coordinator) persistTally(st *streamState, streamID uuid.UUID, t Tally) {
	if c.tallies == nil {
		return
	}
	c.sink(st, "tally", func(ctx context.Context) error {
		return c.tallies.SaveTally(ctx, streamID, t.LeftVotes, t.RightVotes)
	})
}

// sink queues a persistence write on the stream's queue and runs it off the caller's path.
// Caller holds st.mu. Failures are logged and dropped.
func (c *Coordinator) sink(st *streamState, name string, fn func(ctx context.Context) error) {
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.SinkFailures.WithLabelValues(name).Inc()
			c.log.Warn("persistence sink failed", zap.String("sink", name), zap.Error(err))
		}
	}
	if st.sinks.push(job) {
		c.dispatch(st.sinks.drain)
	}
}

func sessionRecord(streamID uuid.UUID, s *liveSession) models.LiveSession {
	return models.LiveSession{
		LiveID:    s.liveID,
		StreamID:  streamID,
		StartTime: s.startTime,
		IsLive:    true,
	}
}
