package live

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aura-debate/backend/internal/models"
)

// Event type names on the real-time channel.
const (
	TypeLiveStatusChanged  = "live-status-changed"
	TypeVotesUpdated       = "votes-updated"
	TypeVoteWindowChanged  = "vote-window-changed"
	TypeAIStatus           = "aiStatus"
	TypeStreamOnlineUpdate = "stream-online-update"
	TypeJudgesUpdated      = "judges-updated"
	TypeState              = "state"

	TypeDebateUpdated         = "debate-updated"
	TypeDebateFlowUpdated     = "debate-flow-updated"
	TypeDebateFlowControl     = "debate-flow-control"
	TypeLiveScheduleUpdated   = "live-schedule-updated"
	TypeLiveScheduleCancelled = "live-schedule-cancelled"
)

// Event is a state change delivered to real-time subscribers.
type Event interface {
	EventType() string
}

// LiveStatus is the status carried by LiveStatusChanged.
type LiveStatus string

const (
	LiveStarted LiveStatus = "started"
	LiveStopped LiveStatus = "stopped"
)

// VoteSource tells subscribers what caused a tally change.
type VoteSource string

const (
	SourceUser      VoteSource = "user"
	SourceAdmin     VoteSource = "admin"
	SourceCeiling   VoteSource = "ceiling"
	SourceLiveStart VoteSource = "live-start"
	SourceLiveEnd   VoteSource = "live-end-reset"
)

// LiveStatusChanged is published when a stream starts or stops.
type LiveStatusChanged struct {
	StreamID  uuid.UUID  `json:"streamId"`
	LiveID    uuid.UUID  `json:"liveId"`
	Status    LiveStatus `json:"status"`
	StreamURL string     `json:"streamUrl,omitempty"`
	StartTime *time.Time `json:"startTime,omitempty"`
	StopTime  *time.Time `json:"stopTime,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

func (LiveStatusChanged) EventType() string { return TypeLiveStatusChanged }

// VoteDetail describes the admitted vote behind a user-sourced update.
type VoteDetail struct {
	ParticipantID string      `json:"userId"`
	Side          models.Side `json:"side"`
	Weight        int         `json:"votes"`
	AsJudge       bool        `json:"asJudge"`
}

// VotesUpdated carries a stream's tallies. Session is set only while the stream is live.
type VotesUpdated struct {
	StreamID      uuid.UUID
	Tally         Tally
	AllTotalVotes int
	Session       *Tally
	Source        VoteSource
	Vote          *VoteDetail
	Timestamp     int64
}

func (VotesUpdated) EventType() string { return TypeVotesUpdated }

// MarshalJSON flattens the session tally into liveSessionLeft / liveSessionRight.
func (e VotesUpdated) MarshalJSON() ([]byte, error) {
	type wire struct {
		StreamID         uuid.UUID   `json:"streamId"`
		LeftVotes        int         `json:"leftVotes"`
		RightVotes       int         `json:"rightVotes"`
		TotalVotes       int         `json:"totalVotes"`
		AllTotalVotes    int         `json:"allTotalVotes"`
		LiveSessionLeft  *int        `json:"liveSessionLeft,omitempty"`
		LiveSessionRight *int        `json:"liveSessionRight,omitempty"`
		Source           VoteSource  `json:"source"`
		UserVote         *VoteDetail `json:"userVote,omitempty"`
		Timestamp        int64       `json:"timestamp"`
	}
	w := wire{
		StreamID:      e.StreamID,
		LeftVotes:     e.Tally.LeftVotes,
		RightVotes:    e.Tally.RightVotes,
		TotalVotes:    e.Tally.Total(),
		AllTotalVotes: e.AllTotalVotes,
		Source:        e.Source,
		UserVote:      e.Vote,
		Timestamp:     e.Timestamp,
	}
	if e.Session != nil {
		left, right := e.Session.LeftVotes, e.Session.RightVotes
		w.LiveSessionLeft = &left
		w.LiveSessionRight = &right
	}
	return json.Marshal(w)
}

// VoteWindowChanged is published when a live session's vote window opens.
type VoteWindowChanged struct {
	StreamID  uuid.UUID `json:"streamId"`
	LiveID    uuid.UUID `json:"liveId"`
	Status    string    `json:"status"` // open
	OpensAt   time.Time `json:"opensAt"`
	ClosesAt  time.Time `json:"closesAt"`
	Timestamp int64     `json:"timestamp"`
}

func (VoteWindowChanged) EventType() string { return TypeVoteWindowChanged }

// AIStatusChanged is published when a stream's AI commentary changes state.
type AIStatusChanged struct {
	StreamID    uuid.UUID  `json:"streamId"`
	AISessionID *uuid.UUID `json:"aiSessionId,omitempty"`
	Status      AIState    `json:"status"`
	Timestamp   int64      `json:"timestamp"`
}

func (AIStatusChanged) EventType() string { return TypeAIStatus }

// StreamOnlineUpdate carries the online audience of every stream.
type StreamOnlineUpdate struct {
	StreamOnlineCounts map[string]int `json:"streamOnlineCounts"`
	Timestamp          int64          `json:"timestamp"`
}

func (StreamOnlineUpdate) EventType() string { return TypeStreamOnlineUpdate }

// JudgesUpdated is published when a stream's judge panel is replaced.
type JudgesUpdated struct {
	StreamID  uuid.UUID      `json:"streamId"`
	Judges    []models.Judge `json:"judges"`
	Timestamp int64          `json:"timestamp"`
}

func (JudgesUpdated) EventType() string { return TypeJudgesUpdated }

// DebateUpdated is published when a debate topic changes or is linked to or unlinked from a stream.
// Debate is nil after an unlink or delete.
type DebateUpdated struct {
	StreamID  *uuid.UUID     `json:"streamId,omitempty"`
	DebateID  uuid.UUID      `json:"debateId"`
	Debate    *models.Debate `json:"debate"`
	Timestamp int64          `json:"timestamp"`
}

func (DebateUpdated) EventType() string { return TypeDebateUpdated }

// DebateFlowUpdated carries a stream's saved debate flow.
type DebateFlowUpdated struct {
	StreamID  uuid.UUID            `json:"streamId"`
	Segments  []models.FlowSegment `json:"segments"`
	Timestamp int64                `json:"timestamp"`
}

func (DebateFlowUpdated) EventType() string { return TypeDebateFlowUpdated }

// DebateFlowControl relays a flow timer command to display clients.
type DebateFlowControl struct {
	StreamID  uuid.UUID `json:"streamId"`
	Action    string    `json:"action"`
	Timestamp int64     `json:"timestamp"`
}

func (DebateFlowControl) EventType() string { return TypeDebateFlowControl }

// LiveScheduleUpdated is published when a timed start is armed.
type LiveScheduleUpdated struct {
	Schedule  models.LiveSchedule `json:"schedule"`
	Timestamp int64               `json:"timestamp"`
}

func (LiveScheduleUpdated) EventType() string { return TypeLiveScheduleUpdated }

// LiveScheduleCancelled is published when a pending schedule is dropped, either by an
// operator or because it fired.
type LiveScheduleCancelled struct {
	StreamID  uuid.UUID `json:"streamId"`
	Reason    string    `json:"reason"`
	Timestamp int64     `json:"timestamp"`
}

func (LiveScheduleCancelled) EventType() string { return TypeLiveScheduleCancelled }

// Millis converts t to Unix milliseconds, the timestamp unit of every event.
func Millis(t time.Time) int64 { return millis(t) }

func millis(t time.Time) int64 { return t.UnixNano() / int64(time.Millisecond) }
