package live

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-debate/backend/internal/models"
)

// StreamDirectory resolves configured streams. GetStream returns (nil, nil) for an unknown ID.
type StreamDirectory interface {
	GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error)
	ListEnabledStreams(ctx context.Context) ([]models.Stream, error)
}

// ParticipantDirectory resolves participants. GetParticipant returns (nil, nil) for an unknown ID.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
}

// JudgeConfig returns the judge panel of a stream (up to three judges).
type JudgeConfig interface {
	GetJudges(ctx context.Context, streamID uuid.UUID) ([]models.Judge, error)
}

// PresenceTracker reports the online audience of a stream.
type PresenceTracker interface {
	OnlineCount(streamID uuid.UUID) int
}

// DailySink accumulates finished session tallies per stream and date. Never decremented.
type DailySink interface {
	AccumulateDaily(ctx context.Context, streamID uuid.UUID, date string, leftDelta, rightDelta int) error
}

// GlobalCounter is the monotonic all-time vote counter.
type GlobalCounter interface {
	IncrementGlobalTotal(ctx context.Context, amount int) error
}

// VoteHistory receives the per-participant audit trail of admitted votes.
type VoteHistory interface {
	AppendVoteHistory(ctx context.Context, participantID string, rec models.VoteRecord) error
}

// TallyStore persists the per-stream persistent tally.
type TallyStore interface {
	SaveTally(ctx context.Context, streamID uuid.UUID, left, right int) error
}

// SessionAudit keeps an audit trail of live sessions.
type SessionAudit interface {
	SessionStarted(ctx context.Context, s models.LiveSession) error
	SessionEnded(ctx context.Context, s models.LiveSession) error
}

// Publisher fans events out to real-time subscribers.
type Publisher interface {
	Publish(ev Event)
}

// ScheduleStore persists pending live schedules so they can be re-armed after a restart.
type ScheduleStore interface {
	SaveSchedule(ctx context.Context, s models.LiveSchedule) error
	DeleteSchedule(ctx context.Context, streamID uuid.UUID) error
	ListSchedules(ctx context.Context) ([]models.LiveSchedule, error)
}
