package worker

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/queue"
)

// Pusher enqueues sink jobs; *queue.Queue implements it.
type Pusher interface {
	Push(ctx context.Context, t queue.JobType, payload interface{}) error
}

// QueueSink hands the live coordinator's persistence side effects to the worker.
// It implements live.DailySink, live.GlobalCounter, live.VoteHistory and live.TallyStore.
type QueueSink struct {
	q Pusher
}

// NewQueueSink creates a sink that enqueues onto q.
func NewQueueSink(q Pusher) *QueueSink {
	return &QueueSink{q: q}
}

func (s *QueueSink) AccumulateDaily(ctx context.Context, streamID uuid.UUID, date string, leftDelta, rightDelta int) error {
	return s.q.Push(ctx, queue.JobTypeDailyAccumulate, queue.DailyPayload{
		StreamID:   streamID,
		Date:       date,
		LeftDelta:  leftDelta,
		RightDelta: rightDelta,
	})
}

func (s *QueueSink) IncrementGlobalTotal(ctx context.Context, amount int) error {
	if amount <= 0 {
		return nil
	}
	return s.q.Push(ctx, queue.JobTypeGlobalIncrement, queue.GlobalPayload{Amount: amount})
}

func (s *QueueSink) AppendVoteHistory(ctx context.Context, participantID string, rec models.VoteRecord) error {
	return s.q.Push(ctx, queue.JobTypeVoteRecord, queue.VoteRecordPayload{ParticipantID: participantID, Record: rec})
}

func (s *QueueSink) SaveTally(ctx context.Context, streamID uuid.UUID, left, right int) error {
	return s.q.Push(ctx, queue.JobTypeTallySave, queue.TallyPayload{StreamID: streamID, LeftVotes: left, RightVotes: right})
}
