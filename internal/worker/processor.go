package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/pkg/queue"
)

// EventDailyStatsUpdated tells dashboards that a day's statistics changed.
const EventDailyStatsUpdated = "daily-stats-updated"

// DailyStatsUpdated is the payload of EventDailyStatsUpdated.
type DailyStatsUpdated struct {
	StreamID   string `json:"streamId"`
	Date       string `json:"date"`
	LeftDelta  int    `json:"leftDelta"`
	RightDelta int    `json:"rightDelta"`
}

// JobSource yields sink jobs; *queue.Queue implements it.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Notifier publishes events to the real-time channel; *realtime.RedisPubSub implements it.
type Notifier interface {
	Publish(ctx context.Context, eventType string, v interface{}) error
}

// Stores are the Postgres-backed targets of sink jobs.
type Stores struct {
	Daily   live.DailySink
	Global  live.GlobalCounter
	History live.VoteHistory
	Tallies live.TallyStore
}

// Processor applies sink jobs to the stores.
type Processor struct {
	stores   Stores
	source   JobSource
	notifier Notifier
	backoff  time.Duration
	logger   *zap.Logger
}

// NewProcessor creates a sink job processor. notifier may be nil.
func NewProcessor(stores Stores, source JobSource, notifier Notifier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{stores: stores, source: source, notifier: notifier, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one sink job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeDailyAccumulate:
		var pl queue.DailyPayload
		if err := job.Decode(&pl); err != nil {
			return err
		}
		if err := p.stores.Daily.AccumulateDaily(ctx, pl.StreamID, pl.Date, pl.LeftDelta, pl.RightDelta); err != nil {
			return fmt.Errorf("accumulate daily: %w", err)
		}
		p.notifyDaily(ctx, pl)
		return nil

	case queue.JobTypeGlobalIncrement:
		var pl queue.GlobalPayload
		if err := job.Decode(&pl); err != nil {
			return err
		}
		return p.stores.Global.IncrementGlobalTotal(ctx, pl.Amount)

	case queue.JobTypeVoteRecord:
		var pl queue.VoteRecordPayload
		if err := job.Decode(&pl); err != nil {
			return err
		}
		return p.stores.History.AppendVoteHistory(ctx, pl.ParticipantID, pl.Record)

	case queue.JobTypeTallySave:
		var pl queue.TallyPayload
		if err := job.Decode(&pl); err != nil {
			return err
		}
		return p.stores.Tallies.SaveTally(ctx, pl.StreamID, pl.LeftVotes, pl.RightVotes)
	}
	return fmt.Errorf("unknown job type: %s", job.Type)
}

func (p *Processor) notifyDaily(ctx context.Context, pl queue.DailyPayload) {
	if p.notifier == nil {
		return
	}
	ev := DailyStatsUpdated{StreamID: pl.StreamID.String(), Date: pl.Date, LeftDelta: pl.LeftDelta, RightDelta: pl.RightDelta}
	if err := p.notifier.Publish(ctx, EventDailyStatsUpdated, ev); err != nil {
		p.logger.Warn("publish daily stats update failed", zap.String("date", pl.Date), zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sink worker stopping")
			return
		default:
		}

		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
