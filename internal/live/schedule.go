package live

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
)

// Reasons carried by live-schedule-cancelled.
const (
	ScheduleCancelled = "cancelled"
	ScheduleFired     = "fired"
)

// ScheduleLive arms a timed start of an enabled stream, replacing any pending schedule
// for it. When EndAt is set, the live session it starts is stopped at EndAt.
func (c *Coordinator) ScheduleLive(ctx context.Context, req models.LiveSchedule) (models.LiveSchedule, error) {
	now := c.clock.Now()
	if !req.StartAt.After(now) {
		return models.LiveSchedule{}, fmt.Errorf("%w: start time must be in the future", ErrInvalidSchedule)
	}
	if req.EndAt != nil && !req.EndAt.After(req.StartAt) {
		return models.LiveSchedule{}, fmt.Errorf("%w: end time must be after start time", ErrInvalidSchedule)
	}
	stream, err := c.streams.GetStream(ctx, req.StreamID)
	if err != nil {
		return models.LiveSchedule{}, err
	}
	if stream == nil {
		return models.LiveSchedule{}, ErrStreamNotFound
	}
	if !stream.Enabled {
		return models.LiveSchedule{}, ErrStreamDisabled
	}
	req.CreatedAt = now

	st := c.state(req.StreamID)
	st.mu.Lock()
	c.armScheduleLocked(st, req)
	if c.schedules != nil {
		sched := req
		c.sink(st, "schedule", func(ctx context.Context) error { return c.schedules.SaveSchedule(ctx, sched) })
	}
	c.publish(LiveScheduleUpdated{Schedule: req, Timestamp: millis(now)})
	st.mu.Unlock()

	c.log.Info("live scheduled",
		zap.String("stream_id", req.StreamID.String()),
		zap.Time("start_at", req.StartAt),
	)
	return req, nil
}

// CancelSchedule drops a stream's pending schedule. Returns false if none was pending.
func (c *Coordinator) CancelSchedule(streamID uuid.UUID) bool {
	st := c.view(streamID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.schedule == nil {
		return false
	}
	c.dropScheduleLocked(st, streamID, ScheduleCancelled)
	c.log.Info("live schedule cancelled", zap.String("stream_id", streamID.String()))
	return true
}

// Schedules returns the pending schedules, earliest first. A non-nil streamID filters to one stream.
func (c *Coordinator) Schedules(streamID *uuid.UUID) []models.LiveSchedule {
	var out []models.LiveSchedule
	if streamID != nil {
		st := c.view(*streamID)
		st.mu.Lock()
		if st.schedule != nil {
			out = append(out, *st.schedule)
		}
		st.mu.Unlock()
		return out
	}
	for _, st := range c.allStates() {
		st.mu.Lock()
		if st.schedule != nil {
			out = append(out, *st.schedule)
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

// RestoreSchedules re-arms persisted schedules at boot. Past-due ones are discarded.
func (c *Coordinator) RestoreSchedules(ctx context.Context) error {
	if c.schedules == nil {
		return nil
	}
	list, err := c.schedules.ListSchedules(ctx)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	for _, s := range list {
		st := c.state(s.StreamID)
		st.mu.Lock()
		if s.StartAt.After(now) {
			c.armScheduleLocked(st, s)
		} else {
			streamID := s.StreamID
			c.sink(st, "schedule", func(ctx context.Context) error { return c.schedules.DeleteSchedule(ctx, streamID) })
			c.log.Info("discarding past-due live schedule",
				zap.String("stream_id", streamID.String()),
				zap.Time("start_at", s.StartAt),
			)
		}
		st.mu.Unlock()
	}
	return nil
}

// armScheduleLocked replaces the stream's pending schedule. Caller holds st.mu.
func (c *Coordinator) armScheduleLocked(st *streamState, s models.LiveSchedule) {
	if st.scheduleTimer != nil {
		st.scheduleTimer.Stop()
	}
	st.scheduleGen++
	gen := st.scheduleGen
	sched := s
	st.schedule = &sched
	st.scheduleTimer = c.clock.AfterFunc(s.StartAt.Sub(c.clock.Now()), func() { c.fireSchedule(s.StreamID, gen) })
}

// dropScheduleLocked clears the pending schedule and its persisted row. Caller holds st.mu.
func (c *Coordinator) dropScheduleLocked(st *streamState, streamID uuid.UUID, reason string) {
	if st.scheduleTimer != nil {
		st.scheduleTimer.Stop()
		st.scheduleTimer = nil
	}
	st.scheduleGen++
	st.schedule = nil
	if c.schedules != nil {
		c.sink(st, "schedule", func(ctx context.Context) error { return c.schedules.DeleteSchedule(ctx, streamID) })
	}
	c.publish(LiveScheduleCancelled{StreamID: streamID, Reason: reason, Timestamp: millis(c.clock.Now())})
}

func (c *Coordinator) fireSchedule(streamID uuid.UUID, gen uint64) {
	st := c.state(streamID)
	st.mu.Lock()
	if st.scheduleGen != gen || st.schedule == nil {
		st.mu.Unlock()
		return
	}
	sched := *st.schedule
	st.scheduleTimer = nil
	c.dropScheduleLocked(st, streamID, ScheduleFired)
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	record, err := c.StartLive(ctx, streamID, StartOptions{AutoStartAI: sched.AutoStartAI})
	if err != nil {
		c.log.Warn("scheduled start skipped", zap.String("stream_id", streamID.String()), zap.Error(err))
		return
	}
	if sched.EndAt == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.isLive() || st.session.liveID != record.LiveID {
		return
	}
	liveID := record.LiveID
	st.endTimer = c.clock.AfterFunc(sched.EndAt.Sub(c.clock.Now()), func() { c.scheduledStop(streamID, liveID) })
}

func (c *Coordinator) scheduledStop(streamID, liveID uuid.UUID) {
	st := c.view(streamID)
	st.mu.Lock()
	if !st.isLive() || st.session.liveID != liveID {
		st.mu.Unlock()
		return
	}
	st.endTimer = nil
	ended := c.stopLocked(st, streamID, ReasonScheduledEnd)
	st.mu.Unlock()
	c.afterStop(ended)
}
