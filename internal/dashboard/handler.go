// Package dashboard serves the admin overview of one stream.
package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// LiveView is the read side of the live coordinator.
type LiveView interface {
	Status(streamID uuid.UUID) live.StreamStatus
	Ceiling(ctx context.Context, streamID uuid.UUID) (int, error)
	AllTotalVotes() int
}

// StreamDirectory resolves streams; *streams.Repository implements it.
type StreamDirectory interface {
	GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error)
	ListEnabledStreams(ctx context.Context) ([]models.Stream, error)
}

// JudgeConfig returns a stream's judge panel.
type JudgeConfig interface {
	GetJudges(ctx context.Context, streamID uuid.UUID) ([]models.Judge, error)
}

// DebateFinder returns the debate linked to a stream, or nil.
type DebateFinder interface {
	ForStream(ctx context.Context, streamID uuid.UUID) (*models.Debate, error)
}

// Overview is the dashboard aggregate of one stream.
type Overview struct {
	StreamID      uuid.UUID            `json:"streamId"`
	StreamName    string               `json:"streamName"`
	IsLive        bool                 `json:"isLive"`
	LiveID        *uuid.UUID           `json:"liveId,omitempty"`
	AIStatus      live.AIState         `json:"aiStatus"`
	LeftVotes     int                  `json:"leftVotes"`
	RightVotes    int                  `json:"rightVotes"`
	TotalVotes    int                  `json:"totalVotes"`
	Session       *live.Tally          `json:"liveSessionVotes,omitempty"`
	AllTotalVotes int                  `json:"allTotalVotes"`
	Viewers       int                  `json:"viewers"`
	Ceiling       int                  `json:"ceiling"`
	Judges        []models.Judge       `json:"judges"`
	Debate        *models.Debate       `json:"debate,omitempty"`
	Schedule      *models.LiveSchedule `json:"schedule,omitempty"`
}

// Handler serves GET /dashboard.
type Handler struct {
	live    LiveView
	streams StreamDirectory
	judges  JudgeConfig
	debates DebateFinder
	logger  *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(lv LiveView, streams StreamDirectory, judges JudgeConfig, debates DebateFinder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{live: lv, streams: streams, judges: judges, debates: debates, logger: logger}
}

// Get handles GET /dashboard[?stream_id=]. Without stream_id the first enabled stream is shown.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	stream, ok := h.resolve(c)
	if !ok {
		return
	}

	status := h.live.Status(stream.ID)
	ceiling, err := h.live.Ceiling(ctx, stream.ID)
	if err != nil {
		live.RespondError(c, h.logger, err)
		return
	}
	judges, err := h.judges.GetJudges(ctx, stream.ID)
	if err != nil {
		h.logger.Error("dashboard judges", zap.String("stream_id", stream.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load judges")
		return
	}
	if judges == nil {
		judges = []models.Judge{}
	}
	debate, err := h.debates.ForStream(ctx, stream.ID)
	if err != nil {
		h.logger.Error("dashboard debate", zap.String("stream_id", stream.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load debate")
		return
	}

	response.OK(c, Overview{
		StreamID:      stream.ID,
		StreamName:    stream.Name,
		IsLive:        status.IsLive,
		LiveID:        status.LiveID,
		AIStatus:      status.AIStatus,
		LeftVotes:     status.Tally.LeftVotes,
		RightVotes:    status.Tally.RightVotes,
		TotalVotes:    status.Tally.Total(),
		Session:       status.Session,
		AllTotalVotes: h.live.AllTotalVotes(),
		Viewers:       status.Online,
		Ceiling:       ceiling,
		Judges:        judges,
		Debate:        debate,
		Schedule:      status.Schedule,
	})
}

func (h *Handler) resolve(c *gin.Context) (*models.Stream, bool) {
	ctx := c.Request.Context()
	if raw := c.Query("stream_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid stream_id")
			return nil, false
		}
		s, err := h.streams.GetStream(ctx, id)
		if err != nil {
			response.Internal(c, "failed to load stream")
			return nil, false
		}
		if s == nil {
			response.Reject(c, http.StatusNotFound, "STREAM_NOT_FOUND", "stream not found")
			return nil, false
		}
		return s, true
	}
	list, err := h.streams.ListEnabledStreams(ctx)
	if err != nil {
		h.logger.Error("dashboard streams", zap.Error(err))
		response.Internal(c, "failed to list streams")
		return nil, false
	}
	if len(list) == 0 {
		response.Reject(c, http.StatusNotFound, "STREAM_NOT_FOUND", "no enabled stream")
		return nil, false
	}
	return &list[0], true
}
