package live

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// StreamRequest is the body of the lifecycle and AI endpoints.
type StreamRequest struct {
	StreamID    string `json:"streamId" binding:"required"`
	AutoStartAI bool   `json:"autoStartAI"`
	Reason      string `json:"reason"`
}

// ScheduleRequest is the body of POST /admin/live/schedule. Times are RFC 3339.
type ScheduleRequest struct {
	StreamID    string     `json:"streamId" binding:"required"`
	StartAt     time.Time  `json:"scheduledStartTime" binding:"required"`
	EndAt       *time.Time `json:"scheduledEndTime"`
	AutoStartAI bool       `json:"autoStartAI"`
}

// Handler exposes live lifecycle, AI status and ceiling endpoints.
type Handler struct {
	coord *Coordinator
	log   *zap.Logger
}

// NewHandler creates a live handler.
func NewHandler(coord *Coordinator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{coord: coord, log: log}
}

// Start handles POST /admin/live/start.
func (h *Handler) Start(c *gin.Context) {
	req, streamID, ok := bindStream(c)
	if !ok {
		return
	}
	session, err := h.coord.StartLive(c.Request.Context(), streamID, StartOptions{AutoStartAI: req.AutoStartAI})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	response.OK(c, session)
}

// Stop handles POST /admin/live/stop. Stopping an idle stream succeeds with stopped=false.
func (h *Handler) Stop(c *gin.Context) {
	req, streamID, ok := bindStream(c)
	if !ok {
		return
	}
	res, err := h.coord.StopLive(c.Request.Context(), streamID, req.Reason)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	response.OK(c, res)
}

// Status handles GET /admin/live/status[?stream_id=].
func (h *Handler) Status(c *gin.Context) {
	if raw := c.Query("stream_id"); raw != "" {
		streamID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid stream_id")
			return
		}
		response.OK(c, h.coord.Status(streamID))
		return
	}
	response.OK(c, h.coord.Snapshot(c.Request.Context()))
}

// CapVotes handles POST /admin/live/cap-votes.
func (h *Handler) CapVotes(c *gin.Context) {
	_, streamID, ok := bindStream(c)
	if !ok {
		return
	}
	res, err := h.coord.CapIfExceeded(c.Request.Context(), streamID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	response.OK(c, res)
}

// Schedule handles POST /admin/live/schedule.
func (h *Handler) Schedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	sched, err := h.coord.ScheduleLive(c.Request.Context(), models.LiveSchedule{
		StreamID:    streamID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		AutoStartAI: req.AutoStartAI,
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	response.OK(c, sched)
}

// Schedules handles GET /admin/live/schedule[?stream_id=].
func (h *Handler) Schedules(c *gin.Context) {
	var filter *uuid.UUID
	if raw := c.Query("stream_id"); raw != "" {
		streamID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid stream_id")
			return
		}
		filter = &streamID
	}
	list := h.coord.Schedules(filter)
	if list == nil {
		list = []models.LiveSchedule{}
	}
	response.OK(c, list)
}

// CancelSchedule handles POST /admin/live/schedule/cancel.
func (h *Handler) CancelSchedule(c *gin.Context) {
	_, streamID, ok := bindStream(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"cancelled": h.coord.CancelSchedule(streamID)})
}

// StartAI handles POST /admin/ai/start.
func (h *Handler) StartAI(c *gin.Context) {
	h.aiAction(c, h.coord.StartAI)
}

// StopAI handles POST /admin/ai/stop.
func (h *Handler) StopAI(c *gin.Context) {
	h.aiAction(c, h.coord.StopAI)
}

// ToggleAI handles POST /admin/ai/toggle.
func (h *Handler) ToggleAI(c *gin.Context) {
	h.aiAction(c, h.coord.ToggleAI)
}

// AIStatus handles GET /admin/ai/status?stream_id=.
func (h *Handler) AIStatus(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	response.OK(c, h.coord.AIStatusOf(streamID))
}

func (h *Handler) aiAction(c *gin.Context, fn func(uuid.UUID) (AIStatus, error)) {
	_, streamID, ok := bindStream(c)
	if !ok {
		return
	}
	status, err := fn(streamID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	response.OK(c, status)
}

// bindStream parses the StreamRequest body and its stream ID.
func bindStream(c *gin.Context) (StreamRequest, uuid.UUID, bool) {
	var req StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return req, uuid.Nil, false
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return req, uuid.Nil, false
	}
	return req, streamID, true
}

// RespondError maps core errors onto the response envelope.
func RespondError(c *gin.Context, log *zap.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, ErrStreamNotFound):
		status, code = http.StatusNotFound, "STREAM_NOT_FOUND"
	case errors.Is(err, ErrStreamDisabled):
		status, code = http.StatusForbidden, "STREAM_DISABLED"
	case errors.Is(err, ErrParticipantBanned):
		status, code = http.StatusForbidden, "PARTICIPANT_BANNED"
	case errors.Is(err, ErrVotingWindowNotOpen):
		status, code = http.StatusForbidden, "VOTING_WINDOW_NOT_OPEN"
	case errors.Is(err, ErrVotingWindowClosed):
		status, code = http.StatusForbidden, "VOTING_WINDOW_CLOSED"
	case errors.Is(err, ErrAlreadyLive):
		status, code = http.StatusConflict, "ALREADY_LIVE"
	case errors.Is(err, ErrStreamNotLive):
		status, code = http.StatusConflict, "STREAM_NOT_LIVE"
	case errors.Is(err, ErrAlreadyVoted):
		status, code = http.StatusConflict, "ALREADY_VOTED"
	case errors.Is(err, ErrAIAlreadyRunning):
		status, code = http.StatusConflict, "AI_ALREADY_RUNNING"
	case errors.Is(err, ErrAINotRunning):
		status, code = http.StatusBadRequest, "AI_NOT_RUNNING"
	case errors.Is(err, ErrInvalidSchedule):
		status, code = http.StatusBadRequest, "INVALID_SCHEDULE"
	case errors.Is(err, ErrInvalidSide), errors.Is(err, ErrMissingParticipant), errors.Is(err, ErrInvalidAction):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Reject(c, status, code, "internal error")
		return
	}
	response.Reject(c, status, code, err.Error())
}
