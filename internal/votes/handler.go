package votes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// Engine is the vote side of the live coordinator; *live.Coordinator implements it.
type Engine interface {
	SubmitVote(ctx context.Context, req live.VoteRequest) (live.VoteResult, error)
	AdjustTally(ctx context.Context, streamID uuid.UUID, action live.AdjustAction, left, right int) (live.AdjustResult, error)
	ResetTally(ctx context.Context, streamID uuid.UUID, resetTo *live.Tally) (live.ResetResult, error)
	Ceiling(ctx context.Context, streamID uuid.UUID) (int, error)
	VoteRatio(streamID uuid.UUID) live.VoteRatio
	Votes(streamID uuid.UUID) (live.Tally, *live.Tally)
	AllTotalVotes() int
}

// UserVoteRequest is the body for POST /user-vote.
type UserVoteRequest struct {
	StreamID string `json:"streamId" binding:"required"`
	UserID   string `json:"userId"`
	Side     string `json:"side"`
}

// UpdateRequest is the body for POST /admin/live/update-votes.
type UpdateRequest struct {
	StreamID   string `json:"streamId" binding:"required"`
	Action     string `json:"action" binding:"required"`
	LeftVotes  int    `json:"leftVotes"`
	RightVotes int    `json:"rightVotes"`
}

// ResetRequest is the body for POST /admin/live/reset-votes.
type ResetRequest struct {
	StreamID string      `json:"streamId" binding:"required"`
	ResetTo  *live.Tally `json:"resetTo"`
}

// Handler handles vote submission, admin overrides and vote read endpoints.
type Handler struct {
	engine Engine
	logger *zap.Logger
}

// NewHandler creates a votes handler.
func NewHandler(engine Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

// UserVote handles POST /user-vote from participants.
func (h *Handler) UserVote(c *gin.Context) {
	var req UserVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	res, err := h.engine.SubmitVote(c.Request.Context(), live.VoteRequest{
		StreamID:      streamID,
		ParticipantID: req.UserID,
		Side:          models.Side(req.Side),
	})
	if err != nil {
		live.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, res)
}

// UpdateVotes handles POST /admin/live/update-votes.
func (h *Handler) UpdateVotes(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	res, err := h.engine.AdjustTally(c.Request.Context(), streamID, live.AdjustAction(req.Action), req.LeftVotes, req.RightVotes)
	if err != nil {
		live.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, res)
}

// ResetVotes handles POST /admin/live/reset-votes. The previous tally is returned as backup.
func (h *Handler) ResetVotes(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	res, err := h.engine.ResetTally(c.Request.Context(), streamID, req.ResetTo)
	if err != nil {
		live.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, res)
}

// VoteRatio handles GET /display/vote-ratio?stream_id= for viewer displays.
func (h *Handler) VoteRatio(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	response.OK(c, h.engine.VoteRatio(streamID))
}

// AdminVotes handles GET /admin/votes?stream_id=.
func (h *Handler) AdminVotes(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	ceiling, err := h.engine.Ceiling(c.Request.Context(), streamID)
	if err != nil {
		live.RespondError(c, h.logger, err)
		return
	}
	current, session := h.engine.Votes(streamID)
	response.OK(c, gin.H{
		"streamId":         streamID,
		"leftVotes":        current.LeftVotes,
		"rightVotes":       current.RightVotes,
		"totalVotes":       current.Total(),
		"liveSessionVotes": session,
		"ceiling":          ceiling,
		"allTotalVotes":    h.engine.AllTotalVotes(),
	})
}
