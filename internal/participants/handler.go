package participants

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	historyLimit    = 200
)

// Store is the participant persistence used by the handler; *Repository implements it.
type Store interface {
	Upsert(ctx context.Context, p *models.Participant) error
	List(ctx context.Context, status models.ParticipantStatus, limit, offset int) ([]models.Participant, int, error)
	ToggleBan(ctx context.Context, id string) (*models.Participant, error)
	SetStatus(ctx context.Context, ids []string, status models.ParticipantStatus) (int, error)
	VotesByParticipant(ctx context.Context, id string, limit int) ([]models.VoteRecord, error)
	VotersByStream(ctx context.Context, streamID uuid.UUID, limit int) ([]models.Voter, error)
}

// RegisterRequest is the body for POST /participants.
type RegisterRequest struct {
	ID        string `json:"userId" binding:"required"`
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
}

// StatusRequest is the body for POST /participants/status.
type StatusRequest struct {
	IDs    []string `json:"userIds" binding:"required,min=1"`
	Status string   `json:"status" binding:"required,oneof=active banned"`
}

// Handler handles participant endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a participants handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Register handles POST /participants. Mini-program clients call it on login.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.Participant{
		ID:        strings.TrimSpace(req.ID),
		NickName:  strings.TrimSpace(req.NickName),
		AvatarURL: strings.TrimSpace(req.AvatarURL),
	}
	if p.ID == "" {
		response.BadRequest(c, "userId required")
		return
	}
	if err := h.store.Upsert(c.Request.Context(), p); err != nil {
		h.logger.Error("upsert participant failed", zap.Error(err), zap.String("participant_id", p.ID))
		response.Internal(c, "failed to register participant")
		return
	}
	response.OK(c, p)
}

// List handles GET /participants?status=&page=&page_size=.
func (h *Handler) List(c *gin.Context) {
	status := models.ParticipantStatus(c.Query("status"))
	if status != "" && status != models.ParticipantActive && status != models.ParticipantBanned {
		response.BadRequest(c, "invalid status")
		return
	}
	page, size := pagination(c)
	list, total, err := h.store.List(c.Request.Context(), status, size, (page-1)*size)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	if list == nil {
		list = []models.Participant{}
	}
	response.OK(c, gin.H{"list": list, "total": total, "page": page, "pageSize": size})
}

// ToggleBan handles POST /participants/:id/toggle-ban.
func (h *Handler) ToggleBan(c *gin.Context) {
	p, err := h.store.ToggleBan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("toggle ban failed", zap.Error(err))
		response.Internal(c, "failed to update participant")
		return
	}
	if p == nil {
		response.NotFound(c, "participant not found")
		return
	}
	h.logger.Info("participant status changed", zap.String("participant_id", p.ID), zap.String("status", string(p.Status)))
	response.OK(c, p)
}

// SetStatus handles POST /participants/status for bulk ban/unban.
func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	n, err := h.store.SetStatus(c.Request.Context(), req.IDs, models.ParticipantStatus(req.Status))
	if err != nil {
		h.logger.Error("set participant status failed", zap.Error(err))
		response.Internal(c, "failed to update participants")
		return
	}
	response.OK(c, gin.H{"updated": n})
}

// Votes handles GET /participants/:id/votes.
func (h *Handler) Votes(c *gin.Context) {
	list, err := h.store.VotesByParticipant(c.Request.Context(), c.Param("id"), historyLimit)
	if err != nil {
		h.logger.Error("load vote history failed", zap.Error(err))
		response.Internal(c, "failed to load vote history")
		return
	}
	if list == nil {
		list = []models.VoteRecord{}
	}
	response.OK(c, list)
}

// Voters handles GET /voters?stream_id=.
func (h *Handler) Voters(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	list, err := h.store.VotersByStream(c.Request.Context(), streamID, historyLimit)
	if err != nil {
		h.logger.Error("load voters failed", zap.Error(err))
		response.Internal(c, "failed to load voters")
		return
	}
	if list == nil {
		list = []models.Voter{}
	}
	response.OK(c, list)
}

func pagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
