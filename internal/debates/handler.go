package debates

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// Store persists debates, stream links and flows; *Repository implements it.
type Store interface {
	Create(ctx context.Context, d *models.Debate) error
	Update(ctx context.Context, d *models.Debate) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Debate, error)
	List(ctx context.Context) ([]models.Debate, error)

	ForStream(ctx context.Context, streamID uuid.UUID) (*models.Debate, error)
	Link(ctx context.Context, streamID, debateID uuid.UUID) error
	Unlink(ctx context.Context, streamID uuid.UUID) (bool, error)
	CreateForStream(ctx context.Context, streamID uuid.UUID, d *models.Debate) error

	GetFlow(ctx context.Context, streamID uuid.UUID) ([]models.FlowSegment, error)
	SaveFlow(ctx context.Context, streamID uuid.UUID, segments []models.FlowSegment) error
}

// StreamLookup resolves streams; *streams.Repository implements it.
type StreamLookup interface {
	GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error)
}

// DebateRequest is the body for POST /debates and PUT /debates/:id. Absent fields are left unchanged on update.
type DebateRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	LeftPosition  *string `json:"leftPosition"`
	RightPosition *string `json:"rightPosition"`
	IsActive      *bool   `json:"isActive"`
}

// StreamDebateRequest is the body for PUT /streams/:id/debate.
// DebateID links an existing debate; otherwise the topic fields edit the linked one.
type StreamDebateRequest struct {
	DebateRequest
	DebateID string `json:"debateId"`
}

// Topic is the public view of a stream's debate.
type Topic struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	LeftPosition  string    `json:"leftPosition"`
	RightPosition string    `json:"rightPosition"`
}

// Handler handles debate topic, stream link and debate flow endpoints.
type Handler struct {
	store     Store
	streams   StreamLookup
	publisher live.Publisher
	logger    *zap.Logger
}

// NewHandler creates a debates handler.
func NewHandler(store Store, streams StreamLookup, publisher live.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, streams: streams, publisher: publisher, logger: logger}
}

// List handles GET /debates.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list debates", zap.Error(err))
		response.Internal(c, "failed to list debates")
		return
	}
	if list == nil {
		list = []models.Debate{}
	}
	response.OK(c, list)
}

// Get handles GET /debates/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "invalid debate id")
	if !ok {
		return
	}
	d, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load debate")
		return
	}
	if d == nil {
		response.NotFound(c, "debate not found")
		return
	}
	response.OK(c, d)
}

// Create handles POST /debates.
func (h *Handler) Create(c *gin.Context) {
	var req DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d := &models.Debate{IsActive: true}
	if err := req.apply(d); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Create(c.Request.Context(), d); err != nil {
		h.logger.Error("create debate", zap.Error(err))
		response.Internal(c, "failed to create debate")
		return
	}
	h.publishDebate(nil, d.ID, d)
	response.Created(c, d)
}

// Update handles PUT /debates/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "invalid debate id")
	if !ok {
		return
	}
	var req DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	d, err := h.store.Get(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load debate")
		return
	}
	if d == nil {
		response.NotFound(c, "debate not found")
		return
	}
	if err := req.apply(d); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	found, err := h.store.Update(ctx, d)
	if err != nil {
		h.logger.Error("update debate", zap.String("debate_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update debate")
		return
	}
	if !found {
		response.NotFound(c, "debate not found")
		return
	}
	h.publishDebate(nil, d.ID, d)
	response.OK(c, d)
}

// Delete handles DELETE /debates/:id. Streams linked to it lose their debate.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "invalid debate id")
	if !ok {
		return
	}
	found, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete debate", zap.String("debate_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to delete debate")
		return
	}
	if !found {
		response.NotFound(c, "debate not found")
		return
	}
	h.publishDebate(nil, id, nil)
	response.NoContent(c)
}

// StreamDebate handles GET /streams/:id/debate. Data is null when no debate is linked.
func (h *Handler) StreamDebate(c *gin.Context) {
	streamID, ok := parseID(c, "invalid stream id")
	if !ok {
		return
	}
	d, err := h.store.ForStream(c.Request.Context(), streamID)
	if err != nil {
		response.Internal(c, "failed to load debate")
		return
	}
	response.OK(c, d)
}

// SetStreamDebate handles PUT /streams/:id/debate.
func (h *Handler) SetStreamDebate(c *gin.Context) {
	streamID, ok := parseID(c, "invalid stream id")
	if !ok {
		return
	}
	var req StreamDebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	if !h.streamExists(c, streamID) {
		return
	}

	var d *models.Debate
	var err error
	if req.DebateID != "" {
		d, err = h.linkExisting(ctx, streamID, req.DebateID)
	} else {
		d, err = h.editLinked(ctx, streamID, req.DebateRequest)
	}
	if err != nil {
		switch e := err.(type) {
		case validationError:
			response.BadRequest(c, e.Error())
		case notFoundError:
			response.NotFound(c, e.Error())
		default:
			h.logger.Error("set stream debate", zap.String("stream_id", streamID.String()), zap.Error(err))
			response.Internal(c, "failed to set stream debate")
		}
		return
	}
	h.publishDebate(&streamID, d.ID, d)
	response.OK(c, d)
}

// ClearStreamDebate handles DELETE /streams/:id/debate. The debate itself is kept.
func (h *Handler) ClearStreamDebate(c *gin.Context) {
	streamID, ok := parseID(c, "invalid stream id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	d, err := h.store.ForStream(ctx, streamID)
	if err != nil {
		response.Internal(c, "failed to load debate")
		return
	}
	if d == nil {
		response.NotFound(c, "stream has no debate")
		return
	}
	if _, err := h.store.Unlink(ctx, streamID); err != nil {
		h.logger.Error("unlink debate", zap.String("stream_id", streamID.String()), zap.Error(err))
		response.Internal(c, "failed to clear stream debate")
		return
	}
	h.publishDebate(&streamID, d.ID, nil)
	response.NoContent(c)
}

// Topic handles the public GET /debate-topic?stream_id=. Data is null when the stream
// has no active debate.
func (h *Handler) Topic(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	d, err := h.store.ForStream(c.Request.Context(), streamID)
	if err != nil {
		response.Internal(c, "failed to load debate topic")
		return
	}
	if d == nil || !d.IsActive {
		response.OK(c, nil)
		return
	}
	response.OK(c, Topic{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		LeftPosition:  d.LeftPosition,
		RightPosition: d.RightPosition,
	})
}

func (h *Handler) linkExisting(ctx context.Context, streamID uuid.UUID, rawID string) (*models.Debate, error) {
	debateID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, validationError("invalid debateId")
	}
	d, err := h.store.Get(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, notFoundError("debate not found")
	}
	if err := h.store.Link(ctx, streamID, debateID); err != nil {
		return nil, err
	}
	return d, nil
}

func (h *Handler) editLinked(ctx context.Context, streamID uuid.UUID, req DebateRequest) (*models.Debate, error) {
	d, err := h.store.ForStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = &models.Debate{IsActive: true}
		if err := req.apply(d); err != nil {
			return nil, err
		}
		if err := h.store.CreateForStream(ctx, streamID, d); err != nil {
			return nil, err
		}
		return d, nil
	}
	if err := req.apply(d); err != nil {
		return nil, err
	}
	found, err := h.store.Update(ctx, d)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError("debate not found")
	}
	return d, nil
}

func (h *Handler) streamExists(c *gin.Context, streamID uuid.UUID) bool {
	s, err := h.streams.GetStream(c.Request.Context(), streamID)
	if err != nil {
		response.Internal(c, "failed to load stream")
		return false
	}
	if s == nil {
		response.NotFound(c, "stream not found")
		return false
	}
	return true
}

func (h *Handler) publishDebate(streamID *uuid.UUID, debateID uuid.UUID, d *models.Debate) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(live.DebateUpdated{
		StreamID:  streamID,
		DebateID:  debateID,
		Debate:    d,
		Timestamp: live.Millis(time.Now()),
	})
}

type validationError string

func (e validationError) Error() string { return string(e) }

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

// apply copies the present fields onto d and checks the title.
func (r DebateRequest) apply(d *models.Debate) error {
	if r.Title != nil {
		d.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		d.Description = strings.TrimSpace(*r.Description)
	}
	if r.LeftPosition != nil {
		d.LeftPosition = strings.TrimSpace(*r.LeftPosition)
	}
	if r.RightPosition != nil {
		d.RightPosition = strings.TrimSpace(*r.RightPosition)
	}
	if r.IsActive != nil {
		d.IsActive = *r.IsActive
	}
	if d.Title == "" {
		return validationError("title is required")
	}
	return nil
}

func parseID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, msg)
		return uuid.Nil, false
	}
	return id, true
}
