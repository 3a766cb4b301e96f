package streams

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, s *models.Stream) error
	Update(ctx context.Context, s *models.Stream) (bool, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*models.Stream, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error)
	List(ctx context.Context) ([]models.Stream, error)
}

// SessionLister lists the live session history of a stream; *SessionRepository implements it.
type SessionLister interface {
	ListByStream(ctx context.Context, streamID uuid.UUID, limit int) ([]models.LiveSession, error)
}

// LiveChecker reports whether a stream is live.
type LiveChecker interface {
	ActiveLiveID(streamID uuid.UUID) (uuid.UUID, bool)
}

// StreamRequest is the body for POST /streams and PUT /streams/:id.
type StreamRequest struct {
	Name        string `json:"name" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

// Handler handles stream management endpoints.
type Handler struct {
	store    Store
	sessions SessionLister
	live     LiveChecker
	logger   *zap.Logger
}

// NewHandler creates a streams handler.
func NewHandler(store Store, sessions SessionLister, live LiveChecker, logger *zap.Logger) *Handler {
	return &Handler{store: store, sessions: sessions, live: live, logger: logger}
}

// List handles GET /streams.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list streams", zap.Error(err))
		response.Internal(c, "failed to list streams")
		return
	}
	if list == nil {
		list = []models.Stream{}
	}
	response.OK(c, list)
}

// Get handles GET /streams/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.store.GetStream(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load stream")
		return
	}
	if s == nil {
		response.NotFound(c, "stream not found")
		return
	}
	response.OK(c, s)
}

// Create handles POST /streams.
func (h *Handler) Create(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := req.toStream()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create stream", zap.Error(err))
		response.Internal(c, "failed to create stream")
		return
	}
	response.Created(c, s)
}

// Update handles PUT /streams/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := req.toStream()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s.ID = id
	found, err := h.store.Update(c.Request.Context(), s)
	if err != nil {
		h.logger.Error("update stream", zap.Error(err))
		response.Internal(c, "failed to update stream")
		return
	}
	if !found {
		response.NotFound(c, "stream not found")
		return
	}
	response.OK(c, s)
}

// Toggle handles POST /streams/:id/toggle. A live stream cannot be disabled.
func (h *Handler) Toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := h.store.GetStream(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load stream")
		return
	}
	if s == nil {
		response.NotFound(c, "stream not found")
		return
	}
	if s.Enabled && h.isLive(id) {
		response.Conflict(c, "stop the live session before disabling the stream")
		return
	}
	updated, err := h.store.SetEnabled(c.Request.Context(), id, !s.Enabled)
	if err != nil || updated == nil {
		response.Internal(c, "failed to toggle stream")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /streams/:id. A live stream cannot be deleted.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if h.isLive(id) {
		response.Conflict(c, "stop the live session before deleting the stream")
		return
	}
	found, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete stream", zap.Error(err))
		response.Internal(c, "failed to delete stream")
		return
	}
	if !found {
		response.NotFound(c, "stream not found")
		return
	}
	response.NoContent(c)
}

// Sessions handles GET /streams/:id/sessions[?limit=].
func (h *Handler) Sessions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.sessions.ListByStream(c.Request.Context(), id, limit)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	if list == nil {
		list = []models.LiveSession{}
	}
	response.OK(c, list)
}

func (h *Handler) isLive(id uuid.UUID) bool {
	if h.live == nil {
		return false
	}
	_, live := h.live.ActiveLiveID(id)
	return live
}

type validationError string

func (e validationError) Error() string { return string(e) }

var streamTypes = map[string]bool{"hls": true, "rtmp": true, "flv": true, "webrtc": true}

// toStream validates the request and applies defaults (type hls, enabled true).
func (r StreamRequest) toStream() (*models.Stream, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	u, err := url.Parse(strings.TrimSpace(r.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, validationError("url must be absolute")
	}
	typ := strings.ToLower(strings.TrimSpace(r.Type))
	if typ == "" {
		typ = "hls"
	}
	if !streamTypes[typ] {
		return nil, validationError("type must be one of hls, rtmp, flv, webrtc")
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &models.Stream{
		Name:        name,
		URL:         u.String(),
		Type:        typ,
		Description: strings.TrimSpace(r.Description),
		Enabled:     enabled,
	}, nil
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return uuid.Nil, false
	}
	return id, true
}
