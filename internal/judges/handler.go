package judges

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
	"github.com/aura-debate/backend/pkg/storage"
)

// Store persists judge panels; *Repository implements it.
type Store interface {
	GetJudges(ctx context.Context, streamID uuid.UUID) ([]models.Judge, error)
	ReplaceJudges(ctx context.Context, streamID uuid.UUID, judges []models.Judge) error
}

// Moderator bans participants that were replaced on a panel.
type Moderator interface {
	SetStatus(ctx context.Context, ids []string, status models.ParticipantStatus) (int, error)
}

// AvatarStore uploads avatar images; *storage.S3 implements it.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, key, contentType string, data []byte) (string, error)
	PresignAvatarUpload(ctx context.Context, key, contentType string) (string, error)
}

// JudgeInput is one judge in a panel update.
type JudgeInput struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Avatar        string `json:"avatar"`
	VoteWeight    *int   `json:"voteWeight"`
	ParticipantID string `json:"participantId"`
}

// UpdateRequest is the body for POST /judges.
type UpdateRequest struct {
	StreamID        string       `json:"streamId" binding:"required"`
	Judges          []JudgeInput `json:"judges"`
	ReplacedUserIDs []string     `json:"replacedUserIds"`
}

// AvatarRequest is the body for POST /upload/avatar.
type AvatarRequest struct {
	StreamID string `json:"streamId" binding:"required"`
	Name     string `json:"name"`
	Image    string `json:"image" binding:"required"` // data:image/png;base64,...
}

// Handler handles judge panel and avatar endpoints.
type Handler struct {
	store     Store
	moderator Moderator
	avatars   AvatarStore
	publisher live.Publisher
	logger    *zap.Logger
}

// NewHandler creates a judges handler. avatars may be nil when S3 is not configured.
func NewHandler(store Store, moderator Moderator, avatars AvatarStore, publisher live.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, moderator: moderator, avatars: avatars, publisher: publisher, logger: logger}
}

// Get handles GET /judges?stream_id=.
func (h *Handler) Get(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	list, err := h.store.GetJudges(c.Request.Context(), streamID)
	if err != nil {
		h.logger.Error("get judges", zap.Error(err))
		response.Internal(c, "failed to load judges")
		return
	}
	if list == nil {
		list = []models.Judge{}
	}
	response.OK(c, gin.H{"streamId": streamID, "judges": list, "defaultWeight": models.DefaultJudgeWeight})
}

// Update handles POST /judges: replaces the panel, bans replaced participants and broadcasts judges-updated.
func (h *Handler) Update(c *gin.Context) {
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
	panel := Normalize(req.Judges)
	ctx := c.Request.Context()
	if err := h.store.ReplaceJudges(ctx, streamID, panel); err != nil {
		h.logger.Error("replace judges", zap.Error(err))
		response.Internal(c, "failed to save judges")
		return
	}

	banned := 0
	if ids := replacedParticipants(req.ReplacedUserIDs, panel); len(ids) > 0 && h.moderator != nil {
		n, err := h.moderator.SetStatus(ctx, ids, models.ParticipantBanned)
		if err != nil {
			h.logger.Warn("ban replaced judges", zap.Strings("participant_ids", ids), zap.Error(err))
		}
		banned = n
	}

	if h.publisher != nil {
		h.publisher.Publish(live.JudgesUpdated{
			StreamID:  streamID,
			Judges:    panel,
			Timestamp: time.Now().UnixNano() / int64(time.Millisecond),
		})
	}
	response.OK(c, gin.H{"streamId": streamID, "judges": panel, "bannedCount": banned})
}

// UploadAvatar handles POST /upload/avatar with a base64 data URL.
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		response.ServiceUnavailable(c, "avatar storage is not configured")
		return
	}
	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	contentType, data, err := DecodeDataURL(req.Image)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ext, ok := storage.AvatarExtension(contentType)
	if !ok {
		response.BadRequest(c, "unsupported image type "+contentType)
		return
	}
	if len(data) > storage.MaxAvatarSize {
		response.BadRequest(c, "image too large")
		return
	}
	key := storage.AvatarKey(req.StreamID, avatarName(req.Name), ext)
	url, err := h.avatars.UploadAvatar(c.Request.Context(), key, contentType, data)
	if err != nil {
		h.logger.Error("upload avatar", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to upload avatar")
		return
	}
	response.OK(c, gin.H{"url": url, "key": key})
}

// PresignAvatar handles GET /upload/avatar/presign?stream_id=&content_type=.
func (h *Handler) PresignAvatar(c *gin.Context) {
	if h.avatars == nil {
		response.ServiceUnavailable(c, "avatar storage is not configured")
		return
	}
	streamID := c.Query("stream_id")
	if _, err := uuid.Parse(streamID); err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	contentType := c.Query("content_type")
	ext, ok := storage.AvatarExtension(contentType)
	if !ok {
		response.BadRequest(c, "unsupported image type")
		return
	}
	key := storage.AvatarKey(streamID, avatarName(""), ext)
	url, err := h.avatars.PresignAvatarUpload(c.Request.Context(), key, contentType)
	if err != nil {
		response.Internal(c, "failed to presign upload")
		return
	}
	response.OK(c, gin.H{"uploadUrl": url, "key": key})
}

// Normalize keeps at most three judges, assigns missing IDs (judge-N) and defaults weights to 10.
// Negative weights are clamped to zero.
func Normalize(in []JudgeInput) []models.Judge {
	if len(in) > models.MaxJudgesPerStream {
		in = in[:models.MaxJudgesPerStream]
	}
	out := make([]models.Judge, 0, len(in))
	for i, j := range in {
		id := strings.TrimSpace(j.ID)
		if id == "" {
			id = fmt.Sprintf("judge-%d", i+1)
		}
		weight := models.DefaultJudgeWeight
		if j.VoteWeight != nil {
			weight = *j.VoteWeight
			if weight < 0 {
				weight = 0
			}
		}
		out = append(out, models.Judge{
			ID:            id,
			Name:          strings.TrimSpace(j.Name),
			Role:          strings.TrimSpace(j.Role),
			Avatar:        strings.TrimSpace(j.Avatar),
			VoteWeight:    weight,
			ParticipantID: strings.TrimSpace(j.ParticipantID),
		})
	}
	return out
}

// replacedParticipants dedupes ids and drops any still bound to the new panel.
func replacedParticipants(ids []string, panel []models.Judge) []string {
	bound := make(map[string]bool, len(panel))
	for _, j := range panel {
		if j.ParticipantID != "" {
			bound[j.ParticipantID] = true
		}
	}
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || bound[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// DecodeDataURL splits a data:<type>;base64,<payload> URL.
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	const prefix = "data:"
	if !strings.HasPrefix(s, prefix) {
		return "", nil, fmt.Errorf("image must be a data URL")
	}
	meta, payload, ok := strings.Cut(s[len(prefix):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("image must be base64 encoded")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

func avatarName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, name)
	if name == "" {
		name = "avatar"
	}
	return name + "-" + uuid.NewString()[:8]
}
