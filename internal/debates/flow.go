package debates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

const (
	maxSegments           = 50
	minSegmentDuration    = 10
	defaultSegmentSeconds = 180
)

// Flow timer commands relayed to display clients.
var flowActions = map[string]bool{
	"start": true, "pause": true, "resume": true, "reset": true, "next": true, "prev": true,
}

// DefaultFlow is served for streams without a saved flow.
func DefaultFlow() []models.FlowSegment {
	return []models.FlowSegment{
		{Name: "Opening statement (left)", Duration: 180, Side: models.FlowLeft},
		{Name: "Cross-examination (right)", Duration: 120, Side: models.FlowRight},
		{Name: "Opening statement (right)", Duration: 180, Side: models.FlowRight},
		{Name: "Cross-examination (left)", Duration: 120, Side: models.FlowLeft},
		{Name: "Free debate", Duration: 300, Side: models.FlowBoth},
		{Name: "Closing statement (left)", Duration: 120, Side: models.FlowLeft},
		{Name: "Closing statement (right)", Duration: 120, Side: models.FlowRight},
	}
}

// SegmentInput is one segment in a flow update. Duration may be missing or malformed.
type SegmentInput struct {
	Name     string      `json:"name"`
	Duration interface{} `json:"duration"`
	Side     string      `json:"side"`
}

// FlowRequest is the body for POST /debate-flow.
type FlowRequest struct {
	StreamID string         `json:"streamId" binding:"required"`
	Segments []SegmentInput `json:"segments"`
}

// FlowControlRequest is the body for POST /debate-flow/control.
type FlowControlRequest struct {
	StreamID string `json:"streamId" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// NormalizeSegments applies segment defaults: trimmed name (Segment N when blank),
// duration at least 10 seconds (180 when missing), side left|right|both (both when unknown).
func NormalizeSegments(in []SegmentInput) ([]models.FlowSegment, error) {
	if len(in) == 0 {
		return nil, validationError("segments must not be empty")
	}
	if len(in) > maxSegments {
		return nil, validationError(fmt.Sprintf("at most %d segments", maxSegments))
	}
	out := make([]models.FlowSegment, 0, len(in))
	for i, s := range in {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = fmt.Sprintf("Segment %d", i+1)
		}
		side := models.FlowSide(strings.ToLower(strings.TrimSpace(s.Side)))
		if side != models.FlowLeft && side != models.FlowRight {
			side = models.FlowBoth
		}
		out = append(out, models.FlowSegment{Name: name, Duration: segmentSeconds(s.Duration), Side: side})
	}
	return out, nil
}

// segmentSeconds reads a JSON number or numeric string. Zero and unparsable values use the default.
func segmentSeconds(v interface{}) int {
	var n int
	switch d := v.(type) {
	case float64:
		n = int(d)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(d))
	}
	if n == 0 {
		n = defaultSegmentSeconds
	}
	if n < minSegmentDuration {
		n = minSegmentDuration
	}
	return n
}

// Flow handles GET /debate-flow?stream_id=.
func (h *Handler) Flow(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return
	}
	segments, err := h.store.GetFlow(c.Request.Context(), streamID)
	if err != nil {
		h.logger.Error("load debate flow", zap.String("stream_id", streamID.String()), zap.Error(err))
		response.Internal(c, "failed to load debate flow")
		return
	}
	if len(segments) == 0 {
		segments = DefaultFlow()
	}
	response.OK(c, gin.H{"streamId": streamID, "segments": segments})
}

// SaveFlow handles POST /debate-flow.
func (h *Handler) SaveFlow(c *gin.Context) {
	var req FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	segments, err := NormalizeSegments(req.Segments)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !h.streamExists(c, streamID) {
		return
	}
	if err := h.store.SaveFlow(c.Request.Context(), streamID, segments); err != nil {
		h.logger.Error("save debate flow", zap.String("stream_id", streamID.String()), zap.Error(err))
		response.Internal(c, "failed to save debate flow")
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(live.DebateFlowUpdated{StreamID: streamID, Segments: segments, Timestamp: live.Millis(time.Now())})
	}
	response.OK(c, gin.H{"streamId": streamID, "segments": segments})
}

// ControlFlow handles POST /debate-flow/control.
func (h *Handler) ControlFlow(c *gin.Context) {
	var req FlowControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	streamID, err := uuid.Parse(req.StreamID)
	if err != nil {
		response.BadRequest(c, "invalid streamId")
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if !flowActions[action] {
		response.BadRequest(c, "action must be one of start, pause, resume, reset, next, prev")
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(live.DebateFlowControl{StreamID: streamID, Action: action, Timestamp: live.Millis(time.Now())})
	}
	response.OK(c, gin.H{"streamId": streamID, "action": action})
}
