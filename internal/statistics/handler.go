package statistics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

const (
	dateLayout   = "2006-01-02"
	maxRangeDays = 92
	defaultDays  = 7
)

// Store is the statistics persistence used by the handler; *Repository implements it.
type Store interface {
	Summary(ctx context.Context, today string) (models.Summary, error)
	Recent(ctx context.Context, limit int) ([]models.DailyStat, error)
	Day(ctx context.Context, date string) (*models.DailyStat, error)
	Range(ctx context.Context, from, to string) ([]models.DailyStat, error)
	ActiveUsers(ctx context.Context, date string) ([]models.ActiveUser, error)
}

// LiveCounter reports how many streams are live right now.
type LiveCounter interface {
	LiveCount() int
}

// Handler handles statistics endpoints.
type Handler struct {
	store  Store
	live   LiveCounter
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a statistics handler.
func NewHandler(store Store, live LiveCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, live: live, now: time.Now, logger: logger}
}

// Summary handles GET /statistics/summary.
func (h *Handler) Summary(c *gin.Context) {
	s, err := h.store.Summary(c.Request.Context(), h.today())
	if err != nil {
		h.logger.Error("load summary failed", zap.Error(err))
		response.Internal(c, "failed to load statistics")
		return
	}
	if h.live != nil {
		s.LiveSessions = h.live.LiveCount()
	}
	response.OK(c, s)
}

// Daily handles GET /statistics/daily?days=. Returns the most recent days, newest first.
func (h *Handler) Daily(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultDays)))
	if err != nil || days < 1 || days > maxRangeDays {
		response.BadRequest(c, "days must be between 1 and 92")
		return
	}
	list, err := h.store.Recent(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("load daily stats failed", zap.Error(err))
		response.Internal(c, "failed to load statistics")
		return
	}
	if list == nil {
		list = []models.DailyStat{}
	}
	response.OK(c, list)
}

// Day handles GET /statistics/daily/:date with the per-stream vote bars.
func (h *Handler) Day(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}
	stat, err := h.store.Day(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("load day stats failed", zap.Error(err), zap.String("date", date))
		response.Internal(c, "failed to load statistics")
		return
	}
	response.OK(c, stat)
}

// Range handles GET /statistics/range?from=&to=.
func (h *Handler) Range(c *gin.Context) {
	from, to, err := ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	list, err := h.store.Range(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("load range stats failed", zap.Error(err))
		response.Internal(c, "failed to load statistics")
		return
	}
	if list == nil {
		list = []models.DailyStat{}
	}
	response.OK(c, gin.H{"from": from, "to": to, "days": list})
}

// ActiveUsers handles GET /statistics/active-users?date=. Defaults to today.
func (h *Handler) ActiveUsers(c *gin.Context) {
	date := c.DefaultQuery("date", h.today())
	if _, err := time.Parse(dateLayout, date); err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}
	list, err := h.store.ActiveUsers(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("load active users failed", zap.Error(err))
		response.Internal(c, "failed to load active users")
		return
	}
	if list == nil {
		list = []models.ActiveUser{}
	}
	response.OK(c, gin.H{"date": date, "threshold": ActiveUserThreshold, "users": list})
}

func (h *Handler) today() string {
	return h.now().Format(dateLayout)
}

type rangeError string

func (e rangeError) Error() string { return string(e) }

// ParseRange validates a from/to date pair: both YYYY-MM-DD, from not after to, at most 92 days apart.
func ParseRange(from, to string) (string, string, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return "", "", rangeError("from must be YYYY-MM-DD")
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return "", "", rangeError("to must be YYYY-MM-DD")
	}
	if t.Before(f) {
		return "", "", rangeError("from must not be after to")
	}
	if t.Sub(f) > maxRangeDays*24*time.Hour {
		return "", "", rangeError("range exceeds 92 days")
	}
	return from, to, nil
}
