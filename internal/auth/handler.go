package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/config"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// ContextAdminID is the gin context key the JWT middleware stores the admin ID under.
const ContextAdminID = "admin_id"

// Store is the admin persistence used by the handler; *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Create(ctx context.Context, email, passwordHash, name string, role models.Role) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateRequest is the body for POST /admin/accounts.
type CreateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"omitempty,oneof=admin operator"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string       `json:"token"`
	Admin models.Admin `json:"admin"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo Store, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	admin, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		h.logger.Error("load admin failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if admin == nil || !CheckPassword(req.Password, admin.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(admin)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("admin logged in", zap.String("admin_id", admin.ID.String()))
	response.OK(c, TokenResponse{Token: token, Admin: *admin})
}

// Me handles GET /admin/me.
func (h *Handler) Me(c *gin.Context) {
	id, ok := c.Get(ContextAdminID)
	adminID, _ := id.(uuid.UUID)
	if !ok || adminID == uuid.Nil {
		response.Unauthorized(c, "missing admin context")
		return
	}
	admin, err := h.repo.GetByID(c.Request.Context(), adminID)
	if err != nil {
		response.Internal(c, "failed to load account")
		return
	}
	if admin == nil {
		response.NotFound(c, "account not found")
		return
	}
	response.OK(c, admin)
}

// Create handles POST /admin/accounts (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RoleOperator
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	admin, err := h.repo.Create(c.Request.Context(), strings.ToLower(req.Email), hash, req.Name, role)
	if err != nil {
		h.logger.Error("create admin failed", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}
	if admin == nil {
		response.Conflict(c, "email already registered")
		return
	}
	response.Created(c, admin)
}

// List handles GET /admin/accounts.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list accounts")
		return
	}
	if list == nil {
		list = []models.Admin{}
	}
	response.OK(c, list)
}

// EnsureAdmin creates the bootstrap admin from config when no account has that email.
// It is skipped when no bootstrap password is configured.
func EnsureAdmin(ctx context.Context, repo Store, cfg config.AdminConfig, logger *zap.Logger) error {
	if cfg.Password == "" {
		logger.Warn("ADMIN_PASSWORD not set; skipping bootstrap admin")
		return nil
	}
	email := strings.ToLower(cfg.Email)
	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin, err := repo.Create(ctx, email, hash, cfg.Name, models.RoleAdmin)
	if err != nil {
		return err
	}
	if admin != nil {
		logger.Info("bootstrap admin created", zap.String("email", email))
	}
	return nil
}
