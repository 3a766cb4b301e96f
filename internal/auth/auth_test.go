package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/config"
	"github.com/aura-debate/backend/internal/models"
)

type memStore struct {
	byEmail map[string]*models.Admin
}

func newMemStore() *memStore { return &memStore{byEmail: map[string]*models.Admin{}} }

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	for _, a := range m.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	return m.byEmail[email], nil
}

func (m *memStore) Create(_ context.Context, email, hash, name string, role models.Role) (*models.Admin, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, nil
	}
	a := &models.Admin{ID: uuid.New(), Email: email, Password: hash, Name: name, Role: role, CreatedAt: time.Now()}
	m.byEmail[email] = a
	return a, nil
}

func (m *memStore) List(context.Context) ([]models.Admin, error) {
	var out []models.Admin
	for _, a := range m.byEmail {
		out = append(out, *a)
	}
	return out, nil
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	token, err := svc.Generate(&models.Admin{ID: id, Email: "ops@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AdminID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsUnknownRole(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(&models.Admin{ID: uuid.New(), Email: "x@example.com", Role: "viewer"})
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Expired(t *testing.T) {
	svc := NewJWTService("secret", -1)
	token, err := svc.Generate(&models.Admin{ID: uuid.New(), Email: "ops@example.com", Role: models.RoleOperator})
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("hunter23", hash))
}

func TestEnsureAdmin(t *testing.T) {
	store := newMemStore()
	cfg := config.AdminConfig{Email: "Root@Example.com", Password: "changeme1", Name: "Root"}

	require.NoError(t, EnsureAdmin(context.Background(), store, cfg, zap.NewNop()))
	require.NoError(t, EnsureAdmin(context.Background(), store, cfg, zap.NewNop()))
	require.Len(t, store.byEmail, 1)
	a := store.byEmail["root@example.com"]
	require.NotNil(t, a)
	assert.Equal(t, models.RoleAdmin, a.Role)

	empty := newMemStore()
	require.NoError(t, EnsureAdmin(context.Background(), empty, config.AdminConfig{Email: "x@example.com"}, zap.NewNop()))
	assert.Empty(t, empty.byEmail)
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	require.NoError(t, EnsureAdmin(context.Background(), store,
		config.AdminConfig{Email: "root@example.com", Password: "changeme1"}, zap.NewNop()))

	svc := NewJWTService("secret", 1)
	h := NewHandler(store, svc, nil)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/accounts", h.Create)

	w := post(r, "/auth/login", gin.H{"email": "root@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/auth/login", gin.H{"email": "ROOT@example.com", "password": "changeme1"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	claims, err := svc.Validate(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotContains(t, w.Body.String(), "changeme1")

	w = post(r, "/accounts", gin.H{"email": "op@example.com", "password": "longenough"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleOperator, store.byEmail["op@example.com"].Role)

	w = post(r, "/accounts", gin.H{"email": "op@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
