package participants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-debate/backend/internal/models"
)

type memStore struct {
	people                map[string]*models.Participant
	lastLimit, lastOffset int
}

func (m *memStore) Upsert(_ context.Context, p *models.Participant) error {
	if cur, ok := m.people[p.ID]; ok {
		p.Status = cur.Status
	} else {
		p.Status = models.ParticipantActive
	}
	cp := *p
	m.people[p.ID] = &cp
	return nil
}

func (m *memStore) List(_ context.Context, status models.ParticipantStatus, limit, offset int) ([]models.Participant, int, error) {
	m.lastLimit, m.lastOffset = limit, offset
	var out []models.Participant
	for _, p := range m.people {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *memStore) ToggleBan(_ context.Context, id string) (*models.Participant, error) {
	p, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	if p.Status == models.ParticipantBanned {
		p.Status = models.ParticipantActive
	} else {
		p.Status = models.ParticipantBanned
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, ids []string, status models.ParticipantStatus) (int, error) {
	for _, id := range ids {
		m.people[id] = &models.Participant{ID: id, Status: status}
	}
	return len(ids), nil
}

func (m *memStore) VotesByParticipant(context.Context, string, int) ([]models.VoteRecord, error) {
	return nil, nil
}

func (m *memStore) VotersByStream(_ context.Context, id uuid.UUID, _ int) ([]models.Voter, error) {
	return []models.Voter{{ParticipantID: "u1", Side: models.SideLeft, Weight: 2}}, nil
}

func setup() (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	store := &memStore{people: map[string]*models.Participant{}}
	h := NewHandler(store, nil)
	r := gin.New()
	r.POST("/participants", h.Register)
	r.GET("/participants", h.List)
	r.POST("/participants/status", h.SetStatus)
	r.POST("/participants/:id/toggle-ban", h.ToggleBan)
	r.GET("/participants/:id/votes", h.Votes)
	r.GET("/voters", h.Voters)
	return r, store
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndToggleBan(t *testing.T) {
	r, store := setup()

	w := do(r, http.MethodPost, "/participants", gin.H{"userId": "u1", "nickName": " Ann "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", store.people["u1"].NickName)

	w = do(r, http.MethodPost, "/participants/u1/toggle-ban", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.people["u1"].IsBanned())

	w = do(r, http.MethodPost, "/participants/u1/toggle-ban", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.people["u1"].IsBanned())

	w = do(r, http.MethodPost, "/participants/ghost/toggle-ban", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegister_RequiresID(t *testing.T) {
	r, _ := setup()
	w := do(r, http.MethodPost, "/participants", gin.H{"userId": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList_Pagination(t *testing.T) {
	r, store := setup()
	w := do(r, http.MethodGet, "/participants?page=3&page_size=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxPageSize, store.lastLimit)
	assert.Equal(t, 2*maxPageSize, store.lastOffset)

	w = do(r, http.MethodGet, "/participants?status=weird", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetStatus(t *testing.T) {
	r, store := setup()
	w := do(r, http.MethodPost, "/participants/status", gin.H{"userIds": []string{"a", "b"}, "status": "banned"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.people["a"].IsBanned())
	assert.True(t, store.people["b"].IsBanned())

	w = do(r, http.MethodPost, "/participants/status", gin.H{"userIds": []string{"a"}, "status": "deleted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVotesAndVoters(t *testing.T) {
	r, _ := setup()
	w := do(r, http.MethodGet, "/participants/u1/votes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = do(r, http.MethodGet, "/voters?stream_id="+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u1"`)

	w = do(r, http.MethodGet, "/voters?stream_id=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
