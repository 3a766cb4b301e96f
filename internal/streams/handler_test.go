package streams

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
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/models"
)

type memStore struct {
	streams map[uuid.UUID]*models.Stream
}

func (m *memStore) Create(_ context.Context, s *models.Stream) error {
	s.ID = uuid.New()
	cp := *s
	m.streams[s.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, s *models.Stream) (bool, error) {
	if _, ok := m.streams[s.ID]; !ok {
		return false, nil
	}
	cp := *s
	m.streams[s.ID] = &cp
	return true, nil
}

func (m *memStore) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) (*models.Stream, error) {
	s, ok := m.streams[id]
	if !ok {
		return nil, nil
	}
	s.Enabled = enabled
	cp := *s
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.streams[id]
	delete(m.streams, id)
	return ok, nil
}

func (m *memStore) GetStream(_ context.Context, id uuid.UUID) (*models.Stream, error) {
	s, ok := m.streams[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) List(context.Context) ([]models.Stream, error) {
	var out []models.Stream
	for _, s := range m.streams {
		out = append(out, *s)
	}
	return out, nil
}

type liveSet map[uuid.UUID]bool

func (l liveSet) ActiveLiveID(id uuid.UUID) (uuid.UUID, bool) {
	if l[id] {
		return uuid.New(), true
	}
	return uuid.Nil, false
}

func setup() (*gin.Engine, *memStore, liveSet) {
	gin.SetMode(gin.TestMode)
	store := &memStore{streams: make(map[uuid.UUID]*models.Stream)}
	live := liveSet{}
	h := NewHandler(store, nil, live, zap.NewNop())
	r := gin.New()
	r.GET("/streams", h.List)
	r.POST("/streams", h.Create)
	r.PUT("/streams/:id", h.Update)
	r.POST("/streams/:id/toggle", h.Toggle)
	r.DELETE("/streams/:id", h.Delete)
	return r, store, live
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
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

func TestStreamRequestDefaults(t *testing.T) {
	s, err := StreamRequest{Name: " Finals ", URL: "https://cdn.example.com/live.m3u8"}.toStream()
	require.NoError(t, err)
	assert.Equal(t, "Finals", s.Name)
	assert.Equal(t, "hls", s.Type)
	assert.True(t, s.Enabled)

	_, err = StreamRequest{Name: "x", URL: "not a url"}.toStream()
	assert.Error(t, err)
	_, err = StreamRequest{Name: "x", URL: "rtmp://ingest.example.com/app", Type: "mp3"}.toStream()
	assert.Error(t, err)
}

func TestCreateAndToggle(t *testing.T) {
	r, store, live := setup()

	w := send(r, http.MethodPost, "/streams", gin.H{"name": "Semi", "url": "rtmp://ingest.example.com/semi", "type": "RTMP"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.streams, 1)
	var id uuid.UUID
	for k := range store.streams {
		id = k
	}
	assert.Equal(t, "rtmp", store.streams[id].Type)

	live[id] = true
	w = send(r, http.MethodPost, "/streams/"+id.String()+"/toggle", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = send(r, http.MethodDelete, "/streams/"+id.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	live[id] = false
	w = send(r, http.MethodPost, "/streams/"+id.String()+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.streams[id].Enabled)

	w = send(r, http.MethodDelete, "/streams/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = send(r, http.MethodDelete, "/streams/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUnknown(t *testing.T) {
	r, _, _ := setup()
	w := send(r, http.MethodPut, "/streams/"+uuid.NewString(), gin.H{"name": "a", "url": "https://a.example.com/x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodPut, "/streams/bad", gin.H{"name": "a", "url": "https://a.example.com/x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
