package debates

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

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

type memStore struct {
	debates map[uuid.UUID]*models.Debate
	links   map[uuid.UUID]uuid.UUID
	flows   map[uuid.UUID][]models.FlowSegment
}

func newMemStore() *memStore {
	return &memStore{
		debates: make(map[uuid.UUID]*models.Debate),
		links:   make(map[uuid.UUID]uuid.UUID),
		flows:   make(map[uuid.UUID][]models.FlowSegment),
	}
}

func (m *memStore) Create(_ context.Context, d *models.Debate) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.debates[d.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, d *models.Debate) (bool, error) {
	if _, ok := m.debates[d.ID]; !ok {
		return false, nil
	}
	cp := *d
	m.debates[d.ID] = &cp
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.debates[id]
	delete(m.debates, id)
	for s, d := range m.links {
		if d == id {
			delete(m.links, s)
		}
	}
	return ok, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.Debate, error) {
	d, ok := m.debates[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) List(context.Context) ([]models.Debate, error) {
	var out []models.Debate
	for _, d := range m.debates {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) ForStream(ctx context.Context, streamID uuid.UUID) (*models.Debate, error) {
	id, ok := m.links[streamID]
	if !ok {
		return nil, nil
	}
	return m.Get(ctx, id)
}

func (m *memStore) Link(_ context.Context, streamID, debateID uuid.UUID) error {
	m.links[streamID] = debateID
	return nil
}

func (m *memStore) Unlink(_ context.Context, streamID uuid.UUID) (bool, error) {
	_, ok := m.links[streamID]
	delete(m.links, streamID)
	return ok, nil
}

func (m *memStore) CreateForStream(ctx context.Context, streamID uuid.UUID, d *models.Debate) error {
	if err := m.Create(ctx, d); err != nil {
		return err
	}
	return m.Link(ctx, streamID, d.ID)
}

func (m *memStore) GetFlow(_ context.Context, streamID uuid.UUID) ([]models.FlowSegment, error) {
	return m.flows[streamID], nil
}

func (m *memStore) SaveFlow(_ context.Context, streamID uuid.UUID, segments []models.FlowSegment) error {
	m.flows[streamID] = segments
	return nil
}

type streamSet map[uuid.UUID]bool

func (s streamSet) GetStream(_ context.Context, id uuid.UUID) (*models.Stream, error) {
	if !s[id] {
		return nil, nil
	}
	return &models.Stream{ID: id, Name: "s", Enabled: true}, nil
}

type captured struct {
	events []live.Event
}

func (c *captured) Publish(ev live.Event) { c.events = append(c.events, ev) }

func setup() (*gin.Engine, *memStore, streamSet, *captured) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	streams := streamSet{}
	pub := &captured{}
	h := NewHandler(store, streams, pub, zap.NewNop())
	r := gin.New()
	r.GET("/debates", h.List)
	r.POST("/debates", h.Create)
	r.GET("/debates/:id", h.Get)
	r.PUT("/debates/:id", h.Update)
	r.DELETE("/debates/:id", h.Delete)
	r.GET("/streams/:id/debate", h.StreamDebate)
	r.PUT("/streams/:id/debate", h.SetStreamDebate)
	r.DELETE("/streams/:id/debate", h.ClearStreamDebate)
	r.GET("/debate-topic", h.Topic)
	r.GET("/debate-flow", h.Flow)
	r.POST("/debate-flow", h.SaveFlow)
	r.POST("/debate-flow/control", h.ControlFlow)
	return r, store, streams, pub
}

func send(r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Body) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestDebateCRUD(t *testing.T) {
	r, store, _, pub := setup()

	w, _ := send(r, http.MethodPost, "/debates", gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := send(r, http.MethodPost, "/debates", gin.H{
		"title":         " Remote work ",
		"leftPosition":  "Better",
		"rightPosition": "Worse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "Remote work", data["title"])
	assert.Equal(t, true, data["isActive"])
	id := uuid.MustParse(data["id"].(string))
	require.Len(t, pub.events, 1)
	assert.Equal(t, live.TypeDebateUpdated, pub.events[0].EventType())

	w, _ = send(r, http.MethodPut, "/debates/"+id.String(), gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Remote work", store.debates[id].Title)
	assert.Equal(t, "Better", store.debates[id].LeftPosition)
	assert.False(t, store.debates[id].IsActive)

	w, _ = send(r, http.MethodPut, "/debates/"+id.String(), gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = send(r, http.MethodPut, "/debates/"+uuid.NewString(), gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = send(r, http.MethodGet, "/debates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body.Data, 1)

	w, _ = send(r, http.MethodDelete, "/debates/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	last := pub.events[len(pub.events)-1].(live.DebateUpdated)
	assert.Nil(t, last.Debate)
	assert.Equal(t, id, last.DebateID)

	w, _ = send(r, http.MethodGet, "/debates/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = send(r, http.MethodGet, "/debates/bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamDebate_CreateEditLinkUnlink(t *testing.T) {
	r, store, streams, pub := setup()
	streamID := uuid.New()
	streams[streamID] = true
	path := "/streams/" + streamID.String() + "/debate"

	w, body := send(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body.Data)

	w, _ = send(r, http.MethodPut, "/streams/"+uuid.NewString()+"/debate", gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = send(r, http.MethodPut, path, gin.H{"title": "AI art", "leftPosition": "Art", "rightPosition": "Not art"})
	require.Equal(t, http.StatusOK, w.Code)
	first, ok := store.links[streamID]
	require.True(t, ok)

	w, _ = send(r, http.MethodPut, path, gin.H{"rightPosition": "Imitation"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, store.links[streamID], "edits the linked debate in place")
	assert.Equal(t, "AI art", store.debates[first].Title)
	assert.Equal(t, "Imitation", store.debates[first].RightPosition)

	other := &models.Debate{Title: "Cities", IsActive: true}
	require.NoError(t, store.Create(context.Background(), other))
	w, _ = send(r, http.MethodPut, path, gin.H{"debateId": other.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, other.ID, store.links[streamID])

	w, _ = send(r, http.MethodPut, path, gin.H{"debateId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = send(r, http.MethodPut, path, gin.H{"debateId": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ev := pub.events[len(pub.events)-1].(live.DebateUpdated)
	require.NotNil(t, ev.StreamID)
	assert.Equal(t, streamID, *ev.StreamID)
	assert.Equal(t, other.ID, ev.DebateID)

	w, _ = send(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, store.links, streamID)
	assert.Contains(t, store.debates, other.ID)
	assert.Nil(t, pub.events[len(pub.events)-1].(live.DebateUpdated).Debate)

	w, _ = send(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTopic(t *testing.T) {
	r, store, _, _ := setup()
	streamID := uuid.New()
	d := &models.Debate{Title: "Four-day week", Description: "Should it be law?", LeftPosition: "Yes", RightPosition: "No", IsActive: true}
	require.NoError(t, store.CreateForStream(context.Background(), streamID, d))

	w, _ := send(r, http.MethodGet, "/debate-topic", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := send(r, http.MethodGet, "/debate-topic?stream_id="+streamID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "Four-day week", data["title"])
	assert.Equal(t, "Yes", data["leftPosition"])

	store.debates[d.ID].IsActive = false
	w, body = send(r, http.MethodGet, "/debate-topic?stream_id="+streamID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body.Data)

	w, body = send(r, http.MethodGet, "/debate-topic?stream_id="+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body.Data)
}

func TestNormalizeSegments(t *testing.T) {
	got, err := NormalizeSegments([]SegmentInput{
		{Name: "  Opening ", Duration: float64(240), Side: "LEFT"},
		{Name: "", Duration: "90", Side: "right"},
		{Name: "Rebuttal", Duration: float64(3), Side: "center"},
		{Name: "Free", Duration: nil},
		{Name: "Bad", Duration: "abc", Side: "both"},
		{Name: "Zero", Duration: float64(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.FlowSegment{
		{Name: "Opening", Duration: 240, Side: models.FlowLeft},
		{Name: "Segment 2", Duration: 90, Side: models.FlowRight},
		{Name: "Rebuttal", Duration: 10, Side: models.FlowBoth},
		{Name: "Free", Duration: 180, Side: models.FlowBoth},
		{Name: "Bad", Duration: 180, Side: models.FlowBoth},
		{Name: "Zero", Duration: 180, Side: models.FlowBoth},
	}, got)

	_, err = NormalizeSegments(nil)
	assert.Error(t, err)
	_, err = NormalizeSegments(make([]SegmentInput, maxSegments+1))
	assert.Error(t, err)
}

func TestFlow_DefaultSaveAndControl(t *testing.T) {
	r, store, streams, pub := setup()
	streamID := uuid.New()
	streams[streamID] = true

	w, _ := send(r, http.MethodGet, "/debate-flow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := send(r, http.MethodGet, "/debate-flow?stream_id="+streamID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	segments := body.Data.(map[string]interface{})["segments"].([]interface{})
	assert.Len(t, segments, len(DefaultFlow()))

	w, _ = send(r, http.MethodPost, "/debate-flow", gin.H{
		"streamId": uuid.NewString(),
		"segments": []gin.H{{"name": "x", "duration": 60, "side": "left"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = send(r, http.MethodPost, "/debate-flow", gin.H{
		"streamId": streamID.String(),
		"segments": []gin.H{{"name": "Opening", "duration": 60, "side": "left"}, {"name": "Close", "duration": 5}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.FlowSegment{
		{Name: "Opening", Duration: 60, Side: models.FlowLeft},
		{Name: "Close", Duration: 10, Side: models.FlowBoth},
	}, store.flows[streamID])
	require.Len(t, pub.events, 1)
	assert.Equal(t, live.TypeDebateFlowUpdated, pub.events[0].EventType())

	w, body = send(r, http.MethodGet, "/debate-flow?stream_id="+streamID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body.Data.(map[string]interface{})["segments"], 2)

	w, _ = send(r, http.MethodPost, "/debate-flow/control", gin.H{"streamId": streamID.String(), "action": "rewind"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = send(r, http.MethodPost, "/debate-flow/control", gin.H{"streamId": streamID.String(), "action": "Next"})
	require.Equal(t, http.StatusOK, w.Code)
	ctl := pub.events[len(pub.events)-1].(live.DebateFlowControl)
	assert.Equal(t, "next", ctl.Action)
	assert.Equal(t, streamID, ctl.StreamID)
}
