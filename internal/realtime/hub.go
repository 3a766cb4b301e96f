package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/metrics"
)

const (
	// DefaultHeartbeat is the server ping interval; the read deadline is twice this.
	DefaultHeartbeat = 30 * time.Second

	mirrorBuffer = 1024
)

// Message is the envelope of every frame sent to subscribers.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// OnlineChangeHandler is called when a stream's online count changes (e.g. for peak tracking).
type OnlineChangeHandler func(streamID uuid.UUID, count int)

// SnapshotFunc builds the state sent to a newly connected subscriber.
type SnapshotFunc func(ctx context.Context) live.Event

// EventMirror copies locally published events to other processes.
type EventMirror interface {
	PublishEvent(ctx context.Context, eventType string, data []byte) error
}

// Hub fans events out to every connected subscriber and tracks per-stream presence.
// Subscribers whose send buffer is full are pruned.
type Hub struct {
	clients   map[string]*Client
	online    map[uuid.UUID]int
	mu        sync.RWMutex
	logger    *zap.Logger
	heartbeat time.Duration

	mirror   EventMirror
	mirrorCh chan Message
	snapshot SnapshotFunc
	onOnline OnlineChangeHandler
}

// NewHub creates a hub. mirror may be nil.
func NewHub(logger *zap.Logger, mirror EventMirror, heartbeat time.Duration) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Hub{
		clients:   make(map[string]*Client),
		online:    make(map[uuid.UUID]int),
		logger:    logger,
		heartbeat: heartbeat,
		mirror:    mirror,
		mirrorCh:  make(chan Message, mirrorBuffer),
	}
}

// SetSnapshotFunc sets the state provider used on connect.
func (h *Hub) SetSnapshotFunc(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// SetOnlineChangeHandler sets the callback for presence changes.
func (h *Hub) SetOnlineChangeHandler(fn OnlineChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onOnline = fn
}

// Run forwards published events to the mirror until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.mirrorCh:
			if h.mirror == nil {
				continue
			}
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := h.mirror.PublishEvent(pctx, msg.Type, msg.Data); err != nil {
				h.logger.Warn("mirror event", zap.String("type", msg.Type), zap.Error(err))
			}
			cancel()
		}
	}
}

// Publish delivers ev to local subscribers and queues it for the mirror. Never blocks.
func (h *Hub) Publish(ev live.Event) {
	msg, err := newMessage(ev.EventType(), ev)
	if err != nil {
		h.logger.Warn("marshal event", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	h.broadcast(msg)
	if h.mirror == nil {
		return
	}
	select {
	case h.mirrorCh <- msg:
	default:
		h.logger.Warn("mirror queue full, dropping event", zap.String("type", msg.Type))
	}
}

// HandleRemote delivers an event received from another process to local subscribers only.
func (h *Hub) HandleRemote(eventType string, data []byte) {
	h.broadcast(Message{Type: eventType, Data: data, Timestamp: nowMillis()})
}

// OnlineCount returns the number of subscribers watching a stream.
func (h *Hub) OnlineCount(streamID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[streamID]
}

// OnlineCounts returns the online count of every watched stream.
func (h *Hub) OnlineCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.online))
	for id, n := range h.online {
		out[id.String()] = n
	}
	return out
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Attach registers a client, greets it and sends the current state.
func (h *Hub) Attach(ctx context.Context, c *Client) {
	greeting := map[string]interface{}{"clientId": c.ID}
	if c.StreamID != uuid.Nil {
		greeting["streamId"] = c.StreamID
	}
	if msg, err := newMessage("connected", greeting); err == nil {
		c.enqueue(msg)
	}

	changed := h.register(c)

	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()
	if snapshot != nil {
		ev := snapshot(ctx)
		if msg, err := newMessage(ev.EventType(), ev); err == nil {
			c.enqueue(msg)
		}
	}
	if changed {
		h.presenceChanged(c.StreamID)
	}
}

// register adds c and reports whether a stream's presence changed.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	h.clients[c.ID] = c
	if c.StreamID != uuid.Nil {
		h.online[c.StreamID]++
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(n))
	h.logger.Debug("subscriber connected", zap.String("client_id", c.ID), zap.String("stream_id", c.StreamID.String()))
	return c.StreamID != uuid.Nil
}

// Unregister removes c. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	if !h.remove(c) {
		return
	}
	if c.StreamID != uuid.Nil {
		h.presenceChanged(c.StreamID)
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.ID)
	if c.StreamID != uuid.Nil {
		if h.online[c.StreamID] <= 1 {
			delete(h.online, c.StreamID)
		} else {
			h.online[c.StreamID]--
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	metrics.Subscribers.Set(float64(n))
	h.logger.Debug("subscriber disconnected", zap.String("client_id", c.ID))
	return true
}

func (h *Hub) presenceChanged(streamID uuid.UUID) {
	h.mu.RLock()
	count := h.online[streamID]
	onOnline := h.onOnline
	h.mu.RUnlock()
	if onOnline != nil {
		onOnline(streamID, count)
	}
	h.Publish(live.StreamOnlineUpdate{StreamOnlineCounts: h.OnlineCounts(), Timestamp: nowMillis()})
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var stale []*Client
	for _, c := range clients {
		if !c.enqueue(msg) {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		h.logger.Debug("pruning slow subscriber", zap.String("client_id", c.ID))
		h.Unregister(c)
	}
}

func newMessage(eventType string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Data: data, Timestamp: nowMillis()}, nil
}

func nowMillis() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }
