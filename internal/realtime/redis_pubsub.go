package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisPayload is the message published on the event channel.
type redisPayload struct {
	Origin string          `json:"origin"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// RedisPubSub mirrors events over one Redis channel. Each instance tags what it
// publishes with its origin and ignores its own messages on receipt.
type RedisPubSub struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisPubSub creates a pub/sub bridge on channel.
func NewRedisPubSub(client *redis.Client, channel string, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, channel: channel, origin: uuid.NewString(), logger: logger}
}

// Origin returns the tag this instance publishes under.
func (r *RedisPubSub) Origin() string { return r.origin }

// PublishEvent publishes an already-encoded event payload.
func (r *RedisPubSub) PublishEvent(ctx context.Context, eventType string, data []byte) error {
	body, err := encodePayload(r.origin, eventType, data, time.Now())
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

// Publish encodes v and publishes it as eventType.
func (r *RedisPubSub) Publish(ctx context.Context, eventType string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.PublishEvent(ctx, eventType, data)
}

// Subscribe calls handler for every event published by other instances until cancel is called.
func (r *RedisPubSub) Subscribe(handler func(eventType string, data []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p, ok := decodePayload([]byte(msg.Payload))
				if !ok {
					r.logger.Debug("ignoring malformed event", zap.String("channel", msg.Channel))
					continue
				}
				if p.Origin == r.origin {
					continue
				}
				handler(p.Type, p.Data)
			}
		}
	}()
	return cancelCtx, nil
}

func encodePayload(origin, eventType string, data []byte, at time.Time) ([]byte, error) {
	return json.Marshal(redisPayload{Origin: origin, Type: eventType, Data: data, At: at.Unix()})
}

func decodePayload(raw []byte) (redisPayload, bool) {
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Type == "" {
		return redisPayload{}, false
	}
	return p, true
}
