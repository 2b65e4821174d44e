package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

const channelPrefix = "research:auth:" // research:auth:{client_id}

// RedisHub publishes auth events on a Redis channel so every process of the
// same client sees session changes made by any of them.
type RedisHub struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

func NewRedisHub(client *redis.Client, clientID string, log *zap.Logger) *RedisHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisHub{
		client:  client,
		channel: channelPrefix + clientID,
		log:     log,
		subs:    make(map[*redis.PubSub]struct{}),
	}
}

// Channel returns the Redis channel the hub uses.
func (h *RedisHub) Channel() string { return h.channel }

func (h *RedisHub) Publish(ctx context.Context, ev authdomain.AuthEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	if err := h.client.Publish(ctx, h.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

func (h *RedisHub) Subscribe(fn func(authdomain.AuthEvent)) remote.Subscription {
	ctx := context.Background()
	ps := h.client.Subscribe(ctx, h.channel)

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		h.log.Warn("auth event subscription failed", zap.String("channel", h.channel), zap.Error(err))
		_ = ps.Close()
		return remote.SubscriptionFunc(func() {})
	}

	h.mu.Lock()
	h.subs[ps] = struct{}{}
	h.mu.Unlock()

	go func() {
		for msg := range ps.Channel() {
			var ev authdomain.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Warn("dropping malformed auth event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			fn(ev)
		}
	}()

	var once sync.Once
	return remote.SubscriptionFunc(func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ps)
			h.mu.Unlock()
			_ = ps.Close()
		})
	})
}

// Close releases every open subscription. The Redis client is owned by the caller.
func (h *RedisHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ps := range h.subs {
		_ = ps.Close()
		delete(h.subs, ps)
	}
	return nil
}
