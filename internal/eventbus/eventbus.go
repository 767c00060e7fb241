// Package eventbus publishes log-ring entries to an optional external
// Redis channel, grounded directly on the teacher's ObservabilityBus +
// subscribeRedis: a local fan-out bus for in-process SSE subscribers, with
// Redis as an optional, best-effort sink for out-of-process dashboards.
// When REDIS_URL is unset the bus degrades to local-only fan-out exactly
// as the teacher's subscribeRedis does when Redis never becomes ready.
package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
)

const channel = "gateway:events"

// Bus fans log entries out to local subscribers (the SSE handler) and,
// when configured, publishes them to Redis for external dashboards.
type Bus struct {
	mu      sync.RWMutex
	clients map[chan logring.Entry]struct{}

	redis *redis.Client
}

// New builds a Bus. redisAddr == "" disables the Redis sink; local
// subscriber fan-out always works regardless.
func New(redisAddr string) *Bus {
	b := &Bus{
		clients: make(map[chan logring.Entry]struct{}),
	}
	if redisAddr == "" {
		return b
	}
	b.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
	go b.pingUntilReady(redisAddr)
	return b
}

// pingUntilReady retries the Redis connection the way the teacher's
// subscribeRedis does, logging and continuing in degraded mode if Redis
// never becomes reachable.
func (b *Bus) pingUntilReady(addr string) {
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := b.redis.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Printf("[gateway] Redis event sink connected at %s", addr)
			return
		}
		log.Printf("[gateway] Redis event sink not ready (%d/10), retrying...", i+1)
		time.Sleep(2 * time.Second)
	}
	log.Printf("[gateway] Redis event sink unavailable — external publish disabled")
	b.mu.Lock()
	b.redis = nil
	b.mu.Unlock()
}

// Subscribe returns a bounded channel of future log entries for a local
// consumer (the SSE handler).
func (b *Bus) Subscribe() chan logring.Entry {
	ch := make(chan logring.Entry, 32)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Bus) Unsubscribe(ch chan logring.Entry) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

// Publish fans an entry out to every local subscriber (dropping rather
// than blocking on a slow one) and, if Redis is connected, publishes it to
// the external channel as a best-effort side effect.
func (b *Bus) Publish(entry logring.Entry) {
	b.mu.RLock()
	redisClient := b.redis
	for ch := range b.clients {
		select {
		case ch <- entry:
		default:
		}
	}
	b.mu.RUnlock()

	if redisClient == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := redisClient.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[gateway] redis publish failed: %v", err)
	}
}

// Close releases the Redis connection, if any.
func (b *Bus) Close() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.redis == nil {
		return nil
	}
	return b.redis.Close()
}
