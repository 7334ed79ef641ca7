package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence tracks who is currently online via heartbeats. Online
// status is untrusted, eventually-consistent metadata: it decorates
// views but is never a correctness input, and a backend outage must
// read as "offline", never as a request failure.
type Presence interface {
	Heartbeat(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) bool
	OnlineSet(ctx context.Context, userIDs []string) map[string]bool
}

const presenceKeyPrefix = "presence:online:"

// RedisPresence stores one TTL key per online user. It fails safe by
// swallowing connectivity errors: a down redis means everyone reads
// as offline.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresence(addr, password string, db int, ttl time.Duration) *RedisPresence {
	return &RedisPresence{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (p *RedisPresence) Heartbeat(ctx context.Context, userID string) error {
	if p == nil || p.client == nil || userID == "" {
		return nil
	}
	if err := p.client.Set(ctx, presenceKeyPrefix+userID, "1", p.ttl).Err(); err != nil {
		// fail safe: presence is best-effort
		return nil
	}
	return nil
}

func (p *RedisPresence) IsOnline(ctx context.Context, userID string) bool {
	if p == nil || p.client == nil || userID == "" {
		return false
	}
	count, err := p.client.Exists(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		return false
	}
	return count > 0
}

func (p *RedisPresence) OnlineSet(ctx context.Context, userIDs []string) map[string]bool {
	online := make(map[string]bool, len(userIDs))
	if p == nil || p.client == nil || len(userIDs) == 0 {
		return online
	}

	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, presenceKeyPrefix+id)
	}

	pipe := p.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Exists(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return online
	}

	for i, cmd := range cmds {
		if count, err := cmd.Result(); err == nil && count > 0 {
			online[userIDs[i]] = true
		}
	}
	return online
}

// MemoryPresence is an in-process Presence used by tests and by the
// server when redis is not configured.
type MemoryPresence struct {
	mu   sync.RWMutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryPresence(ttl time.Duration) *MemoryPresence {
	return &MemoryPresence{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (p *MemoryPresence) Heartbeat(_ context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[userID] = p.now()
	return nil
}

func (p *MemoryPresence) IsOnline(_ context.Context, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	last, ok := p.seen[userID]
	return ok && p.now().Sub(last) < p.ttl
}

func (p *MemoryPresence) OnlineSet(ctx context.Context, userIDs []string) map[string]bool {
	online := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if p.IsOnline(ctx, id) {
			online[id] = true
		}
	}
	return online
}
