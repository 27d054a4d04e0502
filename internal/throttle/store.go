package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps request times in process. Entries older than ttl are
// dropped whenever a new time is recorded.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	last map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * DefaultInterval
	}
	return &MemoryStore{ttl: ttl, last: make(map[string]time.Time)}
}

func (s *MemoryStore) LastRequest(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.last[key]
	return at, ok, nil
}

func (s *MemoryStore) SetLastRequest(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.last {
		if at.Sub(t) > s.ttl {
			delete(s.last, k)
		}
	}
	s.last[key] = at
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, key)
	return nil
}

// Len reports how many keys are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

// RedisStore shares request times between service replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore keeps entries for ttl; anything older than the throttle
// interval is irrelevant, so twice the interval is plenty.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * DefaultInterval
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("trivia:throttle:%s", key)
}

func (s *RedisStore) LastRequest(ctx context.Context, key string) (time.Time, bool, error) {
	ms, err := s.client.Get(ctx, s.key(key)).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisStore) SetLastRequest(ctx context.Context, key string, at time.Time) error {
	return s.client.Set(ctx, s.key(key), at.UnixMilli(), s.ttl).Err()
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
