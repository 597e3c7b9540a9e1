package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when the key is already held
var ErrLocked = errors.New("lock is already held")

// Locker hands out expiring exclusive locks keyed by name
type Locker interface {
	// Acquire returns a release func, or ErrLocked if the key is held
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	redis *Redis
}

func NewRedisLocker(r *Redis) *RedisLocker {
	return &RedisLocker{redis: r}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	fullKey := Key("lock", key)

	ok, err := l.redis.SetNX(ctx, fullKey, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// the request context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.redis.Client(), []string{fullKey}, token).Err()
	}, nil
}

// MemoryLocker is the single-process Locker
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]heldLock
	now  func() time.Time
}

type heldLock struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]heldLock), now: time.Now}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.held[key]; ok && l.now().Before(h.expiresAt) {
		return nil, ErrLocked
	}

	token := uuid.New().String()
	l.held[key] = heldLock{token: token, expiresAt: l.now().Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[key]; ok && h.token == token {
			delete(l.held, key)
		}
	}, nil
}
