package cache

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxOTPAttempts is how many wrong codes invalidate a pending OTP
const MaxOTPAttempts = 5

var (
	// ErrOTPNotFound is returned when no code is pending or it expired
	ErrOTPNotFound = errors.New("otp not found or expired")
	// ErrOTPMismatch is returned for a wrong code
	ErrOTPMismatch = errors.New("otp does not match")
)

// OTPStore keeps one pending verification code per email
type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Verify consumes the code on a match
	Verify(ctx context.Context, email, code string) error
}

// GenerateOTP returns a random 6-digit code
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RedisOTPStore stores codes under expiring keys
type RedisOTPStore struct {
	redis *Redis
}

func NewRedisOTPStore(r *Redis) *RedisOTPStore {
	return &RedisOTPStore{redis: r}
}

func (s *RedisOTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	pipe := s.redis.Client().TxPipeline()
	pipe.Set(ctx, Key("otp", email), code, ttl)
	pipe.Del(ctx, Key("otp", email, "attempts"))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Verify(ctx context.Context, email, code string) error {
	codeKey, attemptsKey := Key("otp", email), Key("otp", email, "attempts")

	stored, err := s.redis.Get(ctx, codeKey)
	if errors.Is(err, redis.Nil) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	if !codesEqual(stored, code) {
		attempts, err := s.redis.Incr(ctx, attemptsKey)
		if err != nil {
			return fmt.Errorf("count otp attempt: %w", err)
		}
		if attempts == 1 {
			ttl, _ := s.redis.Client().TTL(ctx, codeKey).Result()
			if ttl > 0 {
				_ = s.redis.Expire(ctx, attemptsKey, ttl)
			}
		}
		if attempts >= MaxOTPAttempts {
			_ = s.redis.Delete(ctx, codeKey, attemptsKey)
		}
		return ErrOTPMismatch
	}

	return s.redis.Delete(ctx, codeKey, attemptsKey)
}

// MemoryOTPStore is the single-process OTPStore
type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]*pendingOTP
	now   func() time.Time
}

type pendingOTP struct {
	code      string
	expiresAt time.Time
	attempts  int
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{codes: make(map[string]*pendingOTP), now: time.Now}
}

func (s *MemoryOTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = &pendingOTP{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryOTPStore) Verify(ctx context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.codes[email]
	if !ok || s.now().After(p.expiresAt) {
		delete(s.codes, email)
		return ErrOTPNotFound
	}
	if !codesEqual(p.code, code) {
		p.attempts++
		if p.attempts >= MaxOTPAttempts {
			delete(s.codes, email)
		}
		return ErrOTPMismatch
	}
	delete(s.codes, email)
	return nil
}
