package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

func (r *RateLimiter) checkMinuteLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	return r.checkSlidingWindowLimit(ctx, key, limit, time.Minute)
}

func (r *RateLimiter) checkDayLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	return r.checkSlidingWindowLimit(ctx, key, limit, 24*time.Hour)
}

func (r *RateLimiter) getMinuteRemaining(ctx context.Context, key string, limit int) (bool, int, error) {
	return r.getSlidingWindowRemaining(ctx, key, limit, time.Minute)
}

func (r *RateLimiter) getDayRemaining(ctx context.Context, key string, limit int) (bool, int, error) {
	return r.getSlidingWindowRemaining(ctx, key, limit, 24*time.Hour)
}

// checkSlidingWindowLimit records one hit in a sorted set scored by time
// and reports whether the window still had room for it.
func (r *RateLimiter) checkSlidingWindowLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMicro()

	client := r.cache.Client()
	pipe := client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		return false, 0, nil
	}

	// uuid member so two hits in the same microsecond both count
	pipe = client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.New().String()})
	pipe.Expire(ctx, key, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, limit - count, fmt.Errorf("failed to add rate limit entry: %w", err)
	}

	return true, limit - count - 1, nil
}

// getSlidingWindowRemaining returns the remaining requests without adding a new entry
func (r *RateLimiter) getSlidingWindowRemaining(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	windowStart := time.Now().Add(-window).UnixMicro()

	count, err := r.cache.Client().ZCount(ctx, key, strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, limit, fmt.Errorf("failed to get rate limit count: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return int(count) < limit, remaining, nil
}

// ResetLimit clears both windows for an identifier
func (r *RateLimiter) ResetLimit(ctx context.Context, identifier string) error {
	if err := r.cache.Delete(ctx, minuteKey(identifier), dayKey(identifier)); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// UsageStats contains detailed usage statistics
type UsageStats struct {
	Plan                models.Plan `json:"plan"`
	RequestsThisMinute  int         `json:"requestsThisMinute"`
	RequestsToday       int         `json:"requestsToday"`
	RemainingThisMinute int         `json:"remainingThisMinute"`
	RemainingToday      int         `json:"remainingToday"` // -1 means unlimited
	LimitPerMinute      int         `json:"limitPerMinute"`
	LimitPerDay         int         `json:"limitPerDay"` // -1 means unlimited
	ResetMinute         int64       `json:"resetMinute"`
}

// GetUsageStats returns the current window counts for an identifier
func (r *RateLimiter) GetUsageStats(ctx context.Context, identifier string, plan models.Plan) (*UsageStats, error) {
	limit := r.GetLimitForPlan(plan)
	now := time.Now()
	client := r.cache.Client()

	minuteStart := strconv.FormatInt(now.Add(-time.Minute).UnixMicro(), 10)
	minuteCount, err := client.ZCount(ctx, minuteKey(identifier), minuteStart, "+inf").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get minute count: %w", err)
	}

	dayStart := strconv.FormatInt(now.Add(-24*time.Hour).UnixMicro(), 10)
	dayCount, err := client.ZCount(ctx, dayKey(identifier), dayStart, "+inf").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get day count: %w", err)
	}

	minuteRemaining := limit.RequestsPerMinute - int(minuteCount)
	if minuteRemaining < 0 {
		minuteRemaining = 0
	}

	dayRemaining := limit.RequestsPerDay - int(dayCount)
	if limit.RequestsPerDay == -1 {
		dayRemaining = -1
	} else if dayRemaining < 0 {
		dayRemaining = 0
	}

	return &UsageStats{
		Plan:                plan,
		RequestsThisMinute:  int(minuteCount),
		RequestsToday:       int(dayCount),
		RemainingThisMinute: minuteRemaining,
		RemainingToday:      dayRemaining,
		LimitPerMinute:      limit.RequestsPerMinute,
		LimitPerDay:         limit.RequestsPerDay,
		ResetMinute:         now.Truncate(time.Minute).Add(time.Minute).Unix(),
	}, nil
}
