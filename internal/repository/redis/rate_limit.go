package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arklim/account-portal/internal/core/port"
)

const defaultKeyPrefix = "portal:rate-limit"

// RateLimitStore tracks login attempts in Redis sorted sets, one set per
// identifier, scored by attempt timestamp for sliding-window counting.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)

// NewRateLimitStore creates a Redis-backed rate limit store. Keys are
// namespaced under prefix so several deployments can share an instance.
func NewRateLimitStore(client *redis.Client, prefix string) *RateLimitStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RateLimitStore{client: client, keyPrefix: prefix}
}

func (s *RateLimitStore) attemptKey(identifier string) string {
	return fmt.Sprintf("%s:login:%s", s.keyPrefix, identifier)
}

// TrimWindow removes attempts older than the window from the identifier's set.
func (s *RateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	cutoff := reference.Add(-window).UnixMilli()
	err := s.client.ZRemRangeByScore(ctx, s.attemptKey(identifier), "-inf", strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("trim rate limit window: %w", err)
	}
	return nil
}

// CountAttempts returns how many attempts fall inside the sliding window.
func (s *RateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	cutoff := reference.Add(-window).UnixMilli()
	count, err := s.client.ZCount(ctx, s.attemptKey(identifier),
		strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count rate limit attempts: %w", err)
	}
	return int(count), nil
}

// RecordAttempt registers a new attempt and refreshes the key's TTL so
// abandoned identifiers expire on their own.
func (s *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.attemptKey(identifier)

	// Unique member per attempt; a bare timestamp would collapse attempts
	// landing in the same millisecond.
	member := fmt.Sprintf("%d-%s", at.UnixMilli(), uuid.NewString())

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: member})
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate limit attempt: %w", err)
	}
	return nil
}

// OldestAttempt returns the earliest attempt inside the window, used to
// compute when the caller may retry.
func (s *RateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	cutoff := reference.Add(-window).UnixMilli()

	entries, err := s.client.ZRangeByScoreWithScores(ctx, s.attemptKey(identifier), &redis.ZRangeBy{
		Min:    strconv.FormatInt(cutoff, 10),
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read oldest rate limit attempt: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}

	return time.UnixMilli(int64(entries[0].Score)), true, nil
}
