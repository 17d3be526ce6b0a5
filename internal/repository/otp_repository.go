package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/uni-attendance-api/pkg/cache"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

// OTPRepository keeps password reset codes in Redis, keyed by user id.
// Only a hash of the code is stored.
type OTPRepository struct {
	client redis.UniversalClient
}

func NewOTPRepository(client redis.UniversalClient) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(userID string) string { return cache.Key("otp", userID) }

func otpAttemptsKey(userID string) string { return cache.Key("otp", userID, "attempts") }

// Save stores codeHash for ttl and resets the attempt counter.
func (r *OTPRepository) Save(ctx context.Context, userID, codeHash string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, otpKey(userID), codeHash, ttl)
	pipe.Del(ctx, otpAttemptsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// Get returns the stored hash or appErrors.ErrCacheMiss once it expired.
func (r *OTPRepository) Get(ctx context.Context, userID string) (string, error) {
	hash, err := r.client.Get(ctx, otpKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("get otp: %w", err)
	}
	return hash, nil
}

// IncrementAttempts counts failed verifications. The counter lives as long
// as the code.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, userID string, ttl time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, otpAttemptsKey(userID))
	pipe.Expire(ctx, otpAttemptsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return incr.Val(), nil
}

// Delete removes the code and its counter.
func (r *OTPRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, otpKey(userID), otpAttemptsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
