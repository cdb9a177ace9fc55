package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/billfold/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTokenBucketAllowsBurstThenDenies(t *testing.T) {
	mr, client := newTestClient(t)
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "k", 1, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	mr.SetTime(start.Add(2 * time.Second))
	res, err = bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "other", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucketRejectsBadArguments(t *testing.T) {
	_, client := newTestClient(t)
	bucket := NewTokenBucket(client)

	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestPublicViewLimiterUsesInvoicingConfig(t *testing.T) {
	mr, client := newTestClient(t)
	mr.SetTime(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))

	cfg := config.DefaultInvoicingConfig()
	cfg.PublicViewRate = 0.5
	cfg.PublicViewBurst = 2
	limiter := NewPublicViewLimiterWithClient(client, config.NewStaticInvoicingConfigHolder(cfg))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2*time.Second, res.RetryAfter)

	res, err = limiter.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDisabledLimiterAllows(t *testing.T) {
	var limiter *PublicViewLimiter
	assert.False(t, limiter.Enabled())
	res, err := limiter.Allow(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
