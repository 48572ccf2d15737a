package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := cache.DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthInterval = 0
	c := cache.New(cfg, nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCheckQuota(t *testing.T) {
	c, _ := newCache(t)
	l := New(c, map[string]config.RateLimitConfig{
		"completehabit": {Requests: 3, Window: time.Minute},
	}, nil)

	ctx := context.Background()
	var allowed []bool
	for i := 0; i < 4; i++ {
		allowed = append(allowed, l.Check(ctx, "user-1", EndpointCompleteHabit).Allowed)
	}
	assert.Equal(t, []bool{true, true, true, false}, allowed)

	// other users and endpoints have their own windows
	assert.True(t, l.Check(ctx, "user-2", EndpointCompleteHabit).Allowed)
	assert.True(t, l.Check(ctx, "user-1", EndpointAPI).Allowed)
}

func TestCheckRemainingAndReset(t *testing.T) {
	c, _ := newCache(t)
	l := New(c, nil, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	res := l.Check(ctx, "u", EndpointCreateHabit)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(9), res.Remaining)
	assert.Equal(t, int64(10), res.Limit)
	assert.Equal(t, now.Add(time.Minute), res.ResetTime)

	for i := 0; i < 10; i++ {
		res = l.Check(ctx, "u", EndpointCreateHabit)
	}
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.True(t, IsRateLimited(res))
}

func TestWindowExpiry(t *testing.T) {
	c, mr := newCache(t)
	l := New(c, map[string]config.RateLimitConfig{
		"api": {Requests: 1, Window: 10 * time.Second},
	}, nil)
	ctx := context.Background()

	assert.True(t, l.Check(ctx, "u", "api").Allowed)
	assert.False(t, l.Check(ctx, "u", "api").Allowed)

	mr.FastForward(11 * time.Second)
	assert.True(t, l.Check(ctx, "u", "api").Allowed)
}

func TestLimiterReset(t *testing.T) {
	c, _ := newCache(t)
	l := New(c, map[string]config.RateLimitConfig{
		"postcomment": {Requests: 1, Window: time.Minute},
	}, nil)
	ctx := context.Background()

	assert.True(t, l.Check(ctx, "u", EndpointPostComment).Allowed)
	assert.False(t, l.Check(ctx, "u", EndpointPostComment).Allowed)

	l.Reset(ctx, "u", EndpointPostComment)
	assert.True(t, l.Check(ctx, "u", EndpointPostComment).Allowed)
}

func TestConcurrentChecksNeverExceedQuota(t *testing.T) {
	c, _ := newCache(t)
	l := New(c, map[string]config.RateLimitConfig{
		"api": {Requests: 5, Window: time.Minute},
	}, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "u", "api").Allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, granted)
}

func TestFailOpenWhenCacheUnavailable(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.ConnTimeout = 200 * time.Millisecond
	cfg.HealthInterval = 0
	c := cache.New(cfg, nil)
	defer c.Close()
	_ = c.Connect(context.Background())

	l := New(c, map[string]config.RateLimitConfig{
		"api": {Requests: 1, Window: time.Minute},
	}, nil)
	for i := 0; i < 3; i++ {
		res := l.Check(context.Background(), "u", "api")
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(0), res.Remaining)
	}
}

func TestLimitForFallsBackToAPI(t *testing.T) {
	l := New(nil, nil, nil)
	assert.Equal(t, Limit{Requests: 100, Window: time.Minute}, l.LimitFor("unknownEndpoint"))
	assert.Equal(t, Limit{Requests: 10, Window: time.Hour}, l.LimitFor("SENDFRIENDREQUEST"))
}

func TestHeadersAndRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	res := Result{Allowed: false, Remaining: 0, Limit: 30, ResetTime: now.Add(1500 * time.Millisecond)}

	assert.Equal(t, map[string]string{
		"X-RateLimit-Limit":     "30",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     "1700000001",
	}, Headers(res))
	assert.Equal(t, 2, RetryAfter(res, now))
	assert.Equal(t, 0, RetryAfter(res, now.Add(time.Hour)))
}
