package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedStats struct {
	Rate  int    `json:"rate"`
	Label string `json:"label"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthInterval = 0
	c := New(cfg, nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClientSetGet(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "stats:u1", cachedStats{Rate: 80, Label: "Good"}, TTLShort))
	assert.True(t, mr.Exists("habits:stats:u1"))

	var got cachedStats
	require.True(t, c.Get(ctx, "stats:u1", &got))
	assert.Equal(t, cachedStats{Rate: 80, Label: "Good"}, got)

	mr.FastForward(TTLShort + time.Second)
	assert.False(t, c.Get(ctx, "stats:u1", &got))
}

func TestClientGetMiss(t *testing.T) {
	c, _ := newTestClient(t)

	var got cachedStats
	assert.False(t, c.Get(context.Background(), "missing", &got))
	assert.True(t, c.Enabled())
}

func TestClientDeleteByPattern(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	c.Set(ctx, "stats:u1:a", 1, 0)
	c.Set(ctx, "stats:u1:b", 2, 0)
	c.Set(ctx, "stats:u2:a", 3, 0)

	assert.Equal(t, 2, c.DeleteByPattern(ctx, "stats:u1:*"))
	assert.False(t, mr.Exists("habits:stats:u1:a"))
	assert.True(t, mr.Exists("habits:stats:u2:a"))

	assert.True(t, c.Delete(ctx, "stats:u2:a"))
	assert.False(t, mr.Exists("habits:stats:u2:a"))
}

func TestClientIncrementWindow(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	n, ttl, ok := c.IncrementWindow(ctx, "rl", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(20 * time.Second)
	n, ttl, ok = c.IncrementWindow(ctx, "rl", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 40*time.Second, ttl)

	mr.FastForward(41 * time.Second)
	n, _, ok = c.IncrementWindow(ctx, "rl", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestClientIncrement(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	assert.Equal(t, int64(1), c.Increment(ctx, "counter"))
	assert.Equal(t, int64(2), c.Increment(ctx, "counter"))
}

func TestGetOrSet(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (cachedStats, error) {
		calls++
		return cachedStats{Rate: 100, Label: "Perfect"}, nil
	}

	first, err := GetOrSet(ctx, c, "detail", TTLMedium, fetch)
	require.NoError(t, err)
	second, err := GetOrSet(ctx, c, "detail", TTLMedium, fetch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = GetOrSet(ctx, c, "other", TTLMedium, func(context.Context) (cachedStats, error) {
		return cachedStats{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestClientUnavailableFailsOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.ConnTimeout = 200 * time.Millisecond
	cfg.MaxRetries = -1
	cfg.HealthInterval = 0
	c := New(cfg, nil)
	defer c.Close()

	ctx := context.Background()
	assert.Error(t, c.Connect(ctx))
	assert.False(t, c.Enabled())

	var got cachedStats
	assert.False(t, c.Get(ctx, "k", &got))
	assert.False(t, c.Set(ctx, "k", got, 0))
	assert.False(t, c.Delete(ctx, "k"))
	assert.Equal(t, 0, c.DeleteByPattern(ctx, "*"))
	assert.Equal(t, int64(0), c.Increment(ctx, "k"))
	_, _, ok := c.IncrementWindow(ctx, "k", time.Second)
	assert.False(t, ok)

	v, err := GetOrSet(ctx, c, "k", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClientRecoversAfterOutage(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.MaxRetries = -1
	cfg.HealthInterval = 20 * time.Millisecond
	cfg.OperationTimeout = 200 * time.Millisecond
	c := New(cfg, nil)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	mr.Close()
	assert.False(t, c.Set(ctx, "k", 1, 0))
	assert.False(t, c.Enabled())

	require.NoError(t, mr.Restart())
	assert.Eventually(t, c.Enabled, 2*time.Second, 20*time.Millisecond)
	assert.True(t, c.Set(ctx, "k", 1, 0))
}

func TestClientStaysEnabledOnReplyErrors(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("habits:counter", "not a number"))
	assert.Equal(t, int64(0), c.Increment(ctx, "counter"))
	assert.True(t, c.Enabled())

	mr.HSet("habits:hash", "f", "v")
	var got cachedStats
	assert.False(t, c.Get(ctx, "hash", &got))
	assert.True(t, c.Enabled())

	assert.False(t, c.Set(ctx, "", 1, 0))
	assert.True(t, c.Enabled())
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
	assert.True(t, isConnectionError(context.DeadlineExceeded))
	assert.False(t, isConnectionError(context.Canceled))
	assert.False(t, isConnectionError(ErrInvalidConfig))
}

func TestListenReceivesWhileDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthInterval = 0
	c := New(cfg, nil)
	defer c.Close()
	require.False(t, c.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Listen(ctx, "habits:events", 20*time.Millisecond, func(b []byte) { received <- string(b) })
	}()

	assert.Eventually(t, func() bool {
		mr.Publish("habits:events", `{"action":"habit_completed"}`)
		select {
		case msg := <-received:
			return msg == `{"action":"habit_completed"}`
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestListenWithoutRedis(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Listen(context.Background(), "x", time.Millisecond, func([]byte) {}), ErrCacheDisabled)
}

func TestNilClientIsDisabled(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Close())
	assert.Equal(t, false, c.Stats()["enabled"])
}

func TestKey(t *testing.T) {
	assert.Equal(t, "stats:u1:4", Key("stats", "u1", 4))
}
