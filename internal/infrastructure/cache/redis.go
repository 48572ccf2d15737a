package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/habitquest/backend/pkg/config"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrCacheDisabled = errors.New("cache: disabled")
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// Standard TTLs used by callers.
const (
	TTLShort    = 60 * time.Second
	TTLMedium   = 5 * time.Minute
	TTLLong     = time.Hour
	TTLVeryLong = 24 * time.Hour
)

// Config holds the configuration for Redis client
type Config struct {
	Enabled          bool
	Addr             string
	Password         string
	DB               int
	PoolSize         int
	MinIdleConns     int
	MaxRetries       int
	ConnTimeout      time.Duration
	OperationTimeout time.Duration
	HealthInterval   time.Duration
	DefaultTTL       time.Duration
	MaxKeyLength     int
	KeyPrefix        string
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		Addr:             "localhost:6379",
		PoolSize:         100,
		MinIdleConns:     10,
		MaxRetries:       3,
		ConnTimeout:      5 * time.Second,
		OperationTimeout: 2 * time.Second,
		HealthInterval:   10 * time.Second,
		DefaultTTL:       TTLLong,
		MaxKeyLength:     256,
		KeyPrefix:        "habits:",
	}
}

// NewConfigFromEnv creates a Redis config from project configuration
func NewConfigFromEnv(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Enabled = cfg.Redis.Enabled
	c.Addr = cfg.Redis.Addr()
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	if cfg.Redis.KeyPrefix != "" {
		c.KeyPrefix = cfg.Redis.KeyPrefix
	}
	if cfg.Server.Timeout > 0 {
		c.OperationTimeout = cfg.Server.Timeout
	}
	return c
}

// incrWindowScript increments a counter and arms its expiry on first use.
// Returns {count, pttl_ms}.
var incrWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Client is an optional acceleration layer in front of Redis. Every operation
// degrades to a miss or no-op when Redis is unreachable; errors are logged,
// never returned to callers.
type Client struct {
	client    *redis.Client
	config    *Config
	log       *logger.Logger
	enabled   atomic.Bool
	hits      atomic.Int64
	misses    atomic.Int64
	loopOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// New builds a client. It does not touch the network; call Connect.
func New(cfg *Config, log *logger.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.MaxKeyLength == 0 {
		cfg.MaxKeyLength = 256
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 2 * time.Second
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = TTLLong
	}

	c := &Client{
		config: cfg,
		log:    log.Named("cache"),
		done:   make(chan struct{}),
	}
	if cfg.Enabled && cfg.Addr != "" {
		c.client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.ConnTimeout,
		})
	}
	return c
}

// Connect pings Redis and enables the client on success. The background
// health loop is started either way so a cache that comes up later is picked up.
func (c *Client) Connect(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("%w: redis disabled or address missing", ErrInvalidConfig)
	}

	timeout := c.config.ConnTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.client.Ping(pingCtx).Err()
	if err != nil {
		c.enabled.Store(false)
		c.log.Warn("Redis unavailable, cache disabled", zap.String("addr", c.config.Addr), zap.Error(err))
	} else {
		c.enabled.Store(true)
		c.log.Info("Redis connected", zap.String("addr", c.config.Addr))
	}

	c.loopOnce.Do(func() {
		if c.config.HealthInterval > 0 {
			go c.healthCheckLoop()
		}
	})

	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// healthCheckLoop periodically checks Redis health
func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.OperationTimeout)
			err := c.client.Ping(ctx).Err()
			cancel()
			was := c.enabled.Load()
			c.enabled.Store(err == nil)
			if err != nil && was {
				c.log.Error("Redis health check failed, cache disabled", zap.Error(err))
			} else if err == nil && !was {
				c.log.Info("Redis reachable again, cache enabled")
			}
		}
	}
}

// Close stops the health loop and closes the Redis connection pool.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.enabled.Store(false)
		if c.client != nil {
			err = c.client.Close()
		}
	})
	return err
}

// Enabled reports whether cache operations currently reach Redis.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil && c.enabled.Load()
}

// HealthCheck pings Redis directly, bypassing the enabled flag.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}

func (c *Client) withContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.config.OperationTimeout)
	}
	return ctx, func() {}
}

func (c *Client) validateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidConfig)
	}
	if len(key) > c.config.MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidConfig, c.config.MaxKeyLength)
	}
	return nil
}

func (c *Client) prefixKey(key string) string {
	return c.config.KeyPrefix + key
}

// fail logs a failed operation and disables the client on connection-level errors.
func (c *Client) fail(op, key string, err error) {
	c.log.Error("Cache operation failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
	cacheOps.WithLabelValues(op, "error").Inc()
	if !isConnectionError(err) {
		return
	}
	c.enabled.Store(false)
}

// isConnectionError reports whether err means Redis could not be reached.
// Server replies such as WRONGTYPE or OOM leave the client enabled.
func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInvalidConfig) {
		return false
	}
	var reply redis.Error
	return !errors.As(err, &reply)
}

// Get decodes the JSON value stored at key into dest and reports a hit.
func (c *Client) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.validateKey(key); err != nil {
		c.fail("get", key, err)
		return false
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			cacheOps.WithLabelValues("get", "miss").Inc()
			return false
		}
		c.fail("get", key, err)
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		c.log.Error("Failed to decode cached value", zap.String("key", key), zap.Error(err))
		c.misses.Add(1)
		cacheOps.WithLabelValues("get", "miss").Inc()
		return false
	}
	c.hits.Add(1)
	cacheOps.WithLabelValues("get", "hit").Inc()
	return true
}

// Set stores value as JSON. ttl <= 0 uses the configured default.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.validateKey(key); err != nil {
		c.fail("set", key, err)
		return false
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error("Failed to encode value for cache", zap.String("key", key), zap.Error(err))
		return false
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.prefixKey(key), data, ttl).Err(); err != nil {
		c.fail("set", key, err)
		return false
	}
	cacheOps.WithLabelValues("set", "ok").Inc()
	return true
}

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) bool {
	if !c.Enabled() || len(keys) == 0 {
		return false
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		if err := c.validateKey(key); err != nil {
			c.fail("delete", key, err)
			return false
		}
		prefixed[i] = c.prefixKey(key)
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		c.fail("delete", strings.Join(keys, ","), err)
		return false
	}
	cacheOps.WithLabelValues("delete", "ok").Inc()
	return true
}

// DeleteByPattern removes every key matching the glob pattern and returns how many were removed.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) int {
	if !c.Enabled() {
		return 0
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.prefixKey(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.fail("delete_pattern", pattern, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.fail("delete_pattern", pattern, err)
		return 0
	}
	cacheOps.WithLabelValues("delete_pattern", "ok").Inc()
	return len(keys)
}

// Increment atomically increments key and returns the new value, or 0 when the cache is unavailable.
func (c *Client) Increment(ctx context.Context, key string) int64 {
	if !c.Enabled() {
		return 0
	}
	if err := c.validateKey(key); err != nil {
		c.fail("incr", key, err)
		return 0
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	n, err := c.client.Incr(ctx, c.prefixKey(key)).Result()
	if err != nil {
		c.fail("incr", key, err)
		return 0
	}
	return n
}

// IncrementWindow atomically increments a counter whose expiry is set to window
// when the counter is created. It returns the new count and the time left in
// the window. ok is false when the cache is unavailable.
func (c *Client) IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, ok bool) {
	if !c.Enabled() {
		return 0, 0, false
	}
	if err := c.validateKey(key); err != nil {
		c.fail("incr_window", key, err)
		return 0, 0, false
	}

	ctx, cancel := c.withContext(ctx)
	defer cancel()

	res, err := incrWindowScript.Run(ctx, c.client, []string{c.prefixKey(key)}, window.Milliseconds()).Result()
	if err != nil {
		c.fail("incr_window", key, err)
		return 0, 0, false
	}

	vals, isSlice := res.([]interface{})
	if !isSlice || len(vals) != 2 {
		c.log.Error("Unexpected script reply", zap.String("key", key), zap.Any("reply", res))
		return 0, 0, false
	}
	n, _ := vals[0].(int64)
	ms, _ := vals[1].(int64)
	return n, time.Duration(ms) * time.Millisecond, true
}

// Publish sends a JSON-encoded payload on channel.
func (c *Client) Publish(ctx context.Context, channel string, payload any) bool {
	if !c.Enabled() {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("Failed to encode event", zap.String("channel", channel), zap.Error(err))
		return false
	}
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		c.fail("publish", channel, err)
		return false
	}
	return true
}

// Subscribe blocks, invoking handler for every message on channel until ctx is done.
func (c *Client) Subscribe(ctx context.Context, channel string, handler func([]byte)) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	pubsub := c.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler([]byte(msg.Payload))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Listen keeps a subscription to channel alive until ctx is done,
// resubscribing after retry whenever it drops. It works while the client is
// marked disabled, so a Redis that comes up after boot is still picked up.
func (c *Client) Listen(ctx context.Context, channel string, retry time.Duration, handler func([]byte)) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	if retry <= 0 {
		retry = c.config.HealthInterval
	}
	if retry <= 0 {
		retry = 10 * time.Second
	}
	for {
		err := c.Subscribe(ctx, channel, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Subscription dropped, retrying",
			zap.String("channel", channel),
			zap.Duration("retry", retry),
			zap.Error(err))

		select {
		case <-time.After(retry):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// GetOrSet returns the cached value at key, or calls fetch and caches its result.
// Fetch errors are returned; cache errors are not.
func GetOrSet[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	result, err := fetch(ctx)
	if err != nil {
		return result, err
	}
	c.Set(ctx, key, result, ttl)
	return result, nil
}

// Stats reports hit/miss counters and pool stats for the health endpoint.
func (c *Client) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"enabled": c.Enabled(),
	}
	if c == nil {
		return stats
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	stats["hits"] = hits
	stats["misses"] = misses
	if total := hits + misses; total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}
	if c.client != nil {
		pool := c.client.PoolStats()
		stats["pool_stats"] = map[string]interface{}{
			"total_conns": pool.TotalConns,
			"idle_conns":  pool.IdleConns,
			"stale_conns": pool.StaleConns,
		}
	}
	return stats
}

// Key joins key parts with ':'.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}
