package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/habitquest/backend/pkg/config"
	"github.com/habitquest/backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Endpoint names with their own quota.
const (
	EndpointAPI               = "api"
	EndpointCreateHabit       = "createHabit"
	EndpointUpdateHabit       = "updateHabit"
	EndpointCompleteHabit     = "completeHabit"
	EndpointSendFriendRequest = "sendFriendRequest"
	EndpointPostComment       = "postComment"
	EndpointGetLeaderboard    = "getLeaderboard"
)

var decisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Rate limit decisions by endpoint and outcome",
	},
	[]string{"endpoint", "outcome"},
)

// Limit is a request quota per fixed window.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// DefaultLimits is the built-in quota table.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		EndpointAPI:               {Requests: 100, Window: time.Minute},
		EndpointCreateHabit:       {Requests: 10, Window: time.Minute},
		EndpointUpdateHabit:       {Requests: 20, Window: time.Minute},
		EndpointCompleteHabit:     {Requests: 30, Window: time.Minute},
		EndpointSendFriendRequest: {Requests: 10, Window: time.Hour},
		EndpointPostComment:       {Requests: 20, Window: time.Minute},
		EndpointGetLeaderboard:    {Requests: 30, Window: time.Minute},
	}
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetTime time.Time
	Limit     int64
}

// Counter is the atomic primitive the limiter runs on. ok is false when the
// backing store is unavailable.
type Counter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, ok bool)
	Delete(ctx context.Context, keys ...string) bool
}

// Limiter enforces fixed-window quotas per (user, endpoint).
type Limiter struct {
	store  Counter
	limits map[string]Limit
	log    *logger.Logger
	now    func() time.Time
}

// New creates a limiter over store. overrides replace entries of the default
// table; endpoint names are matched case-insensitively.
func New(store Counter, overrides map[string]config.RateLimitConfig, log *logger.Logger) *Limiter {
	if log == nil {
		log = logger.NewNop()
	}
	limits := make(map[string]Limit)
	for name, l := range DefaultLimits() {
		limits[strings.ToLower(name)] = l
	}
	for name, o := range overrides {
		if o.Requests <= 0 || o.Window <= 0 {
			log.Warn("Ignoring invalid rate limit override", zap.String("endpoint", name))
			continue
		}
		limits[strings.ToLower(name)] = Limit{Requests: o.Requests, Window: o.Window}
	}
	return &Limiter{
		store:  store,
		limits: limits,
		log:    log.Named("ratelimit"),
		now:    time.Now,
	}
}

// LimitFor returns the quota for endpoint, falling back to the api default.
func (l *Limiter) LimitFor(endpoint string) Limit {
	if limit, ok := l.limits[strings.ToLower(endpoint)]; ok {
		return limit
	}
	return l.limits[EndpointAPI]
}

func key(userID, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", userID, strings.ToLower(endpoint))
}

// Check counts one request against the user's quota for endpoint. The first
// request opens the window; the counter expires with it. When the store is
// unavailable the request is allowed.
func (l *Limiter) Check(ctx context.Context, userID, endpoint string) Result {
	limit := l.LimitFor(endpoint)
	now := l.now()

	count, ttl, ok := l.store.IncrementWindow(ctx, key(userID, endpoint), limit.Window)
	if !ok {
		decisions.WithLabelValues(endpoint, "fail_open").Inc()
		l.log.Debug("Rate limit store unavailable, allowing request",
			zap.String("user_id", userID), zap.String("endpoint", endpoint))
		return Result{
			Allowed:   true,
			Remaining: limit.Requests - 1,
			ResetTime: now.Add(limit.Window),
			Limit:     limit.Requests,
		}
	}

	remaining := limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   count <= limit.Requests,
		Remaining: remaining,
		ResetTime: now.Add(ttl),
		Limit:     limit.Requests,
	}
	if res.Allowed {
		decisions.WithLabelValues(endpoint, "allowed").Inc()
	} else {
		decisions.WithLabelValues(endpoint, "limited").Inc()
		l.log.Info("Rate limit exceeded",
			zap.String("user_id", userID),
			zap.String("endpoint", endpoint),
			zap.Int64("count", count))
	}
	return res
}

// Reset clears the user's counter for endpoint.
func (l *Limiter) Reset(ctx context.Context, userID, endpoint string) {
	l.store.Delete(ctx, key(userID, endpoint))
}

// Headers renders the standard X-RateLimit-* response headers.
func Headers(r Result) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.FormatInt(r.Limit, 10),
		"X-RateLimit-Remaining": strconv.FormatInt(r.Remaining, 10),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetTime.Unix(), 10),
	}
}

// RetryAfter returns whole seconds until the window resets, never negative.
func RetryAfter(r Result, now time.Time) int {
	secs := math.Ceil(r.ResetTime.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

func IsRateLimited(r Result) bool {
	return !r.Allowed
}
