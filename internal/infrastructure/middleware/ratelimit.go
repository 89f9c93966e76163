package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/apperror"
	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/httputil"
)

// slidingWindow trims the window, admits the request when under the limit and
// reports the wait until the oldest admitted upload leaves the window.
// Rejected requests are not recorded.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, count, tonumber(oldest[2]) + window - now}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// RateLimiter bounds uploads per owner and client IP over a sliding window.
type RateLimiter struct {
	client   redis.Scripter
	limit    int
	window   time.Duration
	logger   *zap.Logger
	nowMilli func() int64
}

func NewRateLimiter(client redis.Scripter, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client:   client,
		limit:    cfg.RequestsPerMin,
		window:   time.Minute,
		logger:   logger,
		nowMilli: func() int64 { return time.Now().UnixMilli() },
	}
}

// Limit fails open when redis cannot be reached.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:uploads:%s:%s", c.Param("owner_id"), c.ClientIP())

		decision, err := rl.admit(c.Request.Context(), key)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable",
				zap.Error(err),
				zap.String("request_id", c.GetString(RequestIDKey)),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(rl.limit-decision.count, 0)))

		if !decision.allowed {
			limited := apperror.New("RATE_LIMITED", "too many uploads, please try again later", http.StatusTooManyRequests)
			limited.RetryAfter = time.Duration(decision.retryAfterSeconds()) * time.Second
			httputil.HandleError(c, limited)
			c.Abort()
			return
		}

		c.Next()
	}
}

type admission struct {
	allowed bool
	count   int
	waitMs  int64
}

func (a admission) retryAfterSeconds() int {
	return max(int(math.Ceil(float64(a.waitMs)/1000)), 1)
}

func (rl *RateLimiter) admit(ctx context.Context, key string) (admission, error) {
	res, err := slidingWindow.Run(ctx, rl.client, []string{key},
		rl.nowMilli(), rl.window.Milliseconds(), rl.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return admission{}, fmt.Errorf("evaluating upload window: %w", err)
	}
	if len(res) != 3 {
		return admission{}, fmt.Errorf("evaluating upload window: unexpected reply %v", res)
	}
	return admission{allowed: res[0] == 1, count: int(res[1]), waitMs: res[2]}, nil
}
