package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/errors"
	"codeberg.org/docuchat/server/internal/logger"
)

const storePrefix = "docuchat:ratelimit"

// builds a per-user limiter from a formatted rate such as "30-M". scope
// keeps the counters of different routes apart. with a nil client the
// counters live in process memory.
func New(scope, formatted string, client *redis.Client) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}

	opts := limiter.StoreOptions{Prefix: storePrefix + ":" + scope}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(keyFor),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Warn("rate limit reached", "scope", scope, "key", keyFor(c), "path", c.FullPath())
			errors.TooManyRequests(c, "too many requests, slow down")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			errors.InternalError(c, "rate limiter unavailable", err)
		}),
	), nil
}

// authenticated callers are limited per user, anonymous ones per IP
func keyFor(c *gin.Context) string {
	if userID, ok := auth.GetUserID(c); ok {
		return "user:" + userID
	}

	return "ip:" + c.ClientIP()
}

// remaining requests reported by the limiter, or -1 when absent
func Remaining(h http.Header) int {
	n, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return -1
	}

	return n
}
