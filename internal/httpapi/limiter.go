package httpapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &rateLimiter{rps: rps, burst: burst}
}

func (limiter *rateLimiter) getLimiter(key string) *rate.Limiter {
	if value, ok := limiter.limiters.Load(key); ok {
		if bucket, ok := value.(*rate.Limiter); ok {
			return bucket
		}
	}
	bucket := rate.NewLimiter(rate.Limit(limiter.rps), limiter.burst)
	actual, loaded := limiter.limiters.LoadOrStore(key, bucket)
	if loaded {
		if actualBucket, ok := actual.(*rate.Limiter); ok {
			return actualBucket
		}
	}
	return bucket
}

func (limiter *rateLimiter) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.getLimiter(ctx.ClientIP()).Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse("rate_limited", "too many requests"))
			return
		}
		ctx.Next()
	}
}
