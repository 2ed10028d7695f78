package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"portal-service/internal/auth"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRetryAfter    = "Retry-After"
	msgRateLimited      = "rate limit exceeded"
)

// RateLimiter is a token bucket per caller: the authenticated user when
// known, otherwise the client IP.
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(callerKey(c))
			h := c.Response().Header()
			h.Set(headerRateLimit, strconv.Itoa(rl.burst))

			if !limiter.Allow() {
				h.Set(headerRateRemaining, "0")
				h.Set(headerRetryAfter, "1")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": msgRateLimited})
			}

			h.Set(headerRateRemaining, strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

func callerKey(c echo.Context) string {
	if userID, err := auth.GetUserID(c); err == nil {
		return "user:" + userID.String()
	}
	return "ip:" + c.RealIP()
}

// NewStrictRateLimiter is for operator endpoints that touch every pending payment.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(1, 3)
}

func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(100, 200)
}
