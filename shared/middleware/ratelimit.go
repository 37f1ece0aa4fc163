package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware admits at most perMinute requests per minute across all
// callers, with a burst of one. A request answered with a 5xx does not count,
// so a failed reseed can be retried at once. A non-positive perMinute disables
// the limit.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	every := rate.Every(time.Minute / time.Duration(perMinute))

	var mu sync.Mutex
	limiter := rate.NewLimiter(every, 1)

	return func(c *gin.Context) {
		mu.Lock()
		current := limiter
		mu.Unlock()

		r := current.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests, try again later")
			c.Abort()
			return
		}

		c.Next()

		// Reservation.Cancel is a no-op once its time has passed, so a
		// failed request hands its token back by restarting the bucket.
		if c.Writer.Status() >= http.StatusInternalServerError {
			mu.Lock()
			if limiter == current {
				limiter = rate.NewLimiter(every, 1)
			}
			mu.Unlock()
		}
	}
}
