package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	mu        sync.Mutex
	tokens    map[string]int
	lastReset time.Time
	rate      int           // requests per window
	window    time.Duration // time window
	exempt    []string      // path prefixes never counted
}

// NewRateLimiter creates a limiter allowing rate requests per window and
// client. Paths in exempt are never limited.
func NewRateLimiter(rate int, window time.Duration, exempt ...string) *RateLimiter {
	return &RateLimiter{
		tokens:    make(map[string]int),
		lastReset: time.Now(),
		rate:      rate,
		window:    window,
		exempt:    exempt,
	}
}

func (l *RateLimiter) exempted(path string) bool {
	for _, prefix := range l.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// allow reports whether key may proceed and, if not, how long until the
// window resets.
func (l *RateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastReset) > l.window {
		l.tokens = make(map[string]int)
		l.lastReset = now
	}

	count := l.tokens[key]
	if count >= l.rate {
		return false, l.window - now.Sub(l.lastReset)
	}
	l.tokens[key] = count + 1
	return true, 0
}

// RateLimit limits requests per client IP. Health checks and long-lived
// streams (signature events, job progress) pass the exempt prefixes.
func RateLimit(rate int, window time.Duration, exempt ...string) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window, exempt...)

	return func(c *gin.Context) {
		if limiter.exempted(c.Request.URL.Path) {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		ok, retry := limiter.allow(clientIP, time.Now())
		if !ok {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"client_ip", clientIP,
				"path", c.Request.URL.Path,
			)

			seconds := int(retry.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes. Intente nuevamente en unos segundos.",
			})
			return
		}

		c.Next()
	}
}
