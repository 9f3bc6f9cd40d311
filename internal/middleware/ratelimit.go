package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/pkg/errcode"
	"github.com/ragkb/ragkb/internal/pkg/response"
)

type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	starts    map[string]time.Time
	counts    map[string]int
	nowFunc   func() time.Time
	lastSweep time.Time
}

// RateLimit allows at most limit requests per caller per window, keyed by
// client ip, user id and route.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := &rateLimiter{
		limit:   limit,
		window:  window,
		starts:  make(map[string]time.Time),
		counts:  make(map[string]int),
		nowFunc: time.Now,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 || l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	uid := strconv.FormatInt(UserID(c), 10)
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, uid, path}, "|")

	if !l.allow(key) {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("user_id", uid),
			zap.String("path", path),
		)
		response.Error(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	c.Next()
}

func (l *rateLimiter) allow(key string) bool {
	now := l.nowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	start, exists := l.starts[key]
	if !exists || now.Sub(start) >= l.window {
		l.starts[key] = now
		l.counts[key] = 1
		return true
	}
	if l.counts[key] >= l.limit {
		return false
	}
	l.counts[key]++
	return true
}

// sweep drops entries whose window has elapsed so the key maps stay bounded
// by the number of callers active within one window. Runs at most once per
// window. Caller holds the mutex.
func (l *rateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, start := range l.starts {
		if now.Sub(start) >= l.window {
			delete(l.starts, key)
			delete(l.counts, key)
		}
	}
}
