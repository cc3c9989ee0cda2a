package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 按客户端 IP 的令牌桶
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewIPRateLimiter every 为补充一个令牌的间隔
func NewIPRateLimiter(every time.Duration, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(every),
		burst:    burst,
		now:      time.Now,
	}
}

// PerMinute n 次/分钟
func PerMinute(n, burst int) *IPRateLimiter {
	if n <= 0 {
		n = 1
	}
	return NewIPRateLimiter(time.Minute/time.Duration(n), burst)
}

// PerHour n 次/小时
func PerHour(n int) *IPRateLimiter {
	if n <= 0 {
		n = 1
	}
	return NewIPRateLimiter(time.Hour/time.Duration(n), n)
}

// Allow 消耗一个令牌
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Cleanup 清理 idle 以上未出现的 IP
func (l *IPRateLimiter) Cleanup(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// Len 当前跟踪的 IP 数
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// StartJanitor 定期清理；返回停止函数
func (l *IPRateLimiter) StartJanitor(interval, idle time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.Cleanup(idle)
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// RateLimit 超限时调用 onLimit（须自行 Abort）
func RateLimit(l *IPRateLimiter, onLimit gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		onLimit(c)
		c.Abort()
	}
}
