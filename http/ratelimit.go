package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window and client ip, plus Burst extra.
// The client ip is the direct peer unless that peer is one of TrustedProxies,
// which may be addresses or CIDR ranges.
type RateLimitConfig struct {
	Requests       int           `mapstructure:"requests"`
	Window         time.Duration `mapstructure:"window"`
	Burst          int           `mapstructure:"burst"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter tracks request rates per key with expiration.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// NewIPRateLimiter returns a per-key limiter. Zero values fall back to
// 10 requests per minute with a burst of 5.
func NewIPRateLimiter(cfg RateLimitConfig) RateLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:    cfg.Burst,
		ttl:      5 * cfg.Window,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.gcLocked(now)
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// The rateLimit middleware answers 429 once the caller's ip runs out of tokens for scope.
func (s *Server) rateLimit(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s:%s", scope, s.proxies.ClientIP(r))
		if s.authLimiter != nil && !s.authLimiter.Allow(key) {
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			encode(w, r, payload{"result": false, "error": "Too many attempts. Please try again later."})
			return
		}
		next(w, r)
	}
}
