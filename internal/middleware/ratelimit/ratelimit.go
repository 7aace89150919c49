// Package ratelimit caps requests per client over fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window    = time.Minute
	idleAfter = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// Limiter keeps one window per client key. A window opens on the first
// request after the previous one closed, so steady traffic cannot stretch it.
type Limiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*clientWindow

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	opened time.Time
	seen   time.Time
	count  int
}

// NewLimiter starts the limiter's sweeper goroutine. Stop ends it. Zero
// fields of cfg take their DefaultConfig values.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		limit:    cfg.RequestsPerMinute,
		interval: cfg.CleanupInterval,
		now:      time.Now,
		windows:  map[string]*clientWindow{},
		stop:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow counts a request from key and reports whether it is within budget.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take also returns how long a rejected client must wait for its next window.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || now.Sub(w.opened) >= window {
		l.windows[key] = &clientWindow{opened: now, seen: now, count: 1}
		return true, 0
	}
	w.count++
	w.seen = now
	if w.count <= l.limit {
		return true, 0
	}
	l.rejected.Add(1)
	return false, w.opened.Add(window).Sub(now)
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.forgetIdle()
		}
	}
}

func (l *Limiter) forgetIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idleAfter)
	for key, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics reports rejections so far and the clients currently tracked.
func (l *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: l.rejected.Load(), ClientCount: int64(l.ActiveClients())}
}

// Middleware answers over-budget requests with Retry-After set to the seconds
// left in the client's window. onLimit writes the body; nil means a plain 429.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.take(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
