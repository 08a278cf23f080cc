package rate

import (
	"context"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MemoryLimiter mantiene un token bucket por clave (x/time/rate) dentro de
// go-cache; los buckets sin uso expiran a las dos ventanas.
type MemoryLimiter struct {
	Max    int
	Window time.Duration

	mu      sync.Mutex
	buckets *gocache.Cache
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		Max:     max,
		Window:  window,
		buckets: gocache.New(2*window, window),
	}
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		b := v.(*rate.Limiter)
		l.buckets.SetDefault(key, b)
		return b
	}
	every := rate.Every(l.Window / time.Duration(l.Max))
	b := rate.NewLimiter(every, l.Max)
	l.buckets.SetDefault(key, b)
	return b
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	b := l.bucket(key)
	now := time.Now()
	r := b.ReserveN(now, 1)
	if !r.OK() {
		return Result{Allowed: false, RetryAfter: l.Window, WindowTTL: l.Window}, nil
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return Result{
			Allowed:     false,
			RetryAfter:  time.Duration(math.Ceil(delay.Seconds())) * time.Second,
			WindowTTL:   l.Window,
			CurrentHits: int64(l.Max) + 1,
		}, nil
	}
	remaining := int64(math.Floor(b.TokensAt(now)))
	return Result{
		Allowed:     true,
		Remaining:   max(remaining, 0),
		WindowTTL:   l.Window,
		CurrentHits: int64(l.Max) - max(remaining, 0),
	}, nil
}
