// Package rate limita requests por clave (normalmente IP + ruta).
package rate

import (
	"context"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter decide si key puede hacer otro request en la ventana actual.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter cuenta hits en una ventana fija compartida entre réplicas.
// SETNX + INCR + PTTL van en la misma transacción, así la clave nunca queda
// sin expiry.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window, now: time.Now}
}

// windowKey: prefix + clave sin espacios + inicio de ventana en unix.
func (l *RedisLimiter) windowKey(key string, at time.Time) string {
	start := at.UTC().Truncate(l.Window).Unix()
	return l.Prefix + strings.Join(strings.Fields(key), "_") + ":" + strconv.FormatInt(start, 10)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.windowKey(key, l.now())

	var (
		incr *rdb.IntCmd
		pttl *rdb.DurationCmd
	)
	_, err := l.Client.TxPipelined(ctx, func(p rdb.Pipeliner) error {
		p.SetNX(ctx, k, 0, l.Window)
		incr = p.Incr(ctx, k)
		pttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return l.result(incr.Val(), pttl.Val()), nil
}

func (l *RedisLimiter) result(hits int64, ttl time.Duration) Result {
	if ttl < 0 {
		ttl = l.Window
	}
	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   max(l.Max-hits, 0),
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl.Round(time.Second)
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res
}
