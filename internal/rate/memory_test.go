package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_RejectsAfterBudget(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i)
	}
	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfter, time.Duration(0))

	// otra clave tiene su propio bucket
	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestMemoryLimiter_Refills(t *testing.T) {
	l := NewMemoryLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := l.Allow(ctx, "k")
		require.True(t, res.Allowed)
	}
	res, _ := l.Allow(ctx, "k")
	require.False(t, res.Allowed)

	require.Eventually(t, func() bool {
		res, _ := l.Allow(ctx, "k")
		return res.Allowed
	}, time.Second, 20*time.Millisecond)
}

func TestRedisLimiter_WindowKeyAndResult(t *testing.T) {
	l := NewRedisLimiter(nil, "sp:rl:", 2, time.Minute)
	at := time.Date(2024, 5, 1, 10, 30, 45, 0, time.UTC)
	require.Equal(t, "sp:rl:1.2.3.4_/api/nonce:1714559400", l.windowKey(" 1.2.3.4  /api/nonce ", at))
	require.Equal(t, l.windowKey("k", at), l.windowKey("k", at.Add(14*time.Second)))
	require.NotEqual(t, l.windowKey("k", at), l.windowKey("k", at.Add(15*time.Second)))

	ok := l.result(2, 40*time.Second)
	require.True(t, ok.Allowed)
	require.Equal(t, int64(0), ok.Remaining)
	require.Zero(t, ok.RetryAfter)

	over := l.result(3, 1500*time.Millisecond)
	require.False(t, over.Allowed)
	require.Equal(t, 2*time.Second, over.RetryAfter)

	noTTL := l.result(5, -1)
	require.Equal(t, time.Minute, noTTL.WindowTTL)
	require.Equal(t, time.Minute, noTTL.RetryAfter)
}
