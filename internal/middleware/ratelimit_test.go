package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowWithinLimit(t *testing.T) {
	l := &rateLimiter{
		limit:   3,
		window:  time.Minute,
		starts:  make(map[string]time.Time),
		counts:  make(map[string]int),
		nowFunc: time.Now,
	}
	for i := 0; i < 3; i++ {
		require.True(t, l.allow("k"))
	}
	require.False(t, l.allow("k"))
	// other keys are unaffected
	require.True(t, l.allow("other"))
}

func TestRateLimiterWindowReset(t *testing.T) {
	now := time.Now()
	l := &rateLimiter{
		limit:   1,
		window:  time.Minute,
		starts:  make(map[string]time.Time),
		counts:  make(map[string]int),
		nowFunc: func() time.Time { return now },
	}
	require.True(t, l.allow("k"))
	require.False(t, l.allow("k"))
	now = now.Add(61 * time.Second)
	require.True(t, l.allow("k"))
}

func TestRateLimiterSweepsExpiredKeys(t *testing.T) {
	now := time.Now()
	l := &rateLimiter{
		limit:   5,
		window:  time.Minute,
		starts:  make(map[string]time.Time),
		counts:  make(map[string]int),
		nowFunc: func() time.Time { return now },
	}
	for _, key := range []string{"a", "b", "c"} {
		require.True(t, l.allow(key))
	}
	require.Len(t, l.starts, 3)

	now = now.Add(2 * time.Minute)
	require.True(t, l.allow("d"))
	// expired keys were dropped, only the fresh one remains
	require.Len(t, l.starts, 1)
	require.Len(t, l.counts, 1)
	require.Contains(t, l.starts, "d")
}
