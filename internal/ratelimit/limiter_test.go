package ratelimit_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/presetworks/overseer/internal/ratelimit"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T, opts ...ratelimit.Option) (*ratelimit.Limiter, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	limiter := ratelimit.New(client, zap.NewNop(), opts...)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return limiter, mr, cleanup
}

func TestCheckMonotonicRemaining(t *testing.T) {
	t.Parallel()

	limiter, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 5, BurstAllowance: 2}

	var previous int

	for i := 0; i < 7; i++ {
		decision := limiter.Check(ctx, 42, ratelimit.ClassCommand, cfg)

		if i == 0 {
			previous = decision.Remaining
		} else if decision.Allowed {
			assert.Less(t, decision.Remaining, previous, "remaining must strictly decrease")
			previous = decision.Remaining
		}

		limiter.Increment(ctx, 42, ratelimit.ClassCommand)
	}

	// Count is now 7, which equals base+burst: denied from here on.
	decision := limiter.Check(ctx, 42, ratelimit.ClassCommand, cfg)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.Positive(t, decision.RetryAfter)
}

func TestIncrementReflectedByCheck(t *testing.T) {
	t.Parallel()

	limiter, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 10, BurstAllowance: 0}

	before := limiter.Check(ctx, 7, ratelimit.ClassCommand, cfg)
	require.True(t, before.Allowed)
	assert.Equal(t, 9, before.Remaining)

	limiter.Increment(ctx, 7, ratelimit.ClassCommand)

	after := limiter.Check(ctx, 7, ratelimit.ClassCommand, cfg)
	require.True(t, after.Allowed)
	assert.Equal(t, 8, after.Remaining)
}

func TestDeniedAfterExactlyTwelveIncrements(t *testing.T) {
	t.Parallel()

	limiter, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 10, BurstAllowance: 2}

	for range 12 {
		limiter.Increment(ctx, 99, ratelimit.ClassCommand)
	}

	decision := limiter.Check(ctx, 99, ratelimit.ClassCommand, cfg)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	assert.Positive(t, decision.RetryAfter)
}

func TestClassesAndActorsAreIsolated(t *testing.T) {
	t.Parallel()

	limiter, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 2, BurstAllowance: 0}

	limiter.Increment(ctx, 1, ratelimit.ClassCommand)
	limiter.Increment(ctx, 1, ratelimit.ClassCommand)

	// Same actor, other class: untouched.
	decision := limiter.Check(ctx, 1, ratelimit.ClassAutocomplete, cfg)
	assert.True(t, decision.Allowed)

	// Other actor, same class: untouched.
	decision = limiter.Check(ctx, 2, ratelimit.ClassCommand, cfg)
	assert.True(t, decision.Allowed)

	// The counted actor and class: exhausted.
	decision = limiter.Check(ctx, 1, ratelimit.ClassCommand, cfg)
	assert.False(t, decision.Allowed)
}

func TestWindowRollover(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)

	limiter, _, cleanup := setupTest(t, ratelimit.WithClock(func() time.Time { return now }))
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 1, BurstAllowance: 0}

	limiter.Increment(ctx, 5, ratelimit.ClassCommand)

	decision := limiter.Check(ctx, 5, ratelimit.ClassCommand, cfg)
	require.False(t, decision.Allowed)
	assert.LessOrEqual(t, decision.RetryAfter, 30*time.Second)

	// The next window starts with a clean counter.
	now = now.Add(time.Minute)

	decision = limiter.Check(ctx, 5, ratelimit.ClassCommand, cfg)
	assert.True(t, decision.Allowed)
}

func TestIncrementReturnsAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	limiter, mr, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()

	// Kill the store so every cycle fails; the bounded policy must give up
	// well inside its three attempts' worth of delay.
	mr.Close()

	start := time.Now()
	limiter.Increment(ctx, 11, ratelimit.ClassCommand)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFailOpenOnStoreError(t *testing.T) {
	t.Parallel()

	limiter, mr, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	cfg := ratelimit.Config{RequestsPerMinute: 10, BurstAllowance: 2}

	// Kill the store; checks must report allowed with the base allowance.
	mr.Close()

	decision := limiter.Check(ctx, 3, ratelimit.ClassCommand, cfg)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 10, decision.Remaining)
}

func TestCounterCarriesExpiry(t *testing.T) {
	t.Parallel()

	limiter, mr, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()

	limiter.Increment(ctx, 8, ratelimit.ClassCommand)

	keys := mr.Keys()
	require.Len(t, keys, 1)

	ttl := mr.TTL(keys[0])
	assert.Greater(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, 2*time.Minute)
}
