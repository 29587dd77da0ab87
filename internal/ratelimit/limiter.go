package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// Class groups requests that share an allowance.
type Class string

const (
	ClassCommand      Class = "command"
	ClassAutocomplete Class = "autocomplete"
)

const (
	// Window is the fixed counting window.
	Window = time.Minute

	// counterTTL lets abandoned counters self-expire without a sweep.
	counterTTL = 2 * Window

	// maxIncrementAttempts bounds the optimistic-retry loop. The retries
	// reduce, not eliminate, the lost-update race inherent to a non-atomic
	// key-value store; a dropped increment under contention is an accepted
	// trade-off. A single-writer counter service would be needed for true
	// atomicity.
	maxIncrementAttempts = 3

	incrementBackoffBase = 15 * time.Millisecond
)

// Config is the allowance for one class.
type Config struct {
	// RequestsPerMinute is the base allowance.
	RequestsPerMinute int
	// BurstAllowance tops up the base for short spikes.
	BurstAllowance int
}

// DefaultConfigs returns the per-class allowances.
func DefaultConfigs() map[Class]Config {
	return map[Class]Config{
		ClassCommand:      {RequestsPerMinute: 20, BurstAllowance: 5},
		ClassAutocomplete: {RequestsPerMinute: 60, BurstAllowance: 10},
	}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// counter is the stored window state. The version tag exists for diagnostics
// of the optimistic write path, not as a correctness guarantee.
type counter struct {
	Count   int   `json:"count"`
	Version int64 `json:"version"`
}

// Limiter is a best-effort fixed-window request counter backed by an
// eventually-consistent key-value store. It favors availability: any store
// failure resolves to an allow.
type Limiter struct {
	client rueidis.Client
	logger *zap.Logger
	clock  func() time.Time
}

// Option configures a Limiter at construction time.
type Option func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// New creates a limiter on top of the given Redis client.
func New(client rueidis.Client, logger *zap.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		client: client,
		logger: logger.Named("ratelimit"),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Check reports whether the actor is within its allowance for the current
// window. One slot is reserved for the request about to be counted, so
// remaining is limit-count-1 floored at zero. On any read failure the limiter
// fails open with the base allowance.
func (l *Limiter) Check(ctx context.Context, actorID uint64, class Class, cfg Config) Decision {
	now := l.clock()
	window := windowNumber(now)

	state, _, err := l.read(ctx, l.key(class, actorID, window))
	if err != nil {
		l.logger.Warn("Rate limit check failed, failing open",
			zap.Uint64("actorID", actorID),
			zap.String("class", string(class)),
			zap.Error(err))

		return Decision{Allowed: true, Remaining: cfg.RequestsPerMinute}
	}

	limit := cfg.RequestsPerMinute + cfg.BurstAllowance
	if state.Count >= limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: timeUntilNextWindow(now),
		}
	}

	remaining := limit - state.Count - 1
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Allowed: true, Remaining: remaining}
}

// Increment bumps the actor's counter for the current window. The store
// offers no compare-and-swap, so the write is optimistic: read the current
// value and version, write value+1 and version+1, then re-read to verify the
// write was observed at least at the intended value. Verification failures
// retry with an exponential backoff that spreads contending writers; after
// the attempts are exhausted the increment is logged and dropped.
func (l *Limiter) Increment(ctx context.Context, actorID uint64, class Class) {
	now := l.clock()
	key := l.key(class, actorID, windowNumber(now))

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(incrementBackoffBase),
		backoff.WithMaxInterval(4*incrementBackoffBase),
	), maxIncrementAttempts-1), ctx)

	err := backoff.Retry(func() error {
		attempt++

		return l.tryIncrement(ctx, key)
	}, policy)
	if err != nil {
		l.logger.Warn("Rate limit increment dropped",
			zap.Uint64("actorID", actorID),
			zap.String("class", string(class)),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
}

// tryIncrement performs one read-modify-write-verify cycle. Delay between
// cycles is owned entirely by the caller's backoff policy.
func (l *Limiter) tryIncrement(ctx context.Context, key string) error {
	state, _, err := l.read(ctx, key)
	if err != nil {
		return err
	}

	next := counter{Count: state.Count + 1, Version: state.Version + 1}

	payload, err := sonic.Marshal(next)
	if err != nil {
		return backoff.Permanent(err)
	}

	err = l.client.Do(ctx, l.client.B().Set().
		Key(key).
		Value(string(payload)).
		Ex(counterTTL).
		Build()).Error()
	if err != nil {
		return err
	}

	observed, _, err := l.read(ctx, key)
	if err != nil {
		return err
	}

	if observed.Count < next.Count {
		// A concurrent writer clobbered the update; surface it so the
		// backoff policy schedules the retry.
		return fmt.Errorf("increment not observed: want at least %d, got %d", next.Count, observed.Count)
	}

	return nil
}

// read fetches and decodes a counter. An absent key decodes as the zero
// counter with found=false.
func (l *Limiter) read(ctx context.Context, key string) (counter, bool, error) {
	data, err := l.client.Do(ctx, l.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return counter{}, false, nil
		}

		return counter{}, false, err
	}

	var state counter
	if err := sonic.Unmarshal(data, &state); err != nil {
		return counter{}, false, err
	}

	return state, true, nil
}

func (l *Limiter) key(class Class, actorID uint64, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%d:%d", class, actorID, window)
}

// windowNumber is the fixed one-minute window index for the given time.
func windowNumber(now time.Time) int64 {
	return now.UnixMilli() / Window.Milliseconds()
}

// timeUntilNextWindow is how long a denied actor has to wait for a fresh
// allowance.
func timeUntilNextWindow(now time.Time) time.Duration {
	boundary := (windowNumber(now) + 1) * Window.Milliseconds()
	return time.Duration(boundary-now.UnixMilli()) * time.Millisecond
}
