package ratelimit

import (
	"context"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Middleware is the advisory integration of the limiter. It observes
// requests per actor and action class without ever blocking dispatch;
// enforcement is left to call sites that want it.
type Middleware struct {
	limiter *Limiter
	configs map[Class]Config
	logger  *zap.Logger
}

// NewMiddleware creates the advisory observer.
func NewMiddleware(limiter *Limiter, configs map[Class]Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		configs: configs,
		logger:  logger.Named("ratelimit_middleware"),
	}
}

// Observe checks the actor's current allowance and schedules the counter
// bump. The bump runs detached from the request since the synchronous
// response must never wait on the counter store; the request context is
// stripped of cancellation so a completed response does not abort the write.
func (m *Middleware) Observe(ctx context.Context, actorID uint64, class string) {
	cfg, ok := m.configs[Class(class)]
	if !ok {
		return
	}

	decision := m.limiter.Check(ctx, actorID, Class(class), cfg)
	if !decision.Allowed {
		m.logger.Warn("Rate limit exceeded",
			zap.Uint64("actorID", actorID),
			zap.String("class", class),
			zap.Duration("retryAfter", decision.RetryAfter))
	}

	background := context.WithoutCancel(ctx)

	go func() {
		var catcher panics.Catcher

		catcher.Try(func() {
			m.limiter.Increment(background, actorID, Class(class))
		})

		if recovered := catcher.Recovered(); recovered != nil {
			m.logger.Error("Panic in rate limit increment", zap.Any("panic", recovered.Value))
		}
	}()
}
