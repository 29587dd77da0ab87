package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// deferredTimeout bounds every Discord edit made after the synchronous
// response has been sent.
const deferredTimeout = 5 * time.Second

// runDeferred executes the second phase of a two-phase interaction on a
// detached goroutine. The phase survives cancellation of the originating
// request; a panic or returned error is logged and rendered as a generic
// failure edit so the user is never left staring at a spinner.
func (b *Bot) runDeferred(ctx context.Context, name string, p *interaction.Payload, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)

	go func() {
		var catcher panics.Catcher

		var err error

		catcher.Try(func() {
			runCtx, cancel := context.WithTimeout(detached, 30*time.Second)
			defer cancel()

			err = fn(runCtx)
		})

		if recovered := catcher.Recovered(); recovered != nil {
			b.logger.Error("Deferred phase panicked",
				zap.String("action", name),
				zap.Any("panic", recovered.Value))
			b.editGenericError(detached, p)

			return
		}

		if err != nil {
			b.logger.Error("Deferred phase failed",
				zap.String("action", name),
				zap.Error(err))
			b.editGenericError(detached, p)
		}
	}()
}

// editOriginal replaces the deferred acknowledgement (or the originating
// message, for component flows) with the final rendering.
func (b *Bot) editOriginal(ctx context.Context, p *interaction.Payload, update discord.MessageUpdate) error {
	editCtx, cancel := context.WithTimeout(ctx, deferredTimeout)
	defer cancel()

	_, err := b.rest.UpdateInteractionResponse(p.ApplicationID, p.Token, update, rest.WithCtx(editCtx))

	return err
}

// editFailure renders an operation failure into the original message,
// preserving whatever the message already showed.
func (b *Bot) editFailure(ctx context.Context, p *interaction.Payload, failure string) {
	fetchCtx, cancel := context.WithTimeout(ctx, deferredTimeout)
	original, fetchErr := b.rest.GetInteractionResponse(p.ApplicationID, p.Token, rest.WithCtx(fetchCtx))
	cancel()

	if fetchErr != nil {
		b.logger.Warn("Unable to fetch original response for error rendering", zap.Error(fetchErr))
		original = nil
	}

	if err := b.editOriginal(ctx, p, errorUpdate(original, failure)); err != nil {
		b.logger.Error("Failed to edit response with error rendering", zap.Error(err))
	}
}

func (b *Bot) editGenericError(ctx context.Context, p *interaction.Payload) {
	update := discord.NewMessageUpdateBuilder().
		SetEmbeds(errorEmbed("Error", "An unexpected error occurred. Please try again later.")).
		ClearContainerComponents().
		Build()

	if err := b.editOriginal(ctx, p, update); err != nil {
		b.logger.Error("Failed to edit response with generic error", zap.Error(err))
	}
}
