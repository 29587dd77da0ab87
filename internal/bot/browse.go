package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/presetworks/overseer/internal/upstream"
	"go.uber.org/zap"
)

// handlePending lists the moderation queue with approve/reject buttons on
// the first entries.
func (b *Bot) handlePending(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	b.runDeferred(ctx, "pending", p, func(ctx context.Context) error {
		presets, err := b.upstream.ListPending(ctx)
		if err != nil {
			b.editFailure(ctx, p, err.Error())
			return nil
		}

		builder := discord.NewMessageUpdateBuilder().SetEmbeds(pendingEmbed(presets, b.locallyHidden(ctx, presets)))

		// One action row per preset, capped at Discord's five-row limit.
		for i, preset := range presets {
			if i == 5 {
				break
			}

			label := fmt.Sprintf("Approve %s", preset.Name)
			builder.AddActionRow(
				discord.NewPrimaryButton(label, PresetApprovePrefix+preset.ID.String()),
				discord.NewDangerButton("Reject", PresetRejectModalPrefix+preset.ID.String()),
			)
		}

		return b.editOriginal(ctx, p, builder.Build())
	})

	return interaction.Deferred(true)
}

// locallyHidden checks which of the listed presets carry a local hide
// decision. Lookup failures degrade to "visible"; the queue still renders.
func (b *Bot) locallyHidden(ctx context.Context, presets []*upstream.Preset) map[uuid.UUID]bool {
	hidden := make(map[uuid.UUID]bool, len(presets))

	for _, preset := range presets {
		isHidden, err := b.presets.IsHidden(ctx, preset.ID)
		if err != nil {
			b.logger.Warn("Failed to check preset visibility",
				zap.String("preset_id", preset.ID.String()),
				zap.Error(err))

			continue
		}

		if isHidden {
			hidden[preset.ID] = true
		}
	}

	return hidden
}

// handleStats shows moderation queue totals.
func (b *Bot) handleStats(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	b.runDeferred(ctx, "stats", p, func(ctx context.Context) error {
		stats, err := b.upstream.GetStats(ctx)
		if err != nil {
			b.editFailure(ctx, p, err.Error())
			return nil
		}

		return b.editOriginal(ctx, p, discord.NewMessageUpdateBuilder().
			SetEmbeds(statsEmbed(stats)).
			Build())
	})

	return interaction.Deferred(true)
}

// handleHistory shows the moderation trail of one preset.
func (b *Bot) handleHistory(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	sub := p.Data.Subcommand()

	idOption := interaction.FindOption(sub.Options, "id")
	if idOption == nil {
		return interaction.Ephemeral("A preset ID is required.")
	}

	presetID, err := uuid.Parse(idOption.StringValue())
	if err != nil {
		return interaction.Ephemeral("Preset ID must be a valid UUID.")
	}

	b.runDeferred(ctx, "history", p, func(ctx context.Context) error {
		preset, err := b.upstream.GetPreset(ctx, presetID)
		if err != nil {
			b.editFailure(ctx, p, err.Error())
			return nil
		}

		if preset == nil {
			b.editFailure(ctx, p, fmt.Sprintf("Preset `%s` was not found.", presetID))
			return nil
		}

		entries, err := b.upstream.GetHistory(ctx, presetID)
		if err != nil {
			if errors.Is(err, upstream.ErrNotFound) {
				b.editFailure(ctx, p, fmt.Sprintf("Preset `%s` was not found.", presetID))
				return nil
			}

			b.editFailure(ctx, p, err.Error())

			return nil
		}

		return b.editOriginal(ctx, p, discord.NewMessageUpdateBuilder().
			SetEmbeds(historyEmbed(preset.Name, entries)).
			Build())
	})

	return interaction.Deferred(true)
}
