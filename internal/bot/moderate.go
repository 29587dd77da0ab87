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

// handleModerate dispatches the /preset moderate subcommand. Approvals defer
// immediately; rejections and reverts first collect a reason through a modal.
func (b *Bot) handleModerate(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	if denied := b.requireModChannel(p); denied != nil {
		return denied
	}

	sub := p.Data.Subcommand()
	action := interaction.FindOption(sub.Options, "action")
	idOption := interaction.FindOption(sub.Options, "id")

	if action == nil || idOption == nil {
		return interaction.Ephemeral("Both an action and a preset ID are required.")
	}

	presetID, err := uuid.Parse(idOption.StringValue())
	if err != nil {
		return interaction.Ephemeral("Preset ID must be a valid UUID.")
	}

	switch action.StringValue() {
	case "approve":
		b.runDeferred(ctx, "preset_approve", p, func(ctx context.Context) error {
			return b.applyDecision(ctx, p, presetID, upstream.StatusApproved, "")
		})

		return interaction.Deferred(true)
	case "reject":
		return b.reasonModal(PresetRejectModalPrefix, presetID, "Reject Preset")
	case "revert":
		return b.reasonModal(PresetRevertModalPrefix, presetID, "Revert Preset")
	default:
		return interaction.Ephemeral(fmt.Sprintf("Unknown moderation action: %s", action.StringValue()))
	}
}

// handleApproveButton approves the preset named in the button's action token.
// The originating message is edited in place once the decision lands.
func (b *Bot) handleApproveButton(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	presetID, resp := decodePresetToken(p.Data.CustomID, PresetApprovePrefix)
	if resp != nil {
		return resp
	}

	b.runDeferred(ctx, "preset_approve", p, func(ctx context.Context) error {
		return b.applyDecision(ctx, p, presetID, upstream.StatusApproved, "")
	})

	return interaction.DeferredUpdate()
}

// handleRejectButton opens the rejection reason modal for the preset named in
// the button's action token.
func (b *Bot) handleRejectButton(_ context.Context, p *interaction.Payload) *discord.InteractionResponse {
	return b.reasonModalFromToken(p, PresetRejectModalPrefix, "Reject Preset")
}

func (b *Bot) handleRevertButton(_ context.Context, p *interaction.Payload) *discord.InteractionResponse {
	return b.reasonModalFromToken(p, PresetRevertModalPrefix, "Revert Preset")
}

// handleRejectModal applies a rejection once the reason passes validation.
func (b *Bot) handleRejectModal(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	return b.decisionFromModal(ctx, p, PresetRejectModalPrefix, upstream.StatusRejected)
}

func (b *Bot) handleRevertModal(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	return b.decisionFromModal(ctx, p, PresetRevertModalPrefix, "")
}

func (b *Bot) decisionFromModal(
	ctx context.Context, p *interaction.Payload, prefix string, status upstream.Status,
) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	presetID, resp := decodePresetToken(p.Data.CustomID, prefix)
	if resp != nil {
		return resp
	}

	reason := p.Data.ModalValue(ReasonInputID)
	if invalid := validateReason(reason); invalid != nil {
		return invalid
	}

	name := "preset_revert"
	if status != "" {
		name = "preset_reject"
	}

	b.runDeferred(ctx, name, p, func(ctx context.Context) error {
		return b.applyDecision(ctx, p, presetID, status, reason)
	})

	return interaction.Deferred(true)
}

// applyDecision performs the upstream mutation for one moderation decision
// and edits the deferred acknowledgement with the outcome. An empty status
// means revert. Upstream failures are rendered, not returned; only transport
// problems with Discord itself propagate as errors.
func (b *Bot) applyDecision(
	ctx context.Context, p *interaction.Payload, presetID uuid.UUID, status upstream.Status, reason string,
) error {
	actor := actorIdentity(p)

	var (
		preset *upstream.Preset
		err    error
		verb   string
	)

	switch status {
	case upstream.StatusApproved:
		verb = "approved"
		preset, err = b.upstream.SetStatus(ctx, presetID, status, reason, actor)
	case upstream.StatusRejected:
		verb = "rejected"
		preset, err = b.upstream.SetStatus(ctx, presetID, status, reason, actor)
	default:
		verb = "reverted"
		preset, err = b.upstream.Revert(ctx, presetID, reason, actor)
	}

	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			b.editFailure(ctx, p, fmt.Sprintf("Preset `%s` was not found.", presetID))
			return nil
		}

		b.editFailure(ctx, p, err.Error())

		return nil
	}

	b.recordVisibility(ctx, presetID, status == upstream.StatusRejected, p)

	fields := []discord.EmbedField{
		field("Preset", preset.Name),
		field("ID", presetID.String()),
	}
	if reason != "" {
		fields = append(fields, field("Reason", reason))
	}

	embed := successEmbed(
		fmt.Sprintf("Preset %s", verb),
		fmt.Sprintf("**%s** has been %s.", preset.Name, verb),
		fields...,
	)

	if err := b.editOriginal(ctx, p, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()); err != nil {
		return fmt.Errorf("failed to edit moderation response: %w", err)
	}

	b.notifyLog(ctx, auditEmbed(fmt.Sprintf("Preset %s", verb), p.ActorID(), fields...))

	return nil
}

// recordVisibility mirrors the decision into the local visibility table.
// The upstream API remains the source of truth, so a write failure here is
// logged and the flow continues.
func (b *Bot) recordVisibility(ctx context.Context, presetID uuid.UUID, hidden bool, p *interaction.Payload) {
	if err := b.presets.SetHidden(ctx, presetID, hidden, uint64(p.ActorID())); err != nil {
		b.logger.Warn("Failed to record preset visibility",
			zap.String("preset_id", presetID.String()),
			zap.Bool("hidden", hidden),
			zap.Error(err))
	}
}

// reasonModal builds the reason-collection modal for a preset decision. The
// modal's custom ID carries the full action token so the submission needs no
// server-side state.
func (b *Bot) reasonModal(prefix string, presetID uuid.UUID, title string) *discord.InteractionResponse {
	return interaction.Modal(discord.NewModalCreateBuilder().
		SetCustomID(prefix + presetID.String()).
		SetTitle(title).
		AddActionRow(discord.NewTextInput(ReasonInputID, discord.TextInputStyleParagraph, "Reason").
			WithRequired(true).
			WithMinLength(MinReasonLength).
			WithPlaceholder("Explain the decision (at least 10 characters)")).
		Build())
}

func (b *Bot) reasonModalFromToken(p *interaction.Payload, prefix, title string) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	presetID, resp := decodePresetToken(p.Data.CustomID, prefix)
	if resp != nil {
		return resp
	}

	return b.reasonModal(prefix, presetID, title)
}

// decodePresetToken extracts the preset UUID from an action token, returning
// a user-facing response when the token is malformed.
func decodePresetToken(customID, prefix string) (uuid.UUID, *discord.InteractionResponse) {
	targetID, _, err := interaction.DecodeToken(customID, prefix)
	if err != nil {
		return uuid.Nil, interaction.Ephemeral("Unknown button action.")
	}

	presetID, err := uuid.Parse(targetID)
	if err != nil {
		return uuid.Nil, interaction.Ephemeral("Preset ID must be a valid UUID.")
	}

	return presetID, nil
}
