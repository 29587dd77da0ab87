package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/presetworks/overseer/internal/database/types"
	"github.com/presetworks/overseer/internal/interaction"
	"go.uber.org/zap"
)

// handleBanUser starts the ban confirmation flow. The command only shows a
// confirmation; no record is written until the moderator confirms and
// provides a reason.
func (b *Bot) handleBanUser(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	if denied := b.requireModChannel(p); denied != nil {
		return denied
	}

	target, resp := b.resolveTargetUser(ctx, p)
	if resp != nil {
		return resp
	}

	token := interaction.EncodeToken(BanConfirmPrefix, target.ID.String(), target.EffectiveName())

	builder := discord.NewEmbedBuilder().
		SetTitle("Confirm Ban").
		SetDescription(fmt.Sprintf("Ban **%s** (<@%s>) from submitting presets?", target.EffectiveName(), target.ID)).
		SetColor(ErrorEmbedColor).
		SetTimestamp(time.Now())

	// Prior records inform the decision but never block the confirmation, so
	// a history lookup failure is logged and the field is simply omitted.
	history, err := b.bans.GetHistory(ctx, uint64(target.ID))
	if err != nil {
		b.logger.Warn("Failed to load ban history for confirmation",
			zap.Uint64("target_id", uint64(target.ID)),
			zap.Error(err))
	} else if summary := banHistorySummary(history); summary != "" {
		builder.AddField("Ban History", summary, false)
	}

	embed := builder.Build()

	return interaction.Message(discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		AddActionRow(
			discord.NewDangerButton("Confirm Ban", token),
			discord.NewSecondaryButton("Cancel", BanCancelPrefix+target.ID.String()),
		).
		SetEphemeral(true).
		Build())
}

// handleBanConfirm opens the reason modal. The permission gate runs again
// here: the button click is a fresh interaction and the confirmation message
// proves nothing about who clicked.
func (b *Bot) handleBanConfirm(_ context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	targetID, displayName, err := interaction.DecodeToken(p.Data.CustomID, BanConfirmPrefix)
	if err != nil {
		return interaction.Ephemeral("Unknown button action.")
	}

	return interaction.Modal(discord.NewModalCreateBuilder().
		SetCustomID(interaction.EncodeToken(BanReasonModalPrefix, targetID, displayName)).
		SetTitle("Ban Reason").
		AddActionRow(discord.NewTextInput(ReasonInputID, discord.TextInputStyleParagraph, "Reason").
			WithRequired(true).
			WithMinLength(MinReasonLength).
			WithPlaceholder("Explain the ban (at least 10 characters)")).
		Build())
}

// handleBanCancel dismisses the confirmation. Cancellation always succeeds
// and requires no permission check since nothing is mutated.
func (b *Bot) handleBanCancel(_ context.Context, _ *interaction.Payload) *discord.InteractionResponse {
	embed := discord.NewEmbedBuilder().
		SetTitle("Ban Cancelled").
		SetDescription("No action was taken.").
		SetColor(NeutralEmbedColor).
		SetTimestamp(time.Now()).
		Build()

	return interaction.Update(discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build())
}

// handleBanReasonModal writes the ban record. The active-ban check and the
// insert are separate statements; concurrent confirmations for the same user
// can both land, which is acceptable because lifting a ban lifts the newest
// active record first and the history keeps every row.
func (b *Bot) handleBanReasonModal(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	rawTargetID, displayName, err := interaction.DecodeToken(p.Data.CustomID, BanReasonModalPrefix)
	if err != nil {
		return interaction.Ephemeral("Unknown modal action.")
	}

	targetID, err := snowflake.Parse(rawTargetID)
	if err != nil {
		return interaction.Ephemeral("Unknown modal action.")
	}

	reason := p.Data.ModalValue(ReasonInputID)
	if invalid := validateReason(reason); invalid != nil {
		return invalid
	}

	b.runDeferred(ctx, "ban_user", p, func(ctx context.Context) error {
		return b.applyBan(ctx, p, targetID, displayName, reason)
	})

	return interaction.Deferred(true)
}

// handleUnbanUser lifts the target's active ban. A user without an active
// ban is reported as such and nothing is written.
func (b *Bot) handleUnbanUser(ctx context.Context, p *interaction.Payload) *discord.InteractionResponse {
	if denied := b.requireModerator(p); denied != nil {
		return denied
	}

	if denied := b.requireModChannel(p); denied != nil {
		return denied
	}

	target, resp := b.resolveTargetUser(ctx, p)
	if resp != nil {
		return resp
	}

	b.runDeferred(ctx, "unban_user", p, func(ctx context.Context) error {
		return b.applyUnban(ctx, p, target)
	})

	return interaction.Deferred(true)
}

func (b *Bot) applyBan(
	ctx context.Context, p *interaction.Payload, targetID snowflake.ID, displayName, reason string,
) error {
	existing, err := b.bans.GetActiveBan(ctx, uint64(targetID))
	if err != nil {
		b.editFailure(ctx, p, "Unable to check existing bans. Please try again.")
		return nil
	}

	if existing != nil {
		b.editFailure(ctx, p, fmt.Sprintf("<@%s> is already banned.", targetID))
		return nil
	}

	record := &types.BanRecord{
		DiscordUserID: uint64(targetID),
		Reason:        reason,
		ModeratorID:   uint64(p.ActorID()),
		CreatedAt:     time.Now(),
	}

	if err := b.bans.Insert(ctx, record); err != nil {
		b.editFailure(ctx, p, "Unable to save the ban record. Please try again.")
		return nil
	}

	fields := []discord.EmbedField{
		field("User", fmt.Sprintf("<@%s>", targetID)),
		field("Reason", reason),
	}
	if displayName != "" {
		fields = append(fields, field("Display Name", displayName))
	}

	embed := successEmbed("User Banned", fmt.Sprintf("<@%s> can no longer submit presets.", targetID), fields...)

	if err := b.editOriginal(ctx, p, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()); err != nil {
		return fmt.Errorf("failed to edit ban response: %w", err)
	}

	b.notifyLog(ctx, auditEmbed("User Banned", p.ActorID(), fields...))

	return nil
}

func (b *Bot) applyUnban(ctx context.Context, p *interaction.Payload, target *discord.User) error {
	existing, err := b.bans.GetActiveBan(ctx, uint64(target.ID))
	if err != nil {
		b.editFailure(ctx, p, "Unable to check existing bans. Please try again.")
		return nil
	}

	if existing == nil {
		b.editFailure(ctx, p, fmt.Sprintf("<@%s> is not currently banned.", target.ID))
		return nil
	}

	lifted, err := b.bans.Lift(ctx, existing.ID, uint64(p.ActorID()))
	if err != nil || !lifted {
		b.editFailure(ctx, p, "Unable to lift the ban. Please try again.")
		return nil
	}

	fields := []discord.EmbedField{
		field("User", fmt.Sprintf("<@%s>", target.ID)),
		field("Original Reason", existing.Reason),
	}

	embed := successEmbed("User Unbanned", fmt.Sprintf("<@%s> may submit presets again.", target.ID), fields...)

	if err := b.editOriginal(ctx, p, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		Build()); err != nil {
		return fmt.Errorf("failed to edit unban response: %w", err)
	}

	b.notifyLog(ctx, auditEmbed("User Unbanned", p.ActorID(), fields...))

	return nil
}

// banHistorySummary condenses a user's past records into one embed field
// value. An empty string means no history worth showing.
func banHistorySummary(history []*types.BanRecord) string {
	if len(history) == 0 {
		return ""
	}

	var active, lifted int

	for _, record := range history {
		if record.IsActive() {
			active++
		} else {
			lifted++
		}
	}

	summary := fmt.Sprintf("%d prior record(s): %d lifted", len(history), lifted)
	if active > 0 {
		summary += fmt.Sprintf(", %d still active", active)
	}

	// History is newest first.
	if latest := history[0]; latest.Reason != "" {
		summary += fmt.Sprintf("\nMost recent: %s", latest.Reason)
	}

	return summary
}

// resolveTargetUser reads the user option and resolves it through the
// Discord API so the confirmation can show a real name.
func (b *Bot) resolveTargetUser(ctx context.Context, p *interaction.Payload) (*discord.User, *discord.InteractionResponse) {
	sub := p.Data.Subcommand()

	option := interaction.FindOption(sub.Options, "user")
	if option == nil {
		return nil, interaction.Ephemeral("A user is required.")
	}

	targetID, err := snowflake.Parse(option.StringValue())
	if err != nil {
		return nil, interaction.Ephemeral("User must be a valid Discord user.")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, deferredTimeout)
	defer cancel()

	target, err := b.rest.GetUser(targetID, rest.WithCtx(fetchCtx))
	if err != nil || target == nil {
		return nil, interaction.Ephemeral("User not found.")
	}

	return target, nil
}
