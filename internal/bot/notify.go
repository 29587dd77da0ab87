package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// notifyLog posts an audit embed to the configured log channel. An unset
// channel disables notifications without error; a failed send is logged and
// never affects the moderation outcome it describes.
func (b *Bot) notifyLog(ctx context.Context, embed discord.Embed) {
	if b.config.LogChannelID == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, deferredTimeout)
	defer cancel()

	message := discord.NewMessageCreateBuilder().SetEmbeds(embed).Build()
	if _, err := b.rest.CreateMessage(snowflake.ID(b.config.LogChannelID), message, rest.WithCtx(sendCtx)); err != nil {
		b.logger.Warn("Failed to post log channel notification",
			zap.Uint64("channel_id", b.config.LogChannelID),
			zap.Error(err))
	}
}

// auditEmbed is the fixed shape of log-channel notifications.
func auditEmbed(action string, actorID snowflake.ID, details ...discord.EmbedField) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(action).
		SetDescription("Moderator: <@" + actorID.String() + ">").
		SetColor(SuccessEmbedColor).
		SetTimestamp(time.Now())
	builder.Fields = append(builder.Fields, details...)

	return builder.Build()
}
