package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/upstream"
	"github.com/presetworks/overseer/pkg/utils"
)

// Embed colors.
const (
	SuccessEmbedColor = 0x57F287
	ErrorEmbedColor   = 0xED4245
	DefaultEmbedColor = 0x5865F2
	NeutralEmbedColor = 0x312D2B
)

// Embed field values are capped by Discord at 1024 characters.
const maxFieldLength = 1024

func successEmbed(title, description string, fields ...discord.EmbedField) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(description).
		SetColor(SuccessEmbedColor).
		SetTimestamp(time.Now())
	builder.Fields = append(builder.Fields, fields...)

	return builder.Build()
}

func errorEmbed(title, description string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(description).
		SetColor(ErrorEmbedColor).
		SetTimestamp(time.Now()).
		Build()
}

func field(name, value string) discord.EmbedField {
	if value == "" {
		value = "—"
	}

	return discord.EmbedField{Name: name, Value: utils.TruncateString(value, maxFieldLength)}
}

// presetLine renders one preset for list views. Presets carrying a local
// hide decision are marked so moderators see queue entries they already
// acted on.
func presetLine(p *upstream.Preset, hiddenLocally bool) string {
	author := p.AuthorName
	if author == "" {
		author = p.AuthorID
	}

	line := fmt.Sprintf("**%s** by %s\n`%s` · %s", p.Name, author, p.ID, p.Status)
	if hiddenLocally {
		line += " · hidden locally"
	}

	return line
}

func pendingEmbed(presets []*upstream.Preset, hidden map[uuid.UUID]bool) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("Pending Presets").
		SetColor(DefaultEmbedColor).
		SetTimestamp(time.Now())

	if len(presets) == 0 {
		return builder.SetDescription("The moderation queue is empty.").Build()
	}

	lines := make([]string, 0, len(presets))
	for _, p := range presets {
		lines = append(lines, presetLine(p, hidden[p.ID]))
	}

	return builder.
		SetDescription(utils.TruncateString(strings.Join(lines, "\n\n"), 4000)).
		SetFooterText(fmt.Sprintf("%d pending", len(presets))).
		Build()
}

func statsEmbed(stats *upstream.Stats) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("Moderation Stats").
		SetColor(DefaultEmbedColor).
		SetTimestamp(time.Now()).
		AddField("Total", fmt.Sprintf("%d", stats.Total), true).
		AddField("Pending", fmt.Sprintf("%d", stats.Pending), true).
		AddField("Approved", fmt.Sprintf("%d", stats.Approved), true).
		AddField("Rejected", fmt.Sprintf("%d", stats.Rejected), true).
		AddField("Flagged", fmt.Sprintf("%d", stats.Flagged), true).
		Build()
}

func historyEmbed(presetName string, entries []*upstream.HistoryEntry) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("History · %s", presetName)).
		SetColor(DefaultEmbedColor).
		SetTimestamp(time.Now())

	if len(entries) == 0 {
		return builder.SetDescription("No moderation history recorded.").Build()
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		line := fmt.Sprintf("<t:%d:R> **%s** by <@%s>", entry.CreatedAt.Unix(), entry.Action, entry.ModeratorID)
		if entry.Reason != "" {
			line += fmt.Sprintf("\n> %s", utils.TruncateString(entry.Reason, 200))
		}

		lines = append(lines, line)
	}

	return builder.SetDescription(utils.TruncateString(strings.Join(lines, "\n"), 4000)).Build()
}

// errorUpdate turns a previously-sent message into a failure rendering. The
// original title, description and fields are preserved when the message is
// available; the sanitized failure text is appended as an Error field and all
// interactive components are removed.
func errorUpdate(original *discord.Message, failure string) discord.MessageUpdate {
	sanitized := utils.TruncateString(utils.SanitizeError(failure), maxFieldLength)

	var builder *discord.EmbedBuilder
	if original != nil && len(original.Embeds) > 0 {
		source := original.Embeds[0]
		builder = discord.NewEmbedBuilder().
			SetTitle(source.Title).
			SetDescription(source.Description)
		builder.Fields = append(builder.Fields, source.Fields...)
	} else {
		builder = discord.NewEmbedBuilder().SetTitle("Error")
	}

	embed := builder.
		SetColor(ErrorEmbedColor).
		SetTimestamp(time.Now()).
		AddField("Error", sanitized, false).
		Build()

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()
}
