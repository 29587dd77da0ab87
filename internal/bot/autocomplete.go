package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/presetworks/overseer/pkg/utils"
)

// maxChoices is Discord's cap on autocomplete suggestions.
const maxChoices = 25

// resolveAutocomplete suggests presets matching the partial ID or name the
// moderator has typed so far. Choice values are preset UUIDs so the chosen
// suggestion feeds straight into the id option.
func (b *Bot) resolveAutocomplete(
	ctx context.Context, _ *interaction.Payload, focused *interaction.Option,
) ([]discord.AutocompleteChoice, error) {
	presets, err := b.upstream.ListPresets(ctx, focused.StringValue(), "", maxChoices)
	if err != nil {
		return nil, err
	}

	choices := make([]discord.AutocompleteChoice, 0, len(presets))
	for _, preset := range presets {
		if len(choices) == maxChoices {
			break
		}

		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  utils.TruncateString(fmt.Sprintf("%s (%s)", preset.Name, preset.Status), 100),
			Value: preset.ID.String(),
		})
	}

	return choices, nil
}
