package interaction

import (
	"github.com/disgoorg/disgo/discord"
)

// Ephemeral wraps plain text into an immediate message envelope visible only
// to the acting user.
func Ephemeral(content string) *discord.InteractionResponse {
	return &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeCreateMessage,
		Data: discord.NewMessageCreateBuilder().
			SetContent(content).
			SetEphemeral(true).
			Build(),
	}
}

// Message wraps a built message into an immediate message envelope.
func Message(message discord.MessageCreate) *discord.InteractionResponse {
	return &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeCreateMessage,
		Data: message,
	}
}

// Deferred acknowledges the interaction so the real work can run after the
// synchronous response budget has been spent. The ephemeral flag applies to
// the eventual follow-up.
func Deferred(ephemeral bool) *discord.InteractionResponse {
	response := &discord.InteractionResponse{Type: discord.InteractionResponseTypeDeferredCreateMessage}
	if ephemeral {
		response.Data = discord.NewMessageCreateBuilder().SetEphemeral(true).Build()
	}

	return response
}

// DeferredUpdate acknowledges a component interaction whose message will be
// edited in place once the deferred work completes.
func DeferredUpdate() *discord.InteractionResponse {
	return &discord.InteractionResponse{Type: discord.InteractionResponseTypeDeferredUpdateMessage}
}

// Update replaces the message the interaction originated from.
func Update(update discord.MessageUpdate) *discord.InteractionResponse {
	return &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeUpdateMessage,
		Data: update,
	}
}

// Modal opens a modal dialog.
func Modal(modal discord.ModalCreate) *discord.InteractionResponse {
	return &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeModal,
		Data: modal,
	}
}
