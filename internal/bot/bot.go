package bot

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/database/types"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/presetworks/overseer/internal/setup/config"
	"github.com/presetworks/overseer/internal/upstream"
	"go.uber.org/zap"
)

// Action-token prefixes for component and modal routing. Routes are matched
// in the order they are registered.
const (
	PresetApprovePrefix     = "preset_approve_"
	PresetRejectModalPrefix = "preset_reject_modal_"
	PresetRevertModalPrefix = "preset_revert_modal_"
	BanConfirmPrefix        = "ban_confirm_"
	BanCancelPrefix         = "ban_cancel_"
	BanReasonModalPrefix    = "ban_reason_modal_"
)

// ReasonInputID is the custom ID of the reason text input in every modal.
const ReasonInputID = "reason"

// MinReasonLength is the minimum length of ban, rejection and revert reasons.
const MinReasonLength = 10

// Messenger is the slice of the Discord REST API the bot depends on. The
// disgo rest client satisfies it; tests substitute a fake.
type Messenger interface {
	GetInteractionResponse(applicationID snowflake.ID, interactionToken string, opts ...rest.RequestOpt) (*discord.Message, error)
	UpdateInteractionResponse(applicationID snowflake.ID, interactionToken string, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt) (*discord.Message, error)
	CreateFollowupMessage(applicationID snowflake.ID, interactionToken string, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	GetUser(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.User, error)
}

// BanStore is the slice of the database layer backing ban flows.
type BanStore interface {
	GetActiveBan(ctx context.Context, discordUserID uint64) (*types.BanRecord, error)
	Insert(ctx context.Context, record *types.BanRecord) error
	Lift(ctx context.Context, recordID int64, moderatorID uint64) (bool, error)
	GetHistory(ctx context.Context, discordUserID uint64) ([]*types.BanRecord, error)
}

// PresetStore records local hide/restore decisions for presets.
type PresetStore interface {
	SetHidden(ctx context.Context, presetID uuid.UUID, hidden bool, moderatorID uint64) error
	IsHidden(ctx context.Context, presetID uuid.UUID) (bool, error)
}

// AllowList is the configured set of moderator identities, built once at
// startup from the validated ID list.
type AllowList struct {
	ids map[uint64]struct{}
}

// NewAllowList builds an O(1) lookup from moderator IDs.
func NewAllowList(ids []uint64) *AllowList {
	lookup := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		lookup[id] = struct{}{}
	}

	return &AllowList{ids: lookup}
}

// Contains reports whether the given user is a moderator.
func (a *AllowList) Contains(id snowflake.ID) bool {
	_, ok := a.ids[uint64(id)]
	return ok
}

// Bot wires the moderation handlers into an interaction router. Handlers
// never surface business outcomes as HTTP errors; denial, validation and
// failure all travel as response content.
type Bot struct {
	config   *config.Discord
	allow    *AllowList
	rest     Messenger
	upstream upstream.Service
	bans     BanStore
	presets  PresetStore
	logger   *zap.Logger
}

// New creates the bot and registers every route on the router.
func New(
	cfg *config.Discord,
	allow *AllowList,
	messenger Messenger,
	service upstream.Service,
	bans BanStore,
	presets PresetStore,
	router *interaction.Router,
	logger *zap.Logger,
) *Bot {
	b := &Bot{
		config:   cfg,
		allow:    allow,
		rest:     messenger,
		upstream: service,
		bans:     bans,
		presets:  presets,
		logger:   logger.Named("bot"),
	}

	router.Command("moderate", b.handleModerate)
	router.Command("pending", b.handlePending)
	router.Command("stats", b.handleStats)
	router.Command("history", b.handleHistory)
	router.Command("ban_user", b.handleBanUser)
	router.Command("unban_user", b.handleUnbanUser)

	router.Component(PresetApprovePrefix, b.handleApproveButton)
	router.Component(PresetRejectModalPrefix, b.handleRejectButton)
	router.Component(PresetRevertModalPrefix, b.handleRevertButton)
	router.Component(BanConfirmPrefix, b.handleBanConfirm)
	router.Component(BanCancelPrefix, b.handleBanCancel)

	router.Modal(PresetRejectModalPrefix, b.handleRejectModal)
	router.Modal(PresetRevertModalPrefix, b.handleRevertModal)
	router.Modal(BanReasonModalPrefix, b.handleBanReasonModal)

	router.Autocomplete(b.resolveAutocomplete)

	return b
}

// requireModerator applies the permission gate. Identity presence is checked
// strictly before authorization: an interaction without an actor is invalid,
// not unauthorized, even when the allow-list is empty.
func (b *Bot) requireModerator(p *interaction.Payload) *discord.InteractionResponse {
	actorID := p.ActorID()
	if actorID == 0 {
		return interaction.Ephemeral("Invalid interaction.")
	}

	if !b.allow.Contains(actorID) {
		return interaction.Ephemeral("You do not have permission to use this action.")
	}

	return nil
}

// requireModChannel restricts a subcommand to the configured moderation
// channel. An unset channel fails closed.
func (b *Bot) requireModChannel(p *interaction.Payload) *discord.InteractionResponse {
	if b.config.ModChannelID == 0 || uint64(p.ChannelID) != b.config.ModChannelID {
		return interaction.Ephemeral("This command can only be used in the moderation channel.")
	}

	return nil
}

// validateReason checks a free-text reason. A missing reason is reported
// separately from one that is merely too short.
func validateReason(reason string) *discord.InteractionResponse {
	if reason == "" {
		return interaction.Ephemeral("Reason is missing.")
	}

	if len([]rune(reason)) < MinReasonLength {
		return interaction.Ephemeral("Reason needs at least 10 characters.")
	}

	return nil
}

// actorIdentity returns the upstream-facing identity of the acting moderator.
func actorIdentity(p *interaction.Payload) upstream.Actor {
	user := p.Actor()
	if user == nil {
		return upstream.Actor{}
	}

	return upstream.Actor{
		ID:   user.ID.String(),
		Name: user.DisplayName(),
	}
}
