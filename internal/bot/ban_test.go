package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/presetworks/overseer/internal/database/types"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanUserShowsConfirmation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "ban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeCreateMessage, resp.Type)

	message, ok := resp.Data.(discord.MessageCreate)
	require.True(t, ok)
	require.Len(t, message.Components, 1)

	// Nothing is written until the moderator confirms.
	assert.Zero(t, f.bans.insertCount())
}

func TestBanConfirmationShowsHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}

	lifted := time.Now().Add(-time.Hour)
	f.bans.history = []*types.BanRecord{
		{ID: 2, DiscordUserID: uint64(outsiderID), Reason: "repeat spamming", LiftedAt: &lifted},
		{ID: 1, DiscordUserID: uint64(outsiderID), Reason: "first offense", LiftedAt: &lifted},
	}

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "ban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)

	message, ok := resp.Data.(discord.MessageCreate)
	require.True(t, ok)
	require.Len(t, message.Embeds, 1)

	fields := message.Embeds[0].Fields
	require.Len(t, fields, 1)
	assert.Equal(t, "Ban History", fields[0].Name)
	assert.Contains(t, fields[0].Value, "2 prior record(s)")
	assert.Contains(t, fields[0].Value, "2 lifted")
	assert.Contains(t, fields[0].Value, "repeat spamming")
}

func TestBanConfirmationWithoutHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "ban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)

	message, ok := resp.Data.(discord.MessageCreate)
	require.True(t, ok)
	require.Len(t, message.Embeds, 1)
	assert.Empty(t, message.Embeds[0].Fields)
}

func TestBanConfirmationSurvivesHistoryFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}
	f.bans.historyErr = errors.New("history table unavailable")

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "ban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)

	message, ok := resp.Data.(discord.MessageCreate)
	require.True(t, ok)
	require.Len(t, message.Components, 1)
	assert.Empty(t, message.Embeds[0].Fields)
}

func TestBanHistorySummaryCountsActiveRecords(t *testing.T) {
	t.Parallel()

	lifted := time.Now().Add(-time.Hour)
	history := []*types.BanRecord{
		{ID: 3, Reason: "ban evasion"},
		{ID: 2, Reason: "spam", LiftedAt: &lifted},
		{ID: 1, Reason: "spam", LiftedAt: &lifted},
	}

	summary := banHistorySummary(history)
	assert.Contains(t, summary, "3 prior record(s)")
	assert.Contains(t, summary, "2 lifted")
	assert.Contains(t, summary, "1 still active")
	assert.Contains(t, summary, "Most recent: ban evasion")

	assert.Empty(t, banHistorySummary(nil))
}

func TestBanUserUnknownTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "ban_user",
		interaction.Option{Name: "user", Value: "12345"}))
	require.NoError(t, err)
	assert.Equal(t, "User not found.", ephemeralContent(t, resp))
}

func TestBanConfirmOpensModal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := interaction.EncodeToken(BanConfirmPrefix, outsiderID.String(), "cool_user_2024")

	resp, err := f.router.Handle(context.Background(), componentPayload(moderatorID, token))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeModal, resp.Type)

	modal, ok := resp.Data.(discord.ModalCreate)
	require.True(t, ok)
	assert.Equal(t, interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024"), modal.CustomID)
}

func TestBanConfirmDeniedForNonModerator(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := interaction.EncodeToken(BanConfirmPrefix, outsiderID.String(), "cool_user_2024")

	resp, err := f.router.Handle(context.Background(), componentPayload(outsiderID, token))
	require.NoError(t, err)

	// An ephemeral denial, never a modal.
	assert.Equal(t, "You do not have permission to use this action.", ephemeralContent(t, resp))
	assert.Zero(t, f.bans.insertCount())
}

func TestBanCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	resp, err := f.router.Handle(context.Background(),
		componentPayload(moderatorID, BanCancelPrefix+outsiderID.String()))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeUpdateMessage, resp.Type)

	update, ok := resp.Data.(discord.MessageUpdate)
	require.True(t, ok)
	require.NotNil(t, update.Components)
	assert.Empty(t, *update.Components)
	assert.Zero(t, f.bans.insertCount())
}

func TestBanReasonModalInsertsRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024")

	resp, err := f.router.Handle(context.Background(),
		modalPayload(moderatorID, token, "spamming low-effort presets"))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeDeferredCreateMessage, resp.Type)

	waitForUpdate(t, f.messenger, 1)

	require.Equal(t, 1, f.bans.insertCount())
	record := f.bans.inserted[0]
	assert.Equal(t, uint64(outsiderID), record.DiscordUserID)
	assert.Equal(t, "spamming low-effort presets", record.Reason)
	assert.Equal(t, uint64(moderatorID), record.ModeratorID)
}

func TestBanReasonModalAlreadyBanned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.bans.active = &types.BanRecord{ID: 7, DiscordUserID: uint64(outsiderID), Reason: "previous ban"}
	token := interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024")

	resp, err := f.router.Handle(context.Background(),
		modalPayload(moderatorID, token, "spamming low-effort presets"))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeDeferredCreateMessage, resp.Type)

	waitForUpdate(t, f.messenger, 1)

	assert.Zero(t, f.bans.insertCount())

	update := f.messenger.lastUpdate(t)
	embed := (*update.Embeds)[0]
	errorField := embed.Fields[len(embed.Fields)-1]
	assert.Contains(t, errorField.Value, "already banned")
}

func TestBanReasonModalTooShort(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024")

	resp, err := f.router.Handle(context.Background(), modalPayload(moderatorID, token, "too short"))
	require.NoError(t, err)
	assert.Equal(t, "Reason needs at least 10 characters.", ephemeralContent(t, resp))
	assert.Zero(t, f.bans.insertCount())
}

func TestUnbanLiftsActiveBan(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}
	f.bans.active = &types.BanRecord{ID: 42, DiscordUserID: uint64(outsiderID), Reason: "spam", CreatedAt: time.Now()}

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "unban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeDeferredCreateMessage, resp.Type)

	waitForUpdate(t, f.messenger, 1)

	require.Equal(t, 1, f.bans.liftCount())
	assert.Equal(t, int64(42), f.bans.lifted[0])
}

func TestUnbanWithoutActiveBan(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}

	resp, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "unban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)
	require.Equal(t, discord.InteractionResponseTypeDeferredCreateMessage, resp.Type)

	waitForUpdate(t, f.messenger, 1)

	// Nothing is written.
	assert.Zero(t, f.bans.liftCount())
	assert.Zero(t, f.bans.insertCount())

	update := f.messenger.lastUpdate(t)
	embed := (*update.Embeds)[0]
	errorField := embed.Fields[len(embed.Fields)-1]
	assert.Contains(t, errorField.Value, "not currently banned")
}

func TestLogChannelNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.bot.config.LogChannelID = 900
	token := interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024")

	_, err := f.router.Handle(context.Background(),
		modalPayload(moderatorID, token, "spamming low-effort presets"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		f.messenger.mu.Lock()
		defer f.messenger.mu.Unlock()

		return len(f.messenger.channel) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLogChannelSkippedWhenUnset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := interaction.EncodeToken(BanReasonModalPrefix, outsiderID.String(), "cool_user_2024")

	_, err := f.router.Handle(context.Background(),
		modalPayload(moderatorID, token, "spamming low-effort presets"))
	require.NoError(t, err)

	waitForUpdate(t, f.messenger, 1)

	f.messenger.mu.Lock()
	defer f.messenger.mu.Unlock()
	assert.Empty(t, f.messenger.channel)
}

func TestUnbanEmbedHasNoActionRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.users[outsiderID] = &discord.User{ID: outsiderID, Username: "cool_user_2024"}
	f.bans.active = &types.BanRecord{ID: 9, DiscordUserID: uint64(outsiderID), Reason: "spam"}

	_, err := f.router.Handle(context.Background(), commandPayload(moderatorID, modChannel, "unban_user",
		interaction.Option{Name: "user", Value: outsiderID.String()}))
	require.NoError(t, err)

	waitForUpdate(t, f.messenger, 1)

	update := f.messenger.lastUpdate(t)
	require.NotNil(t, update.Embeds)
	assert.Contains(t, (*update.Embeds)[0].Title, "Unbanned")
}

func TestBanTokenRoundTripUnderscoreName(t *testing.T) {
	t.Parallel()

	token := interaction.EncodeToken(BanConfirmPrefix, "200", "cool_user_2024")
	id, name, err := interaction.DecodeToken(token, BanConfirmPrefix)
	require.NoError(t, err)
	assert.Equal(t, "200", id)
	assert.Equal(t, "cool_user_2024", name)
}
