package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/presetworks/overseer/internal/database/dbretry"
	"github.com/presetworks/overseer/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// BanModel handles database operations for ban records.
type BanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBan creates a new BanModel instance.
func NewBan(db *bun.DB, logger *zap.Logger) *BanModel {
	return &BanModel{
		db:     db,
		logger: logger.Named("db_ban"),
	}
}

// GetActiveBan returns the active ban record for a Discord user, or nil when
// none exists. Callers use this as the authority before inserting or lifting;
// the check-then-act sequence is two round-trips and a concurrent duplicate
// is a known, accepted risk surface.
func (m *BanModel) GetActiveBan(ctx context.Context, discordUserID uint64) (*types.BanRecord, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.BanRecord, error) {
		var record types.BanRecord

		err := m.db.NewSelect().
			Model(&record).
			Where("discord_user_id = ?", discordUserID).
			Where("lifted_at IS NULL").
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get active ban: %w", err)
		}

		return &record, nil
	})
}

// Insert stores a new ban record. The caller must have verified via
// GetActiveBan that no active record exists for the identity.
func (m *BanModel) Insert(ctx context.Context, record *types.BanRecord) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}

		_, err := m.db.NewInsert().
			Model(record).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert ban record: %w", err)
		}

		m.logger.Info("Ban record created",
			zap.Uint64("discordUserID", record.DiscordUserID),
			zap.Uint64("moderatorID", record.ModeratorID))

		return nil
	})
}

// Lift marks a ban record as lifted. Returns false when the record had
// already been lifted concurrently.
func (m *BanModel) Lift(ctx context.Context, recordID int64, moderatorID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewUpdate().
			Model((*types.BanRecord)(nil)).
			Set("lifted_at = ?", time.Now()).
			Set("lifted_by = ?", moderatorID).
			Where("id = ?", recordID).
			Where("lifted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to lift ban: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, err
		}

		return affected > 0, nil
	})
}

// GetHistory returns all ban records for a Discord user, newest first.
func (m *BanModel) GetHistory(ctx context.Context, discordUserID uint64) ([]*types.BanRecord, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.BanRecord, error) {
		var records []*types.BanRecord

		err := m.db.NewSelect().
			Model(&records).
			Where("discord_user_id = ?", discordUserID).
			Order("created_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get ban history: %w", err)
		}

		return records, nil
	})
}
