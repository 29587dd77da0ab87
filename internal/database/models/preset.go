package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/database/dbretry"
	"github.com/presetworks/overseer/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PresetModel handles database operations for preset visibility.
type PresetModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPreset creates a new PresetModel instance.
func NewPreset(db *bun.DB, logger *zap.Logger) *PresetModel {
	return &PresetModel{
		db:     db,
		logger: logger.Named("db_preset"),
	}
}

// SetHidden records the hide/restore decision for a preset.
func (m *PresetModel) SetHidden(ctx context.Context, presetID uuid.UUID, hidden bool, moderatorID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		record := &types.PresetVisibility{
			PresetID:  presetID,
			Hidden:    hidden,
			UpdatedBy: moderatorID,
			UpdatedAt: time.Now(),
		}

		_, err := m.db.NewInsert().
			Model(record).
			On("CONFLICT (preset_id) DO UPDATE").
			Set("hidden = EXCLUDED.hidden").
			Set("updated_by = EXCLUDED.updated_by").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set preset visibility: %w", err)
		}

		return nil
	})
}

// IsHidden reports whether a preset is currently hidden. Presets without a
// visibility record are visible.
func (m *PresetModel) IsHidden(ctx context.Context, presetID uuid.UUID) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		var record types.PresetVisibility

		err := m.db.NewSelect().
			Model(&record).
			Where("preset_id = ?", presetID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		if err != nil {
			return false, fmt.Errorf("failed to get preset visibility: %w", err)
		}

		return record.Hidden, nil
	})
}
