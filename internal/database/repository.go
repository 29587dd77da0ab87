package database

import (
	"github.com/presetworks/overseer/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all model operations.
type Repository struct {
	ban    *models.BanModel
	preset *models.PresetModel
}

// NewRepository creates a new repository with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		ban:    models.NewBan(db, logger),
		preset: models.NewPreset(db, logger),
	}
}

// Ban returns the ban record operations.
func (r *Repository) Ban() *models.BanModel {
	return r.ban
}

// Preset returns the preset visibility operations.
func (r *Repository) Preset() *models.PresetModel {
	return r.preset
}
