package migrations

import (
	"context"
	"fmt"

	"github.com/presetworks/overseer/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.BanRecord)(nil),
			(*types.PresetVisibility)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		// Active bans are looked up by Discord identity on every ban/unban
		// flow. No uniqueness constraint on purpose: the check-then-act
		// sequence in the caller is the documented authority.
		if _, err := db.NewCreateIndex().
			Model((*types.BanRecord)(nil)).
			Index("idx_ban_records_discord_active").
			Column("discord_user_id").
			Where("lifted_at IS NULL").
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create ban index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []any{
			(*types.PresetVisibility)(nil),
			(*types.BanRecord)(nil),
		} {
			if _, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}

		return nil
	})
}
