package types

import (
	"time"

	"github.com/google/uuid"
)

// PresetVisibility tracks whether a preset is hidden from public listings.
// The moderation status itself lives upstream; this record only mirrors the
// local hide/restore decision taken alongside a status change.
type PresetVisibility struct {
	PresetID  uuid.UUID `bun:",pk,type:uuid"`
	Hidden    bool      `bun:",notnull"`
	UpdatedBy uint64    `bun:",notnull"` // Moderator who last changed visibility
	UpdatedAt time.Time `bun:",notnull"`
}
