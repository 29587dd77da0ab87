package upstream

import (
	"time"

	"github.com/google/uuid"
)

// Status is the moderation state of a preset. Only the upstream API mutates
// it; this system requests transitions and renders the result.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
	StatusHidden   Status = "hidden"
)

// Preset is a community-submitted preset as the upstream API reports it.
type Preset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats summarizes the moderation queue.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Flagged  int `json:"flagged"`
}

// HistoryEntry is one moderation action applied to a preset.
type HistoryEntry struct {
	Action      string    `json:"action"`
	ModeratorID string    `json:"moderator_id"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Actor carries the identity of the moderator on whose behalf a request is
// made. The zero value means no actor headers are attached.
type Actor struct {
	ID   string
	Name string
}
