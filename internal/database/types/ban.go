package types

import (
	"time"
)

// BanRecord represents a ban issued against a community member. A member may
// be identified in either of two namespaces: the Discord user ID, or the
// upstream author ID for submitters without a linked Discord account. At
// least one must be set.
//
// At most one active record (LiftedAt null) may exist per identity. That
// invariant is enforced by checking for an existing active record before
// insert rather than by a uniqueness constraint, so the check-then-act
// sequence in the caller is the authority and a narrow race window is
// accepted.
type BanRecord struct {
	ID            int64      `bun:",pk,autoincrement"`
	DiscordUserID uint64     `bun:",nullzero"`  // Discord identity namespace
	AuthorID      string     `bun:",nullzero"`  // Upstream author identity namespace
	Reason        string     `bun:",notnull"`   // Why the ban was issued
	ModeratorID   uint64     `bun:",notnull"`   // Who issued the ban
	CreatedAt     time.Time  `bun:",notnull"`   // When the ban was issued
	LiftedAt      *time.Time `bun:",nullzero"`  // When the ban was lifted (null while active)
	LiftedBy      uint64     `bun:",nullzero"`  // Who lifted the ban
}

// IsActive reports whether the ban is still in force.
func (b *BanRecord) IsActive() bool {
	return b.LiftedAt == nil
}
