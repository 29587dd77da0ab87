package interaction

import (
	"github.com/disgoorg/snowflake/v2"
)

// Type discriminates inbound interaction payloads.
type Type int

const (
	TypePing Type = iota + 1
	TypeCommand
	TypeComponent
	TypeAutocomplete
	TypeModalSubmit
)

// OptionTypeSubcommand is the Discord option type for subcommands.
const OptionTypeSubcommand = 1

// Payload is a single inbound webhook interaction. It is created once per HTTP
// request, never persisted, and scoped to that request plus one deferred
// continuation.
type Payload struct {
	Type          Type         `json:"type"`
	ID            snowflake.ID `json:"id,omitempty"`
	ApplicationID snowflake.ID `json:"application_id,omitempty"`
	Token         string       `json:"token,omitempty"`
	ChannelID     snowflake.ID `json:"channel_id,omitempty"`
	GuildID       snowflake.ID `json:"guild_id,omitempty"`
	Member        *Member      `json:"member,omitempty"`
	User          *User        `json:"user,omitempty"`
	Data          *Data        `json:"data,omitempty"`
}

// Member is the guild membership wrapper around a user.
type Member struct {
	User *User `json:"user,omitempty"`
}

// User identifies the actor behind an interaction.
type User struct {
	ID         snowflake.ID `json:"id"`
	Username   string       `json:"username,omitempty"`
	GlobalName string       `json:"global_name,omitempty"`
}

// DisplayName returns the user's global display name, falling back to the
// username.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}

	return u.Username
}

// Data carries the kind-specific payload of an interaction.
type Data struct {
	Name       string     `json:"name,omitempty"`
	Options    []Option   `json:"options,omitempty"`
	CustomID   string     `json:"custom_id,omitempty"`
	Values     []string   `json:"values,omitempty"`
	Components []ModalRow `json:"components,omitempty"`
}

// Option is a parsed command option. Value is left loosely typed because the
// wire format mixes strings, numbers and booleans.
type Option struct {
	Name    string   `json:"name"`
	Type    int      `json:"type"`
	Value   any      `json:"value,omitempty"`
	Options []Option `json:"options,omitempty"`
	Focused bool     `json:"focused,omitempty"`
}

// StringValue returns the option value as a string, or "" if it is absent or
// not a string.
func (o *Option) StringValue() string {
	s, _ := o.Value.(string)
	return s
}

// ModalRow is an action row inside a modal submission.
type ModalRow struct {
	Components []ModalComponent `json:"components,omitempty"`
}

// ModalComponent is a submitted modal field.
type ModalComponent struct {
	CustomID string `json:"custom_id"`
	Value    string `json:"value"`
}

// Actor returns the user behind the interaction. Guild interactions carry the
// user inside member, direct interactions carry it at the top level; the first
// non-empty source wins.
func (p *Payload) Actor() *User {
	if p.Member != nil && p.Member.User != nil && p.Member.User.ID != 0 {
		return p.Member.User
	}

	if p.User != nil && p.User.ID != 0 {
		return p.User
	}

	return nil
}

// ActorID returns the acting user's ID, or zero when no identity is present.
func (p *Payload) ActorID() snowflake.ID {
	if actor := p.Actor(); actor != nil {
		return actor.ID
	}

	return 0
}

// Subcommand returns the first subcommand option of a command interaction.
func (d *Data) Subcommand() *Option {
	for i := range d.Options {
		if d.Options[i].Type == OptionTypeSubcommand {
			return &d.Options[i]
		}
	}

	return nil
}

// FindOption finds a named option among the given options.
func FindOption(options []Option, name string) *Option {
	for i := range options {
		if options[i].Name == name {
			return &options[i]
		}
	}

	return nil
}

// FocusedOption locates the option currently being completed. Top-level
// options are scanned first, then one level of subcommand nesting.
func (d *Data) FocusedOption() *Option {
	for i := range d.Options {
		if d.Options[i].Focused {
			return &d.Options[i]
		}
	}

	for i := range d.Options {
		for j := range d.Options[i].Options {
			if d.Options[i].Options[j].Focused {
				return &d.Options[i].Options[j]
			}
		}
	}

	return nil
}

// ModalValue returns the submitted value of the modal field with the given
// custom ID.
func (d *Data) ModalValue(customID string) string {
	for _, row := range d.Components {
		for _, component := range row.Components {
			if component.CustomID == customID {
				return component.Value
			}
		}
	}

	return ""
}
