package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"go.uber.org/zap"
)

var ErrUnknownInteractionType = errors.New("unknown interaction type")

// Rate limit classes consulted through the advisor.
const (
	ClassCommand      = "command"
	ClassAutocomplete = "autocomplete"
)

// Handler produces the single response envelope for an interaction. Handlers
// communicate business failures through response content, never through HTTP
// errors, because the webhook protocol expects 200 regardless of outcome.
type Handler func(ctx context.Context, p *Payload) *discord.InteractionResponse

// AutocompleteHandler resolves suggestion pairs for the focused option.
type AutocompleteHandler func(ctx context.Context, p *Payload, focused *Option) ([]discord.AutocompleteChoice, error)

// Advisor observes request counts per actor and action class. It is advisory
// pass-through infrastructure and must never block dispatch.
type Advisor interface {
	Observe(ctx context.Context, actorID uint64, class string)
}

// prefixRoute pairs an action-token prefix with its handler. Routes are
// evaluated in registration order, falling through to an unknown-action
// default, which keeps the prefix-matching concern in one testable place.
type prefixRoute struct {
	prefix  string
	handler Handler
}

// Router classifies inbound interactions by type and dispatches to the
// matching handler. It only classifies and forwards; business logic lives in
// the handlers.
type Router struct {
	commands     map[string]Handler
	components   []prefixRoute
	modals       []prefixRoute
	autocomplete AutocompleteHandler
	advisor      Advisor
	logger       *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		commands: make(map[string]Handler),
		logger:   logger.Named("router"),
	}
}

// Command registers a handler for an exact subcommand name.
func (r *Router) Command(name string, handler Handler) {
	r.commands[name] = handler
}

// Component registers a handler for a component action-token prefix.
func (r *Router) Component(prefix string, handler Handler) {
	r.components = append(r.components, prefixRoute{prefix: prefix, handler: handler})
}

// Modal registers a handler for a modal action-token prefix.
func (r *Router) Modal(prefix string, handler Handler) {
	r.modals = append(r.modals, prefixRoute{prefix: prefix, handler: handler})
}

// Autocomplete registers the suggestion resolver.
func (r *Router) Autocomplete(handler AutocompleteHandler) {
	r.autocomplete = handler
}

// UseAdvisor attaches the advisory rate limit observer.
func (r *Router) UseAdvisor(advisor Advisor) {
	r.advisor = advisor
}

// Handle dispatches a verified payload and returns exactly one response
// envelope. An error is returned only for payloads whose type is not part of
// the protocol; everything else resolves to a well-formed envelope.
func (r *Router) Handle(ctx context.Context, p *Payload) (*discord.InteractionResponse, error) {
	switch p.Type {
	case TypePing:
		return &discord.InteractionResponse{Type: discord.InteractionResponseTypePong}, nil
	case TypeCommand:
		return r.handleCommand(ctx, p), nil
	case TypeAutocomplete:
		return r.handleAutocomplete(ctx, p), nil
	case TypeComponent:
		r.observe(ctx, p, ClassCommand)
		return r.handlePrefix(ctx, p, r.components, "Unknown button action."), nil
	case TypeModalSubmit:
		r.observe(ctx, p, ClassCommand)
		return r.handlePrefix(ctx, p, r.modals, "Unknown modal action."), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownInteractionType, p.Type)
	}
}

func (r *Router) handleCommand(ctx context.Context, p *Payload) *discord.InteractionResponse {
	if p.ActorID() == 0 {
		return Ephemeral("User not identified.")
	}

	r.observe(ctx, p, ClassCommand)

	if p.Data == nil {
		return Ephemeral("Missing subcommand.")
	}

	sub := p.Data.Subcommand()
	if sub == nil {
		return Ephemeral("Missing subcommand.")
	}

	handler, ok := r.commands[sub.Name]
	if !ok {
		return Ephemeral(fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}

	return handler(ctx, p)
}

// handleAutocomplete resolves suggestions for the focused option. Failures
// must never surface as user-visible errors, so every unhappy path collapses
// into an empty suggestion list.
func (r *Router) handleAutocomplete(ctx context.Context, p *Payload) *discord.InteractionResponse {
	r.observe(ctx, p, ClassAutocomplete)

	empty := &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeAutocompleteResult,
		Data: discord.AutocompleteResult{Choices: []discord.AutocompleteChoice{}},
	}

	if r.autocomplete == nil || p.Data == nil {
		return empty
	}

	focused := p.Data.FocusedOption()
	if focused == nil {
		return empty
	}

	choices, err := r.autocomplete(ctx, p, focused)
	if err != nil {
		r.logger.Debug("Autocomplete lookup failed", zap.Error(err))
		return empty
	}

	if choices == nil {
		choices = []discord.AutocompleteChoice{}
	}

	return &discord.InteractionResponse{
		Type: discord.InteractionResponseTypeAutocompleteResult,
		Data: discord.AutocompleteResult{Choices: choices},
	}
}

// handlePrefix dispatches purely on the action-token prefix, never inferring
// intent from anything else in the payload.
func (r *Router) handlePrefix(
	ctx context.Context, p *Payload, routes []prefixRoute, unknownMessage string,
) *discord.InteractionResponse {
	if p.Data != nil {
		for _, route := range routes {
			if strings.HasPrefix(p.Data.CustomID, route.prefix) {
				return route.handler(ctx, p)
			}
		}
	}

	return Ephemeral(unknownMessage)
}

func (r *Router) observe(ctx context.Context, p *Payload, class string) {
	if r.advisor == nil {
		return
	}

	if actorID := p.ActorID(); actorID != 0 {
		r.advisor.Observe(ctx, uint64(actorID), class)
	}
}
