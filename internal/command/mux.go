package command

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Responder is the reply surface the chat-platform collaborator exposes for
// one invocation: an initial reply, progress edits to it, and a final
// follow-up message.
type Responder interface {
	Reply(ctx context.Context, text string) error
	Edit(ctx context.Context, text string) error
	Followup(ctx context.Context, text string) error
}

// Invocation is one inbound command from the chat platform.
type Invocation struct {
	Command  string
	Args     []string
	UserID   string
	UserName string
	Channel  string
	Roles    []string
}

// Arg returns the positional argument at i, or "".
func (inv Invocation) Arg(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// HandlerFunc processes one invocation.
type HandlerFunc func(ctx context.Context, inv Invocation, resp Responder) error

// Mux routes command names to handlers.
type Mux struct {
	handlers map[string]HandlerFunc
	logger   zerolog.Logger
}

// NewMux constructs an empty command mux.
func NewMux(logger zerolog.Logger) *Mux {
	return &Mux{
		handlers: make(map[string]HandlerFunc),
		logger:   logger.With().Str("component", "commands").Logger(),
	}
}

// Handle registers a handler under a command name.
func (m *Mux) Handle(name string, handler HandlerFunc) {
	m.handlers[name] = handler
}

// Dispatch routes one invocation to its handler.
func (m *Mux) Dispatch(ctx context.Context, inv Invocation, resp Responder) error {
	handler, ok := m.handlers[inv.Command]
	if !ok {
		return fmt.Errorf("unknown command %q", inv.Command)
	}

	m.logger.Debug().
		Str("command", inv.Command).
		Str("user", inv.UserID).
		Msg("dispatching command")

	if err := handler(ctx, inv, resp); err != nil {
		m.logger.Error().Err(err).Str("command", inv.Command).Msg("command handler failed")
		return err
	}
	return nil
}

// Commands lists registered command names, sorted.
func (m *Mux) Commands() []string {
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
