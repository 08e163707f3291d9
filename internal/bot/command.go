// Package bot implements the chat command surface: a registry of named
// commands, a router that dispatches to them, and the webhook ingest that
// turns raw Owncast events into dispatches.
package bot

import "context"

// Request is a parsed command invocation.
type Request struct {
	// User is the display name of the chat user who sent the command.
	User string
	// Args are the whitespace-separated tokens after the command name.
	Args []string
}

type HandlerFunc func(ctx context.Context, req Request) error

type Command struct {
	Name        string
	Description string
	Usage       string
	// Enabled is static configuration applied at registration time.
	// A disabled command dispatches exactly like an unknown one.
	Enabled bool
	Handle  HandlerFunc
}
