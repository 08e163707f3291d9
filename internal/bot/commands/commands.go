// Package commands holds the built-in chat commands.
package commands

import (
	"context"
	"slices"
	"strings"
	"time"

	"castbot/internal/bot"
	"castbot/internal/eventbus"
	"castbot/internal/profanity"
	"castbot/internal/storage"
	logx "castbot/pkg/logx"
)

// Notifier sends a chat acknowledgment. Delivery is best-effort and async.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Deps are the capabilities shared by all command handlers.
type Deps struct {
	Store  storage.Store
	Filter profanity.Filter
	Acks   Notifier
	Bus    eventbus.Bus
	Log    logx.Logger
}

// All returns every built-in command with the disabled list applied.
// Disabled commands stay registered so their names remain reserved.
func All(deps Deps, disabled []string) []bot.Command {
	cmds := []bot.Command{
		Ping(deps),
		Afterstream(deps),
		TTS(deps),
	}
	for i := range cmds {
		if slices.Contains(disabled, cmds[i].Name) {
			cmds[i].Enabled = false
		}
	}
	return cmds
}

func Ping(deps Deps) bot.Command {
	return bot.Command{
		Name:        "ping",
		Description: "Liveness check.",
		Usage:       "!ping",
		Enabled:     true,
		Handle: func(ctx context.Context, _ bot.Request) error {
			deps.ack(ctx, "Pong!")
			return nil
		},
	}
}

func Afterstream(deps Deps) bot.Command {
	return bot.Command{
		Name:        "afterstream",
		Description: "Leave a note for the streamer to read after the stream.",
		Usage:       "!afterstream <message>",
		Enabled:     true,
		Handle: func(ctx context.Context, req bot.Request) error {
			msg := strings.Join(req.Args, " ")
			if strings.TrimSpace(msg) == "" {
				deps.ack(ctx, "Usage: !afterstream <message>")
				return nil
			}
			if _, err := deps.Store.CreateAfterstreamNote(ctx, msg, time.Now()); err != nil {
				return err
			}
			deps.ack(ctx, "Message has been logged.")
			return nil
		},
	}
}

func TTS(deps Deps) bot.Command {
	return bot.Command{
		Name:        "tts",
		Description: "Queue a message for text-to-speech playback on stream.",
		Usage:       "!tts <message>",
		Enabled:     true,
		Handle: func(ctx context.Context, req bot.Request) error {
			msg := strings.Join(req.Args, " ")
			if strings.TrimSpace(msg) == "" {
				return nil
			}
			// Profane input is silently dropped; no feedback to the chat.
			if deps.Filter != nil && deps.Filter.Matches(msg) {
				deps.Log.Debug("tts request filtered", logx.String("user", req.User))
				return nil
			}
			r, err := deps.Store.CreateTTSRequest(ctx, req.User, msg, time.Now())
			if err != nil {
				return err
			}
			if deps.Bus != nil {
				deps.Bus.Publish(eventbus.Event{
					Type: eventbus.EventTTSQueued,
					Data: r,
				})
			}
			return nil
		},
	}
}

// ack enqueues a chat reply without failing the command on delivery errors.
func (d Deps) ack(ctx context.Context, text string) {
	if d.Acks == nil {
		return
	}
	if err := d.Acks.Notify(ctx, text); err != nil {
		d.Log.Warn("ack enqueue failed", logx.Err(err), logx.String("text", text))
	}
}
