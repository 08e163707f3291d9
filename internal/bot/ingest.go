package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"
	"sync"

	"castbot/internal/transport"
	logx "castbot/pkg/logx"
)

// IngestResult is the transport-agnostic verdict on a webhook delivery.
type IngestResult int

const (
	// IngestForbidden: the path secret did not match.
	IngestForbidden IngestResult = iota
	// IngestBadRequest: the payload could not be decoded.
	IngestBadRequest
	// IngestIgnored: valid delivery, nothing to do (non-chat event, bot
	// author, or a message without the command prefix).
	IngestIgnored
	// IngestHandled: a command ran successfully.
	IngestHandled
	// IngestUnknownCommand: prefixed message named no dispatchable command.
	IngestUnknownCommand
	// IngestFailed: the command handler returned an error.
	IngestFailed
)

// Ingest authenticates webhook deliveries and parses chat messages into
// command dispatches.
type Ingest struct {
	secret string
	router *Router
	log    logx.Logger

	mu     sync.RWMutex
	prefix string
}

func NewIngest(secret, prefix string, router *Router, log logx.Logger) *Ingest {
	if prefix == "" {
		prefix = "!"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Ingest{secret: secret, prefix: prefix, router: router, log: log}
}

// SetPrefix swaps the command prefix at runtime (config hot reload).
func (in *Ingest) SetPrefix(prefix string) {
	if prefix == "" {
		return
	}
	in.mu.Lock()
	in.prefix = prefix
	in.mu.Unlock()
}

func (in *Ingest) Prefix() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.prefix
}

// HandleWebhook processes one raw delivery. Malformed input is reported as a
// result, never as a panic or crash.
func (in *Ingest) HandleWebhook(ctx context.Context, secret string, body []byte) IngestResult {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(in.secret)) != 1 {
		in.log.Warn("webhook rejected: bad secret")
		return IngestForbidden
	}

	var ev transport.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		in.log.Warn("webhook payload undecodable", logx.Err(err))
		return IngestBadRequest
	}

	if ev.Type != transport.EventTypeChat {
		return IngestIgnored
	}
	if ev.EventData.User.IsBot {
		return IngestIgnored
	}

	prefix := in.Prefix()
	raw := ev.EventData.RawBody
	if !strings.HasPrefix(raw, prefix) {
		return IngestIgnored
	}

	tokens := strings.Fields(strings.TrimPrefix(raw, prefix))
	if len(tokens) == 0 {
		return IngestIgnored
	}
	name := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch in.router.Dispatch(ctx, name, ev.EventData.User.DisplayName, args) {
	case OutcomeSuccess:
		return IngestHandled
	case OutcomeNotFound:
		return IngestUnknownCommand
	default:
		return IngestFailed
	}
}
