package bot

import (
	"context"

	logx "castbot/pkg/logx"
)

// Outcome classifies a dispatch so transport code can map it to a status.
type Outcome int

const (
	// OutcomeSuccess: the handler ran and returned nil.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound: no such command, or the command is disabled.
	OutcomeNotFound
	// OutcomeInternalError: the handler ran and returned an error.
	OutcomeInternalError
)

type Router struct {
	reg *Registry
	log logx.Logger
}

func NewRouter(reg *Registry, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{reg: reg, log: log}
}

// Dispatch runs the named command at most once. Handler failures are logged
// here and never retried.
func (rt *Router) Dispatch(ctx context.Context, name, user string, args []string) Outcome {
	cmd, ok := rt.reg.Lookup(name)
	if !ok || !cmd.Enabled {
		// Disabled commands are indistinguishable from unknown ones.
		rt.log.Debug("unknown command", logx.String("command", name), logx.String("user", user))
		return OutcomeNotFound
	}

	if err := cmd.Handle(ctx, Request{User: user, Args: args}); err != nil {
		rt.log.Error("command failed",
			logx.String("command", cmd.Name),
			logx.String("user", user),
			logx.Err(err))
		return OutcomeInternalError
	}

	rt.log.Debug("command handled", logx.String("command", cmd.Name), logx.String("user", user))
	return OutcomeSuccess
}
