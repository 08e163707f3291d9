package bot

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrDuplicateCommand = errors.New("duplicate command")

// Registry holds the installed commands, keyed by lowercase name.
// Registration happens once at startup; lookups are concurrent.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{cmds: map[string]Command{}}
}

func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return errors.New("command name is required")
	}
	if cmd.Handle == nil {
		return errors.New("command " + name + " has no handler")
	}
	cmd.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cmds[name]; exists {
		return ErrDuplicateCommand
	}
	r.cmds[name] = cmd
	return nil
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[strings.ToLower(name)]
	return cmd, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
