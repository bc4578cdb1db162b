package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds registered commands.
type Registry struct {
	mu      sync.RWMutex
	primary map[string]Command // primary names only
	lookup  map[string]Command // names and aliases
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		primary: make(map[string]Command),
		lookup:  make(map[string]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already taken.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{c.Name()}, c.Aliases()...)
	for _, name := range names {
		if _, exists := r.lookup[name]; exists {
			return fmt.Errorf("command name already registered: %s", name)
		}
	}

	r.primary[c.Name()] = c
	for _, name := range names {
		r.lookup[name] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.lookup[name]
	return cmd, ok
}

// Suggest returns the command a mistyped name most likely meant: the only
// command whose name or alias starts with it.
func (r *Registry) Suggest(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var match Command
	for key, cmd := range r.lookup {
		if !strings.HasPrefix(key, name) {
			continue
		}
		if match != nil && match.Name() != cmd.Name() {
			return "", false
		}
		match = cmd
	}
	if match == nil {
		return "", false
	}
	return match.Name(), true
}

// All returns all commands sorted by primary name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.primary))
	for name := range r.primary {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = r.primary[name]
	}
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
