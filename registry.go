package slash

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Registry maps command names to shared command instances.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: map[string]Command{}}
}

// RegistryWriter exposes the registration subset used by command loaders.
type RegistryWriter interface {
	Register(cmd Command) error
	Unregister(name string) bool
}

var _ RegistryWriter = (*Registry)(nil)

// ValidateName checks that name is usable as a command token.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("command name must not be empty")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("command name %q must not start with '/'", name)
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return fmt.Errorf("command name %q must be printable ASCII without spaces", name)
		}
	}
	return nil
}

// Register adds a command. Names are case-sensitive and must be unique.
func (r *Registry) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("register: nil command")
	}
	name := cmd.Name()
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("register: command %q already registered", name)
	}
	r.commands[name] = cmd
	return nil
}

// MustRegister registers cmd and panics on failure.
func (r *Registry) MustRegister(cmd Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// Unregister removes a command by name.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; !ok {
		return false
	}
	delete(r.commands, name)
	return true
}

// Lookup finds a command without building an error.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Resolve finds a command or reports UnknownCommand with close matches as hints.
func (r *Registry) Resolve(name string) (Command, error) {
	if cmd, ok := r.Lookup(name); ok {
		return cmd, nil
	}
	var hints []string
	for _, s := range r.Suggest(name, 3) {
		hints = append(hints, "did you mean /"+s+"?")
	}
	return nil, UnknownCommand(name, hints...)
}

// Suggest returns up to limit registered names close to name by edit distance.
func (r *Registry) Suggest(name string, limit int) []string {
	type candidate struct {
		name string
		dist int
	}
	maxDist := len(name) / 3
	if maxDist < 2 {
		maxDist = 2
	}
	var found []candidate
	for _, n := range r.Names() {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(n))
		if d <= maxDist {
			found = append(found, candidate{name: n, dist: d})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names
}

// Commands returns registered commands sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
