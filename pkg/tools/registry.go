package tools

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry holds the tools the model may call. Registration is guarded by a
// mutex; reads go through an atomically swapped snapshot so the conversation
// loop sees a stable tool set for the duration of a turn.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// Snapshot is an immutable view of the registry at one point in time.
type Snapshot struct {
	byName map[string]Tool
	names  []string
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(&Snapshot{byName: map[string]Tool{}})
	return r
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.snap.Load()
	next := make(map[string]Tool, len(old.byName)+1)
	for k, v := range old.byName {
		next[k] = v
	}
	next[t.Name] = t
	names := make([]string, 0, len(next))
	for k := range next {
		names = append(names, k)
	}
	sort.Strings(names)
	r.snap.Store(&Snapshot{byName: next, names: names})
	return nil
}

// MustRegister panics on invalid tools; for static setup code.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(fmt.Sprintf("tools: %v", err))
	}
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Tools returns all tools in name order.
func (s *Snapshot) Tools() []Tool {
	out := make([]Tool, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[name])
	}
	return out
}

// Lookup finds a tool by its registered name.
func (s *Snapshot) Lookup(name string) (Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Empty reports whether no tools are registered.
func (s *Snapshot) Empty() bool { return len(s.byName) == 0 }

// Len returns the number of registered tools.
func (s *Snapshot) Len() int { return len(s.byName) }
