package metadata

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownRuleSet is returned by Lookup for a name with no rule set.
var ErrUnknownRuleSet = errors.New("unknown rule set")

type Registry struct {
	mu   sync.RWMutex
	sets map[string]*CompiledRuleSet
}

func NewRegistry() *Registry {
	return &Registry{
		sets: make(map[string]*CompiledRuleSet),
	}
}

// Get returns the rule set with the given name, or nil.
func (r *Registry) Get(name string) *CompiledRuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sets[name]
}

// Lookup is Get with an error for unknown names.
func (r *Registry) Lookup(name string) (*CompiledRuleSet, error) {
	if rs := r.Get(name); rs != nil {
		return rs, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRuleSet, name)
}

// All returns every registered rule set ordered by name.
func (r *Registry) All() []*CompiledRuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sets := make([]*CompiledRuleSet, 0, len(r.sets))
	for _, rs := range r.sets {
		sets = append(sets, rs)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets
}

// Put adds or replaces a rule set.
func (r *Registry) Put(rs *CompiledRuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[rs.Name] = rs
}

// PutIfAbsent adds rs unless a rule set with the same name exists. It
// reports whether rs was added.
func (r *Registry) PutIfAbsent(rs *CompiledRuleSet) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sets[rs.Name]; ok {
		return false
	}
	r.sets[rs.Name] = rs
	return true
}

// Delete removes a rule set and reports whether it existed.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sets[name]
	delete(r.sets, name)
	return ok
}

// Load replaces all rule sets in the registry.
// Called during startup and on reload.
func (r *Registry) Load(sets []*CompiledRuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sets = make(map[string]*CompiledRuleSet, len(sets))
	for _, rs := range sets {
		r.sets[rs.Name] = rs
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}
