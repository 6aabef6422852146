// Package deps maps mutation names to the query-name patterns whose cached
// results they invalidate.
package deps

import (
	"sort"
	"strings"
	"sync"

	"github.com/strand/strand-go/src/strand/pattern"
)

// Registry is a thread-safe mutation-to-invalidation-pattern registry.
// Mutation names and patterns are case-insensitive.
type Registry struct {
	mutex sync.RWMutex
	rules map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: map[string]map[string]struct{}{},
	}
}

// Define unions the given query-name patterns into the set registered for
// the mutation.
func (r *Registry) Define(mutation string, patterns ...string) {
	if mutation == "" {
		panic("mutation name must not be empty")
	}

	mutation = strings.ToLower(mutation)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	set, ok := r.rules[mutation]
	if !ok {
		set = map[string]struct{}{}
		r.rules[mutation] = set
	}

	for _, p := range patterns {
		if p == "" {
			panic("invalidation pattern must not be empty")
		}
		set[strings.ToLower(p)] = struct{}{}
	}
}

// QueriesToInvalidate returns a snapshot of the patterns registered for the
// mutation, sorted for deterministic iteration.
func (r *Registry) QueriesToInvalidate(mutation string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	set := r.rules[strings.ToLower(mutation)]
	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)

	return out
}

// Expand resolves a pattern against a candidate key set. A pattern without
// wildcards is treated as a literal query name and returned unchanged;
// otherwise the matching subset of candidates is returned.
func (r *Registry) Expand(p string, candidates []string) []string {
	if !pattern.HasWildcard(p) {
		return []string{p}
	}

	m := pattern.CompileFold(p)

	var out []string
	for _, c := range candidates {
		if m.Match(c) {
			out = append(out, c)
		}
	}

	return out
}

// Remove clears the patterns registered for the mutation.
func (r *Registry) Remove(mutation string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.rules, strings.ToLower(mutation))
}

// Clear removes every registered rule.
func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.rules = map[string]map[string]struct{}{}
}
