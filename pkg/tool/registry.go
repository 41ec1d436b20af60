package tool

// Registry is a read-only ordered collection of tool definitions, fixed at
// startup. Lookup is exact-match and case-sensitive; an unknown name is a
// normal runtime case for the dispatcher, not a registry error.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry builds a registry preserving declaration order. A later
// duplicate of a name is dropped.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if _, dup := r.index[d.Name]; dup {
			continue
		}
		r.index[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r
}

// Definitions returns every definition in declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Declarations returns the enabled definitions in declaration order. This is
// the set exported to the model during session setup; disabled tools stay
// resolvable by Lookup but are never declared.
func (r *Registry) Declarations() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }
