package domain

import "go.trai.ch/zerr"

// MaxRegistryWalk bounds the number of alias substitutions performed while
// resolving an indirect reference. Alias chains longer than this are treated
// as loops.
const MaxRegistryWalk = 32

// RegistryEntry substitutes an alias reference with a concrete (or further
// aliased) reference.
type RegistryEntry struct {
	From FlakeRef
	To   FlakeRef
}

// Registry is an ordered alias-to-reference mapping used for indirection.
// Entry order is the lookup order: the first entry matching an alias wins.
type Registry struct {
	Entries []RegistryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Lookup returns the target of the first entry for the given alias name.
func (r *Registry) Lookup(alias string) (FlakeRef, bool) {
	for _, e := range r.Entries {
		if e.From.Variant == VariantAlias && e.From.Alias == alias {
			return e.To, true
		}
	}
	return FlakeRef{}, false
}

// Add appends a substitution, replacing an existing entry for the same alias.
func (r *Registry) Add(from, to FlakeRef) {
	for i, e := range r.Entries {
		if e.From.Variant == VariantAlias && from.Variant == VariantAlias && e.From.Alias == from.Alias {
			r.Entries[i] = RegistryEntry{From: from, To: to}
			return
		}
	}
	r.Entries = append(r.Entries, RegistryEntry{From: from, To: to})
}

// Remove deletes the entry for the given alias name. It reports whether an
// entry was removed.
func (r *Registry) Remove(alias string) bool {
	for i, e := range r.Entries {
		if e.From.Variant == VariantAlias && e.From.Alias == alias {
			r.Entries = append(r.Entries[:i], r.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve chases aliases until the reference is direct. A ref, rev or subdir
// override carried by an alias takes precedence over the same field on the
// target it resolves to. Missing aliases fail with ErrMissingFlake; chains
// exceeding MaxRegistryWalk fail with ErrRegistryCycle.
func (r *Registry) Resolve(ref FlakeRef) (FlakeRef, error) {
	current := ref
	for range MaxRegistryWalk {
		if current.IsDirect() {
			return current, nil
		}
		target, ok := r.Lookup(current.Alias)
		if !ok {
			return FlakeRef{}, zerr.With(zerr.Wrap(ErrMissingFlake, ""), "ref", current.String())
		}
		if current.Ref != "" {
			target.Ref = current.Ref
		}
		if current.Rev != "" {
			target.Rev = current.Rev
		}
		if current.Subdir != "" {
			target.Subdir = current.Subdir
		}
		current = target
	}
	// The bound counts substitutions, so a chain that becomes direct on the
	// last one still resolves.
	if current.IsDirect() {
		return current, nil
	}
	return FlakeRef{}, zerr.With(zerr.Wrap(ErrRegistryCycle, ""), "ref", ref.String())
}
