package domain

import "go.trai.ch/zerr"

// FlakeEntry is one pinned dependency in a lock file, together with the pins
// of its own sub-dependencies.
type FlakeEntry struct {
	Ref             FlakeRef
	FlakeEntries    map[FlakeID]*FlakeEntry
	NonFlakeEntries map[FlakeID]FlakeRef
}

// NewFlakeEntry creates an entry pinning the given reference.
func NewFlakeEntry(ref FlakeRef) *FlakeEntry {
	return &FlakeEntry{
		Ref:             ref,
		FlakeEntries:    make(map[FlakeID]*FlakeEntry),
		NonFlakeEntries: make(map[FlakeID]FlakeRef),
	}
}

// LockFile is the persisted, fully pinned snapshot of a dependency graph.
// Every reference it stores must be immutable.
type LockFile struct {
	FlakeEntries    map[FlakeID]*FlakeEntry
	NonFlakeEntries map[FlakeID]FlakeRef
}

// NewLockFile creates an empty lock file.
func NewLockFile() *LockFile {
	return &LockFile{
		FlakeEntries:    make(map[FlakeID]*FlakeEntry),
		NonFlakeEntries: make(map[FlakeID]FlakeRef),
	}
}

// IsEmpty reports whether the lock file pins nothing.
func (l *LockFile) IsEmpty() bool {
	return len(l.FlakeEntries) == 0 && len(l.NonFlakeEntries) == 0
}

// UpdateLockFile computes a new lock file from a freshly resolved dependency
// graph, diffed against the previous lock file. A previous pin is kept
// unchanged, subtree included, when the currently declared requirement still
// contains it and it is still immutable; everything else is re-pinned from
// the resolved graph. Unrelated updates therefore never perturb
// already-satisfied pins.
func UpdateLockFile(deps *Dependencies, prev *LockFile) (*LockFile, error) {
	if prev == nil {
		prev = NewLockFile()
	}
	lock := NewLockFile()
	err := fillLockEntries(deps, prev.FlakeEntries, prev.NonFlakeEntries, lock.FlakeEntries, lock.NonFlakeEntries)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func fillLockEntries(
	deps *Dependencies,
	prevFlakes map[FlakeID]*FlakeEntry,
	prevNonFlakes map[FlakeID]FlakeRef,
	outFlakes map[FlakeID]*FlakeEntry,
	outNonFlakes map[FlakeID]FlakeRef,
) error {
	for i, child := range deps.FlakeDeps {
		id := child.Flake.ID
		var req FlakeRef
		if i < len(deps.Flake.Requires) {
			req = deps.Flake.Requires[i]
		}

		if prevEntry, ok := prevFlakes[id]; ok && req.Contains(prevEntry.Ref) && prevEntry.Ref.IsImmutable() {
			outFlakes[id] = prevEntry
			continue
		}

		if !child.Flake.Ref.IsImmutable() {
			return zerr.With(zerr.With(zerr.Wrap(ErrLockInvariant, ""), "ref", child.Flake.Ref.String()), "id", string(id))
		}
		entry := NewFlakeEntry(child.Flake.Ref)
		var subPrevFlakes map[FlakeID]*FlakeEntry
		var subPrevNonFlakes map[FlakeID]FlakeRef
		if prevEntry, ok := prevFlakes[id]; ok {
			subPrevFlakes = prevEntry.FlakeEntries
			subPrevNonFlakes = prevEntry.NonFlakeEntries
		}
		if err := fillLockEntries(child, subPrevFlakes, subPrevNonFlakes, entry.FlakeEntries, entry.NonFlakeEntries); err != nil {
			return err
		}
		outFlakes[id] = entry
	}

	for _, nf := range deps.NonFlakeDeps {
		id := FlakeID(nf.Alias)
		req := deps.Flake.NonFlakeRequires[nf.Alias]

		if prevRef, ok := prevNonFlakes[id]; ok && req.Contains(prevRef) && prevRef.IsImmutable() {
			outNonFlakes[id] = prevRef
			continue
		}
		if !nf.Ref.IsImmutable() {
			return zerr.With(zerr.With(zerr.Wrap(ErrLockInvariant, ""), "ref", nf.Ref.String()), "id", string(id))
		}
		outNonFlakes[id] = nf.Ref
	}

	return nil
}
