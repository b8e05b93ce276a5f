package domain

// FlakeID is the short logical name of a flake. It is unique within its
// parent scope, not globally.
type FlakeID string

// Flake is the materialized result of loading one dependency: its declared
// requirements plus the metadata derived from the fetch.
type Flake struct {
	ID          FlakeID
	Ref         FlakeRef
	Description string

	// Path is the local directory holding the fetched tree.
	Path string

	// RevCount is the total number of revisions, present only when the
	// fetch mechanism can report one (true for generic Git, false for
	// archive fetches).
	RevCount *uint64

	// Requires lists the declared flake requirements, in declaration order.
	Requires []FlakeRef

	// LockFile is the flake's own lock file subtree, if it ships one.
	LockFile *LockFile

	// NonFlakeRequires maps aliases to declared non-flake requirements.
	NonFlakeRequires map[string]FlakeRef

	// Outputs is the evaluated output value owned by the evaluator. It is
	// threaded through opaquely and never inspected here.
	Outputs any
}

// NonFlake is a dependency without further declared requirements.
type NonFlake struct {
	Alias string
	Ref   FlakeRef
	Path  string
}

// Dependencies is a node of the resolved dependency graph: one flake, its
// resolved flake requirements in declaration order, and its non-flake
// requirements. It is transient, computed fresh per resolution run, as
// opposed to the persisted LockFile.
type Dependencies struct {
	Flake        Flake
	FlakeDeps    []*Dependencies
	NonFlakeDeps []NonFlake
}
