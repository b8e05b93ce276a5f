package domain

import "go.trai.ch/zerr"

var (
	// ErrBadFlakeRef is returned when a flake reference string is malformed
	// or uses an unrecognized scheme.
	ErrBadFlakeRef = zerr.New("bad flake reference")

	// ErrMissingFlake is returned when a registry alias has no entry or a
	// direct fetch target does not exist.
	ErrMissingFlake = zerr.New("flake not found")

	// ErrRegistryCycle is returned when an alias chain exceeds the
	// substitution bound, which means the registry aliases form a loop.
	ErrRegistryCycle = zerr.New("registry alias chain does not terminate")

	// ErrDependencyCycle is returned when a flake transitively requires itself.
	ErrDependencyCycle = zerr.New("dependency cycle detected")

	// ErrPurityViolation is returned when a mutable reference is resolved
	// in a position that requires immutability.
	ErrPurityViolation = zerr.New("mutable flake reference not allowed in pure mode")

	// ErrFetchFailure is returned when the fetch gateway fails to materialize
	// a source tree.
	ErrFetchFailure = zerr.New("failed to fetch flake source")

	// ErrEvaluationFailure is returned when a fetched tree's flake manifest
	// cannot be evaluated.
	ErrEvaluationFailure = zerr.New("failed to evaluate flake")

	// ErrLockInvariant is returned when a lock file entry would not be
	// immutable. Purity enforcement during resolution should make this
	// unreachable.
	ErrLockInvariant = zerr.New("lock file entry is not immutable")

	// ErrRegistryReadFailed is returned when a registry file cannot be read or parsed.
	ErrRegistryReadFailed = zerr.New("failed to read registry file")

	// ErrRegistryWriteFailed is returned when a registry file cannot be written.
	ErrRegistryWriteFailed = zerr.New("failed to write registry file")

	// ErrLockReadFailed is returned when a lock file cannot be read or parsed.
	ErrLockReadFailed = zerr.New("failed to read lock file")

	// ErrLockWriteFailed is returned when a lock file cannot be written.
	ErrLockWriteFailed = zerr.New("failed to write lock file")
)
