package ports

import "go.trai.ch/frost/internal/core/domain"

// Evaluation is the metadata a flake manifest declares.
type Evaluation struct {
	// ID is the logical name declared in the manifest. May be empty, in
	// which case the loader derives one from the reference.
	ID domain.FlakeID

	Description string

	// Requires lists the declared flake requirements in declaration order.
	Requires []domain.FlakeRef

	// NonFlakeRequires maps aliases to declared non-flake requirements.
	NonFlakeRequires map[string]domain.FlakeRef

	// Outputs is the declared output value, passed through opaquely.
	Outputs any
}

// Evaluator loads a fetched tree's flake manifest.
//
//go:generate mockgen -source=evaluator.go -destination=mocks/mock_evaluator.go -package=mocks
type Evaluator interface {
	// Load evaluates the manifest in the given subdirectory of a fetched
	// tree. Failures are reported as domain.ErrEvaluationFailure.
	Load(path, subdir string) (Evaluation, error)
}
