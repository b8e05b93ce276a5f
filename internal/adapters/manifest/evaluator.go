// Package manifest loads flake manifests from fetched source trees.
package manifest

import (
	"os"
	"path/filepath"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Evaluator implements ports.Evaluator for YAML flake manifests.
type Evaluator struct{}

// New creates a manifest evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Load reads and parses the manifest in the given subdirectory of a fetched
// tree.
func (e *Evaluator) Load(path, subdir string) (ports.Evaluation, error) {
	manifestPath := filepath.Join(path, subdir, domain.ManifestFileName)
	data, err := os.ReadFile(manifestPath) //nolint:gosec // path comes from the fetch cache
	if err != nil {
		if os.IsNotExist(err) {
			return ports.Evaluation{}, zerr.With(zerr.With(
				zerr.Wrap(domain.ErrEvaluationFailure, "tree contains no flake manifest"),
				"kind", "missing-manifest"),
				"path", manifestPath,
			)
		}
		return ports.Evaluation{}, zerr.With(
			zerr.Wrap(domain.ErrEvaluationFailure, "failed to read flake manifest"),
			"path", manifestPath,
		)
	}

	var dto flakeFile
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return ports.Evaluation{}, zerr.With(zerr.With(
			zerr.Wrap(domain.ErrEvaluationFailure, "failed to parse flake manifest"),
			"kind", "invalid-manifest"),
			"path", manifestPath,
		)
	}

	eval := ports.Evaluation{
		ID:          domain.FlakeID(dto.ID),
		Description: dto.Description,
		Outputs:     dto.Outputs,
	}

	for _, raw := range dto.Requires {
		ref, err := domain.ParseFlakeRef(raw, false)
		if err != nil {
			return ports.Evaluation{}, zerr.With(zerr.Wrap(err, "invalid requirement in flake manifest"), "path", manifestPath)
		}
		eval.Requires = append(eval.Requires, ref)
	}

	if len(dto.NonFlakeRequires) > 0 {
		eval.NonFlakeRequires = make(map[string]domain.FlakeRef, len(dto.NonFlakeRequires))
		for alias, raw := range dto.NonFlakeRequires {
			ref, err := domain.ParseFlakeRef(raw, false)
			if err != nil {
				return ports.Evaluation{}, zerr.With(zerr.With(
					zerr.Wrap(err, "invalid non-flake requirement in flake manifest"),
					"alias", alias),
					"path", manifestPath,
				)
			}
			eval.NonFlakeRequires[alias] = ref
		}
	}

	return eval, nil
}

var _ ports.Evaluator = (*Evaluator)(nil)
