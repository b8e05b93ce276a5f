// Package registry persists flake registries as JSON files and merges the
// configured registry chain into a single lookup table.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	registryVersion = 1

	dirPerm  = 0o750
	filePerm = 0o600
)

// Store implements ports.RegistryStore over an ordered list of registry
// files. Earlier files take precedence: the user registry is listed before
// the system one.
type Store struct {
	Paths []string
}

// New creates a registry store reading from the given paths in order.
func New(paths ...string) *Store {
	return &Store{Paths: paths}
}

type registryFile struct {
	Version int        `json:"version"`
	Entries []entryDTO `json:"entries"`
}

type entryDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Load merges all configured registry files. The first entry found for an
// alias wins; later files cannot override it. Missing files are skipped.
func (s *Store) Load() (*domain.Registry, error) {
	merged := domain.NewRegistry()
	seen := make(map[string]bool)

	for _, path := range s.Paths {
		data, err := os.ReadFile(path) //nolint:gosec // paths are operator configuration
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrRegistryReadFailed, err.Error()), "path", path)
		}

		var file registryFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrRegistryReadFailed, "failed to parse registry file"), "path", path)
		}
		if file.Version != registryVersion {
			return nil, zerr.With(zerr.With(
				zerr.Wrap(domain.ErrRegistryReadFailed, "unsupported registry version"),
				"version", file.Version),
				"path", path,
			)
		}

		for _, dto := range file.Entries {
			from, err := domain.ParseFlakeRef(dto.From, false)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "invalid registry alias"), "path", path)
			}
			to, err := domain.ParseFlakeRef(dto.To, false)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "invalid registry target"), "path", path)
			}
			if from.Variant != domain.VariantAlias {
				return nil, zerr.With(zerr.With(
					zerr.Wrap(domain.ErrRegistryReadFailed, "registry entry source must be an alias"),
					"from", dto.From),
					"path", path,
				)
			}
			if seen[from.Alias] {
				continue
			}
			seen[from.Alias] = true
			merged.Entries = append(merged.Entries, domain.RegistryEntry{From: from, To: to})
		}
	}

	return merged, nil
}

// Save writes the registry to path, replacing it atomically.
func (s *Store) Save(reg *domain.Registry, path string) error {
	file := registryFile{Version: registryVersion, Entries: make([]entryDTO, len(reg.Entries))}
	for i, e := range reg.Entries {
		file.Entries[i] = entryDTO{From: e.From.String(), To: e.To.String()}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return zerr.Wrap(domain.ErrRegistryWriteFailed, err.Error())
	}
	data = append(data, '\n')

	if err := writeFileAtomic(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrRegistryWriteFailed, err.Error()), "path", path)
	}
	return nil
}

// writeFileAtomic writes data via a scratch file and rename, so readers
// never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ ports.RegistryStore = (*Store)(nil)
