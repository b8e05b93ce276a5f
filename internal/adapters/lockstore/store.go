// Package lockstore persists lock files as JSON. References are stored in
// structured form rather than rendered strings, so a pin keeps both its
// symbolic name and its revision across a round trip.
package lockstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/frost/internal/core/domain"
	"go.trai.ch/frost/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	lockFileVersion = 1

	dirPerm  = 0o750
	filePerm = 0o600
)

// Store implements ports.LockStore over JSON files.
type Store struct{}

// New creates a lock store.
func New() *Store {
	return &Store{}
}

type lockFileDTO struct {
	Version   int                  `json:"version"`
	Flakes    map[string]entryDTO  `json:"flakes,omitempty"`
	NonFlakes map[string]refDTO    `json:"nonFlakes,omitempty"`
}

type entryDTO struct {
	Ref       refDTO              `json:"ref"`
	Flakes    map[string]entryDTO `json:"flakes,omitempty"`
	NonFlakes map[string]refDTO   `json:"nonFlakes,omitempty"`
}

// refDTO mirrors domain.FlakeRef field for field. The variant is stored as a
// stable name, not the internal enum value.
type refDTO struct {
	Type    string `json:"type"`
	Alias   string `json:"alias,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Repo    string `json:"repo,omitempty"`
	URI     string `json:"uri,omitempty"`
	Path    string `json:"path,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Rev     string `json:"rev,omitempty"`
	NarHash string `json:"narHash,omitempty"`
	Subdir  string `json:"subdir,omitempty"`
}

var variantNames = map[domain.RefVariant]string{
	domain.VariantAlias:  "indirect",
	domain.VariantGitHub: "github",
	domain.VariantGit:    "git",
	domain.VariantPath:   "path",
}

var variantValues = map[string]domain.RefVariant{
	"indirect": domain.VariantAlias,
	"github":   domain.VariantGitHub,
	"git":      domain.VariantGit,
	"path":     domain.VariantPath,
}

// Load reads the lock file at path. A missing file yields an empty lock.
func (s *Store) Load(path string) (*domain.LockFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the fetch cache or the workspace
	if os.IsNotExist(err) {
		return domain.NewLockFile(), nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockReadFailed, err.Error()), "path", path)
	}

	var dto lockFileDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockReadFailed, "failed to parse lock file"), "path", path)
	}
	if dto.Version != lockFileVersion {
		return nil, zerr.With(zerr.With(
			zerr.Wrap(domain.ErrLockReadFailed, "unsupported lock file version"),
			"version", dto.Version),
			"path", path,
		)
	}

	lock := domain.NewLockFile()
	if lock.FlakeEntries, err = decodeEntries(dto.Flakes); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	if lock.NonFlakeEntries, err = decodeRefs(dto.NonFlakes); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return lock, nil
}

// Save writes the lock file to path, replacing it atomically.
func (s *Store) Save(lock *domain.LockFile, path string) error {
	dto := lockFileDTO{
		Version:   lockFileVersion,
		Flakes:    encodeEntries(lock.FlakeEntries),
		NonFlakes: encodeRefs(lock.NonFlakeEntries),
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return zerr.Wrap(domain.ErrLockWriteFailed, err.Error())
	}
	data = append(data, '\n')

	if err := writeFileAtomic(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrLockWriteFailed, err.Error()), "path", path)
	}
	return nil
}

func encodeEntries(entries map[domain.FlakeID]*domain.FlakeEntry) map[string]entryDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]entryDTO, len(entries))
	for id, entry := range entries {
		out[string(id)] = entryDTO{
			Ref:       encodeRef(entry.Ref),
			Flakes:    encodeEntries(entry.FlakeEntries),
			NonFlakes: encodeRefs(entry.NonFlakeEntries),
		}
	}
	return out
}

func encodeRefs(refs map[domain.FlakeID]domain.FlakeRef) map[string]refDTO {
	if len(refs) == 0 {
		return nil
	}
	out := make(map[string]refDTO, len(refs))
	for id, ref := range refs {
		out[string(id)] = encodeRef(ref)
	}
	return out
}

func encodeRef(ref domain.FlakeRef) refDTO {
	return refDTO{
		Type:    variantNames[ref.Variant],
		Alias:   ref.Alias,
		Owner:   ref.Owner,
		Repo:    ref.Repo,
		URI:     ref.URI,
		Path:    ref.Path,
		Ref:     ref.Ref,
		Rev:     ref.Rev,
		NarHash: ref.NarHash,
		Subdir:  ref.Subdir,
	}
}

func decodeEntries(dtos map[string]entryDTO) (map[domain.FlakeID]*domain.FlakeEntry, error) {
	out := make(map[domain.FlakeID]*domain.FlakeEntry, len(dtos))
	for id, dto := range dtos {
		ref, err := decodeRef(dto.Ref)
		if err != nil {
			return nil, err
		}
		entry := domain.NewFlakeEntry(ref)
		if entry.FlakeEntries, err = decodeEntries(dto.Flakes); err != nil {
			return nil, err
		}
		if entry.NonFlakeEntries, err = decodeRefs(dto.NonFlakes); err != nil {
			return nil, err
		}
		out[domain.FlakeID(id)] = entry
	}
	return out, nil
}

func decodeRefs(dtos map[string]refDTO) (map[domain.FlakeID]domain.FlakeRef, error) {
	out := make(map[domain.FlakeID]domain.FlakeRef, len(dtos))
	for id, dto := range dtos {
		ref, err := decodeRef(dto)
		if err != nil {
			return nil, err
		}
		out[domain.FlakeID(id)] = ref
	}
	return out, nil
}

func decodeRef(dto refDTO) (domain.FlakeRef, error) {
	variant, ok := variantValues[dto.Type]
	if !ok {
		return domain.FlakeRef{}, zerr.With(
			zerr.Wrap(domain.ErrLockReadFailed, "unknown reference type in lock file"),
			"type", dto.Type,
		)
	}
	return domain.FlakeRef{
		Variant: variant,
		Alias:   dto.Alias,
		Owner:   dto.Owner,
		Repo:    dto.Repo,
		URI:     dto.URI,
		Path:    dto.Path,
		Ref:     dto.Ref,
		Rev:     dto.Rev,
		NarHash: dto.NarHash,
		Subdir:  dto.Subdir,
	}, nil
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

var _ ports.LockStore = (*Store)(nil)
