package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/frost/internal/adapters/manifest"
	"go.trai.ch/frost/internal/core/domain"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte(content), 0o600))
}

func TestLoad_FullManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
id: app
description: "an application"
requires:
  - github:acme/lib/main
  - utils
nonFlakeRequires:
  docs: github:acme/docs/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
outputs:
  packages:
    default: app
`)

	eval, err := manifest.New().Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, domain.FlakeID("app"), eval.ID)
	assert.Equal(t, "an application", eval.Description)

	require.Len(t, eval.Requires, 2)
	assert.Equal(t, domain.VariantGitHub, eval.Requires[0].Variant)
	assert.Equal(t, "main", eval.Requires[0].Ref)
	assert.Equal(t, domain.VariantAlias, eval.Requires[1].Variant)
	assert.Equal(t, "utils", eval.Requires[1].Alias)

	require.Len(t, eval.NonFlakeRequires, 1)
	assert.True(t, eval.NonFlakeRequires["docs"].IsImmutable())
	assert.NotNil(t, eval.Outputs)
}

func TestLoad_Subdir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, filepath.Join(dir, "nested", "flake"), "id: nested\n")

	eval, err := manifest.New().Load(dir, filepath.Join("nested", "flake"))
	require.NoError(t, err)
	assert.Equal(t, domain.FlakeID("nested"), eval.ID)
}

func TestLoad_MissingManifest(t *testing.T) {
	_, err := manifest.New().Load(t.TempDir(), "")
	require.ErrorIs(t, err, domain.ErrEvaluationFailure)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "id: [unclosed\n")

	_, err := manifest.New().Load(dir, "")
	require.ErrorIs(t, err, domain.ErrEvaluationFailure)
}

func TestLoad_BadRequirement(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
id: app
requires:
  - "not a valid ref"
`)

	_, err := manifest.New().Load(dir, "")
	require.ErrorIs(t, err, domain.ErrBadFlakeRef)
}

func TestLoad_RelativePathRequirementRejected(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
id: app
requires:
  - ./sibling
`)

	_, err := manifest.New().Load(dir, "")
	require.ErrorIs(t, err, domain.ErrBadFlakeRef)
}
