package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/safety"
)

func writeVaultFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	abs := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
}

func stubHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func now() frontmatter.UTCTime {
	return frontmatter.NewUTCTime(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
}

// TestRunPlainBackPopulate exercises the spec's first end-to-end
// scenario: a plain occurrence of a known note's title gets rewritten
// to a wikilink and the file is persisted with PersistReason BackPopulated.
func TestRunPlainBackPopulate(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "Test Link.md", "Some note content.\n")
	writeVaultFile(t, dir, "other.md", "This is Test Link in a sentence.\n")

	outcome, err := Run(Options{
		VaultPath:           dir,
		OperationalTimezone: "America/New_York",
		ApplyChanges:        true,
	}, stubHash, nil, nil, now())
	require.NoError(t, err)

	found := false
	for _, mf := range outcome.Files {
		if mf.RelativePath == "other.md" {
			found = true
			assert.Contains(t, mf.Body, "This is [[Test Link]] in a sentence.")
		}
	}
	require.True(t, found)

	raw, err := os.ReadFile(filepath.Join(dir, "other.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[[Test Link]]")
}

// TestRunTrulyAmbiguousIsNotReplaced exercises scenario 3: a found-text
// resolving to two distinct targets is classified ambiguous and never
// reaches disk.
func TestRunTrulyAmbiguousIsNotReplaced(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "Amazon (company).md", "---\naliases:\n  - Amazon\n---\ncompany\n")
	writeVaultFile(t, dir, "Amazon (river).md", "---\naliases:\n  - Amazon\n---\nriver\n")
	writeVaultFile(t, dir, "test1.md", "Amazon is huge\n")

	outcome, err := Run(Options{
		VaultPath:           dir,
		OperationalTimezone: "America/New_York",
		ApplyChanges:        true,
	}, stubHash, nil, nil, now())
	require.NoError(t, err)

	for _, mf := range outcome.Files {
		if mf.RelativePath == "test1.md" {
			assert.Equal(t, "Amazon is huge", mf.Body)
			for _, r := range mf.Frontmatter.Reasons {
				assert.NotEqual(t, frontmatter.BackPopulated, r.Kind)
			}
		}
	}
}

// TestRunDuplicateImageResolution exercises scenario 5: two images
// sharing a hash collapse to one surviving file and every referring
// document is rewritten to point at the keeper.
func TestRunDuplicateImageResolution(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "image1.jpg", "identical-bytes")
	writeVaultFile(t, dir, "image2.jpg", "identical-bytes")
	writeVaultFile(t, dir, "doc1.md", "![[image1.jpg]]\n")
	writeVaultFile(t, dir, "doc2.md", "![[image2.jpg]]\n")

	recorder := safety.NewDryRunRecorder()
	outcome, err := Run(Options{
		VaultPath:           dir,
		OperationalTimezone: "America/New_York",
		ApplyChanges:        true,
	}, stubHash, nil, recorder, now())
	require.NoError(t, err)

	_, err1 := os.Stat(filepath.Join(dir, "image1.jpg"))
	_, err2 := os.Stat(filepath.Join(dir, "image2.jpg"))
	assert.NoError(t, err1)
	assert.True(t, os.IsNotExist(err2))

	for _, mf := range outcome.Files {
		assert.Contains(t, mf.Body, "![[image1.jpg]]")
	}

	reasonKinds := map[string]bool{}
	for _, fr := range outcome.PersistResult.FilesPersisted {
		for _, r := range fr.Reasons {
			reasonKinds[fr.RelativePath+":"+r.Kind.String()] = true
		}
	}
	assert.True(t, reasonKinds["doc1.md:ImageReferencesModified"])
	assert.True(t, reasonKinds["doc2.md:ImageReferencesModified"])
}

func TestRunDryRunMakesNoFilesystemChanges(t *testing.T) {
	dir := t.TempDir()
	writeVaultFile(t, dir, "Test Link.md", "content\n")
	writeVaultFile(t, dir, "other.md", "This is Test Link in a sentence.\n")

	_, err := Run(Options{
		VaultPath:           dir,
		OperationalTimezone: "America/New_York",
		ApplyChanges:        false,
	}, stubHash, nil, safety.NewDryRunRecorder(), now())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "other.md"))
	require.NoError(t, err)
	assert.Equal(t, "This is Test Link in a sentence.\n", string(raw))
}
