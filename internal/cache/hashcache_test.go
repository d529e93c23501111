package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCacheAddsThenReadsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("some image bytes"), 0644))

	c, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	h1, err := c.Hash(imgPath)
	require.NoError(t, err)
	assert.NotEmpty(t, h1)
	assert.Equal(t, 1, c.Stats().FilesAdded)

	h2, err := c.Hash(imgPath)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, c.Stats().FilesRead)
	assert.Equal(t, 1, c.Stats().FilesAdded)
}

func TestHashCacheRehashesWhenSizeChanges(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("short"), 0644))

	c, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	h1, err := c.Hash(imgPath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(imgPath, []byte("a much longer payload than before"), 0644))

	h2, err := c.Hash(imgPath)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 1, c.Stats().FilesModified)
}

func TestHashCachePruneMissingRemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("data"), 0644))

	c, err := Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Hash(imgPath)
	require.NoError(t, err)

	removed, err := c.PruneMissing(map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
