// Package cache implements the persistent content-hash cache the image
// asset engine uses so a vault of thousands of images only gets rehashed
// when a file's size or modification time actually changed.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// EntryStatus reports what a lookup actually did for a path: served a
// cached hash, added a new entry, or replaced a stale one.
type EntryStatus int

const (
	Read EntryStatus = iota
	Added
	Modified
)

func (s EntryStatus) String() string {
	switch s {
	case Read:
		return "read"
	case Added:
		return "added"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Stats summarizes a cache's activity across a run.
type Stats struct {
	FilesRead     int
	FilesAdded    int
	FilesModified int
}

// HashCache is a SQLite-backed, mtime-keyed SHA-256 cache. A path's hash
// is trusted as long as its size and modification time haven't changed
// since it was last recorded.
type HashCache struct {
	db    *sql.DB
	stats Stats
}

// Open opens (or creates) the cache database at dbPath.
func Open(dbPath string) (*HashCache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening hash cache: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS image_hashes (
			path      TEXT PRIMARY KEY,
			size      INTEGER NOT NULL,
			mod_time  INTEGER NOT NULL,
			hash      TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating hash cache schema: %w", err)
	}

	return &HashCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *HashCache) Close() error {
	return c.db.Close()
}

// Hash implements imageasset.HashFunc: it returns path's SHA-256 digest,
// reusing a cached value when size and mtime still match what was last
// recorded and rehashing otherwise.
func (c *HashCache) Hash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	modTime := info.ModTime().UnixNano()

	var cachedSize, cachedModTime int64
	var cachedHash string
	row := c.db.QueryRow(`SELECT size, mod_time, hash FROM image_hashes WHERE path = ?`, path)
	switch err := row.Scan(&cachedSize, &cachedModTime, &cachedHash); {
	case err == nil:
		if cachedSize == size && cachedModTime == modTime {
			c.stats.FilesRead++
			return cachedHash, nil
		}
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("reading cache entry for %s: %w", path, err)
	}

	hash, err := hashFile(path)
	if err != nil {
		return "", err
	}

	res, err := c.db.Exec(`
		INSERT INTO image_hashes (path, size, mod_time, hash) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET size = excluded.size, mod_time = excluded.mod_time, hash = excluded.hash
	`, path, size, modTime, hash)
	if err != nil {
		return "", fmt.Errorf("writing cache entry for %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if cachedHash == "" {
			c.stats.FilesAdded++
		} else {
			c.stats.FilesModified++
		}
	}

	return hash, nil
}

// PruneMissing removes cache entries for paths that no longer exist on
// disk, and returns how many were removed.
func (c *HashCache) PruneMissing(existing map[string]bool) (int, error) {
	rows, err := c.db.Query(`SELECT path FROM image_hashes`)
	if err != nil {
		return 0, fmt.Errorf("listing cache entries: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if !existing[path] {
			stale = append(stale, path)
		}
	}
	rows.Close()

	for _, path := range stale {
		if _, err := c.db.Exec(`DELETE FROM image_hashes WHERE path = ?`, path); err != nil {
			return 0, fmt.Errorf("pruning cache entry for %s: %w", path, err)
		}
	}
	return len(stale), nil
}

// Stats returns the cumulative read/added/modified counts since Open.
func (c *HashCache) Stats() Stats {
	return c.stats
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
