// Package persist implements the persistence engine: it selects the
// files the pass actually needs to rewrite, truncates to the configured
// per-run limit, writes each one atomically through the backup manager
// (or, in a dry run, records what it would have done), and carries out
// the image deletions the asset engine's classification licenses.
package persist

import (
	"fmt"
	"os"
	"sort"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/imageasset"
	"github.com/vaultkeep/vaultkeep/internal/safety"
	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
)

// Options configures a single persistence pass.
type Options struct {
	ApplyChanges        bool
	FileProcessLimit    int
	OperationalTimezone string
}

// FileResult records one file that was written (or would have been).
type FileResult struct {
	RelativePath string
	Reasons      []frontmatter.PersistReason
}

// ImageDeletion records one image file that was removed (or would have
// been), and why the removal was licensed.
type ImageDeletion struct {
	RelativePath string
	Reason       string
}

// Result is the outcome of a persistence pass.
type Result struct {
	FilesPersisted []FileResult
	FilesSkipped   []string // over the process limit, not attempted this run
	ImagesDeleted  []ImageDeletion
}

// FatalError marks an unrecoverable error: a file entered persistence
// needing a rewrite but carries no resolved filesystem modified
// timestamp, which the repair pass should always have set.
type FatalError struct {
	RelativePath string
	Detail       string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: cannot persist, %s", e.RelativePath, e.Detail)
}

// Run executes a persistence pass over the files the earlier stages
// touched and the images the asset engine classified.
func Run(files []*vaultfile.MarkdownFile, images []*imageasset.ImageFile, opts Options, backups *safety.BackupManager, recorder *safety.DryRunRecorder) (*Result, error) {
	result := &Result{}

	candidates := selectCandidates(files)
	if opts.FileProcessLimit > 0 && len(candidates) > opts.FileProcessLimit {
		for _, mf := range candidates[opts.FileProcessLimit:] {
			result.FilesSkipped = append(result.FilesSkipped, mf.RelativePath)
		}
		candidates = candidates[:opts.FileProcessLimit]
	}

	persistedSet := make(map[string]bool, len(candidates))
	for _, mf := range candidates {
		persistedSet[mf.RelativePath] = true
	}

	for _, mf := range candidates {
		if mf.Frontmatter.RawDateModified == nil {
			return nil, &FatalError{RelativePath: mf.RelativePath, Detail: "missing resolved date_modified timestamp entering persistence"}
		}

		text, err := mf.Frontmatter.ComposeFile(mf.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: composing file: %w", mf.RelativePath, err)
		}

		if opts.ApplyChanges {
			if err := writeFileAtomically(mf.Path, text, backups); err != nil {
				return nil, fmt.Errorf("%s: %w", mf.RelativePath, err)
			}
			if err := setFileDates(mf.Path, mf.Frontmatter.RawDateCreated, mf.Frontmatter.RawDateModified); err != nil {
				return nil, fmt.Errorf("%s: setting filesystem dates: %w", mf.RelativePath, err)
			}
		} else if recorder != nil {
			recorder.Record(safety.Operation{
				Type:        "persist_frontmatter",
				File:        mf.RelativePath,
				Description: "rewrite file with updated frontmatter and body",
				Changes:     reasonsToChanges(mf.Frontmatter.Reasons),
			})
		}

		result.FilesPersisted = append(result.FilesPersisted, FileResult{
			RelativePath: mf.RelativePath,
			Reasons:      mf.Frontmatter.Reasons,
		})
	}

	for _, img := range images {
		reason, eligible := deletionReason(img, persistedSet)
		if !eligible {
			continue
		}
		if opts.ApplyChanges {
			if backups != nil {
				backups.CreateBackup(img.Path)
			}
			if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: removing image: %w", img.RelativePath, err)
			}
		} else if recorder != nil {
			recorder.Record(safety.Operation{
				Type:        "delete_image",
				File:        img.RelativePath,
				Description: reason,
			})
		}
		result.ImagesDeleted = append(result.ImagesDeleted, ImageDeletion{RelativePath: img.RelativePath, Reason: reason})
	}

	return result, nil
}

// selectCandidates returns files needing persistence, sorted by relative
// path.
func selectCandidates(files []*vaultfile.MarkdownFile) []*vaultfile.MarkdownFile {
	var out []*vaultfile.MarkdownFile
	for _, mf := range files {
		if mf.Frontmatter.NeedsPersist {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// deletionReason decides whether an image may be removed: an unreferenced
// image is always eligible; an incompatible or duplicate image is eligible once
// every one of its referring files either has no references at all or has
// already been (or is about to be) rewritten in this same run, so no
// dangling reference survives.
func deletionReason(img *imageasset.ImageFile, persistedSet map[string]bool) (reason string, eligible bool) {
	switch img.State.Kind {
	case imageasset.Unreferenced:
		return "unreferenced image", true
	case imageasset.Incompatible:
		if len(img.References) == 0 || allIn(img.References, persistedSet) {
			return "incompatible image (" + img.State.IncompatibleReason.String() + ")", true
		}
	case imageasset.Duplicate:
		if allIn(img.References, persistedSet) {
			return "duplicate of " + img.State.Hash, true
		}
	}
	return "", false
}

func allIn(paths []string, set map[string]bool) bool {
	for _, p := range paths {
		if !set[p] {
			return false
		}
	}
	return true
}

func reasonsToChanges(reasons []frontmatter.PersistReason) []safety.Change {
	out := make([]safety.Change, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, safety.Change{Field: "frontmatter", Action: "modify", Reason: r.Kind.String() + " " + r.Detail})
	}
	return out
}

// writeFileAtomically backs up the existing file, then writes the new
// content to a sibling temp file and renames it into place so a crash
// mid-write never leaves a truncated file behind.
func writeFileAtomically(path, content string, backups *safety.BackupManager) error {
	if backups != nil {
		if _, err := os.Stat(path); err == nil {
			if _, err := backups.CreateBackup(path); err != nil {
				return fmt.Errorf("backing up before write: %w", err)
			}
		}
	}

	tmp := path + ".vaultkeep-tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	return nil
}

// setFileDates applies the resolved modification timestamp to disk.
// Go's standard library has no portable way to set a file's creation
// (birth) time, so RawDateCreated is accepted but not applied here; the
// frontmatter value remains the source of truth for created dates, which
// matches how the rest of the pass treats date_created as authoritative
// over the filesystem.
func setFileDates(path string, created, modified *frontmatter.UTCTime) error {
	if modified == nil {
		return nil
	}
	_ = created
	return os.Chtimes(path, modified.Time, modified.Time)
}
