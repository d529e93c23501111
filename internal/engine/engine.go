// Package engine wires the maintenance pass's components together: scan,
// build the wikilink index, resolve back-populate candidates in
// parallel, classify ambiguity, build the image asset graph, repair
// dates, plan replacements, and persist.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/backpopulate"
	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/imageasset"
	"github.com/vaultkeep/vaultkeep/internal/persist"
	"github.com/vaultkeep/vaultkeep/internal/planner"
	"github.com/vaultkeep/vaultkeep/internal/report"
	"github.com/vaultkeep/vaultkeep/internal/safety"
	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
	"github.com/vaultkeep/vaultkeep/internal/wikilinkindex"
	"github.com/vaultkeep/vaultkeep/internal/workerpool"
)

// Options configures one end-to-end maintenance pass.
type Options struct {
	VaultPath           string
	IgnoreFolders       []string
	DoNotBackPopulate   []string
	FileProcessLimit    int
	OperationalTimezone string
	ApplyChanges        bool
	ScanWorkers         int
	ResolveWorkers      int
}

// Outcome is everything a caller (the CLI, or a test) might want to
// inspect or report on after a pass.
type Outcome struct {
	Files         []*vaultfile.MarkdownFile
	Images        []*imageasset.ImageFile
	ParseErrors   []vaultfile.ParseError
	PersistResult *persist.Result
	Report        string
}

// Run executes a full maintenance pass.
func Run(opts Options, hash imageasset.HashFunc, backups *safety.BackupManager, recorder *safety.DryRunRecorder, now frontmatter.UTCTime) (*Outcome, error) {
	tz := opts.OperationalTimezone
	if tz == "" {
		tz = "UTC"
	}

	scanner := vaultfile.NewScanner(opts.VaultPath, vaultfile.WithIgnoreFolders(opts.IgnoreFolders))
	files, images, parseErrs, err := scanner.Walk(scanWorkers(opts.ScanWorkers))
	if err != nil {
		return nil, fmt.Errorf("scanning vault: %w", err)
	}

	idx := wikilinkindex.Build(collectWikilinks(files))

	globalDoNotBackPopulate := backpopulate.CompileDoNotBackPopulate(opts.DoNotBackPopulate)
	if err := resolveParallel(files, idx, globalDoNotBackPopulate, opts.ResolveWorkers); err != nil {
		return nil, fmt.Errorf("resolving back-populate candidates: %w", err)
	}

	// Single-threaded barrier: ambiguity classification and everything
	// after it reasons about the whole file set at once.
	backpopulate.Classify(files, idx)

	imageFiles, err := imageasset.Build(images, files, hash)
	if err != nil {
		return nil, fmt.Errorf("building image asset graph: %w", err)
	}

	for _, mf := range files {
		mf.Frontmatter.RepairDates(mf.FileSystemCreated, mf.FileSystemModified, tz)
	}

	for _, mf := range files {
		if _, err := planner.Plan(mf, now, tz); err != nil {
			return nil, fmt.Errorf("planning replacements for %s: %w", mf.RelativePath, err)
		}
	}

	persistResult, err := persist.Run(files, imageFiles, persist.Options{
		ApplyChanges:        opts.ApplyChanges,
		FileProcessLimit:    opts.FileProcessLimit,
		OperationalTimezone: tz,
	}, backups, recorder)
	if err != nil {
		return nil, fmt.Errorf("persisting changes: %w", err)
	}

	b := report.New()
	b.WriteBackPopulateMatches(files)
	b.WriteAmbiguousMatches(files)
	b.WriteInvalidWikilinks(files)
	b.WriteImageClassification(imageFiles)
	b.WritePersistSummary(persistResult)

	return &Outcome{
		Files:         files,
		Images:        imageFiles,
		ParseErrors:   parseErrs,
		PersistResult: persistResult,
		Report:        b.String(),
	}, nil
}

func scanWorkers(n int) int {
	if n < 1 {
		return 4
	}
	return n
}

func collectWikilinks(files []*vaultfile.MarkdownFile) []wikilink.Wikilink {
	var all []wikilink.Wikilink
	for _, mf := range files {
		all = append(all, mf.ValidWikilinks...)
	}
	return all
}

// resolveParallel runs the back-populate resolver concurrently across
// files, bounded by a worker pool — it is the one CPU-bound stage worth
// parallelizing. Each file only mutates its own MatchSet, so no
// cross-file locking is needed beyond the pool itself.
func resolveParallel(files []*vaultfile.MarkdownFile, idx *wikilinkindex.Index, globalDoNotBackPopulate []*regexp.Regexp, workers int) error {
	if len(files) == 0 {
		return nil
	}

	config := workerpool.DefaultConfig()
	if workers > 0 {
		config.MaxWorkers = workers
	}
	config.QueueSize = len(files)
	pool := workerpool.NewWorkerPool(config)

	for _, mf := range files {
		mf := mf
		if err := pool.Submit(func(ctx context.Context) error {
			backpopulate.Resolve(mf, idx, globalDoNotBackPopulate)
			return nil
		}); err != nil {
			return err
		}
	}

	return pool.Shutdown(5 * time.Minute)
}
