package vaultfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

// ImageFile is a single image/asset file discovered by the walker, ahead
// of any hash-grouping performed by the image-asset engine.
type ImageFile struct {
	Path         string
	RelativePath string
	Size         int64
}

// ParseError records a per-file read/parse failure that the scan
// recovered from rather than aborting the whole pass over.
type ParseError struct {
	Path string
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithIgnoreFolders ignores any directory whose base name is in names.
func WithIgnoreFolders(names []string) ScannerOption {
	return func(s *Scanner) {
		s.ignoreFolders = make(map[string]bool, len(names))
		for _, n := range names {
			s.ignoreFolders[n] = true
		}
	}
}

// WithContinueOnErrors controls whether a file read failure aborts the
// walk (false) or is recorded and skipped (true, the default).
func WithContinueOnErrors(continueOnErrors bool) ScannerOption {
	return func(s *Scanner) {
		s.continueOnErrors = continueOnErrors
	}
}

// Scanner walks a vault directory tree, producing MarkdownFiles and
// ImageFiles in one pass, since the image-asset engine needs both.
type Scanner struct {
	root             string
	ignoreFolders    map[string]bool
	continueOnErrors bool
}

// NewScanner returns a Scanner rooted at root.
func NewScanner(root string, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		root:             root,
		ignoreFolders:    map[string]bool{".obsidian": true, ".trash": true},
		continueOnErrors: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) shouldIgnoreDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return s.ignoreFolders[name]
}

// Walk scans the vault, loading every *.md file into a MarkdownFile via
// New (concurrently, bounded by workers) and collecting every recognized
// image/asset file. A single mutex protects the append-only result
// slices.
func (s *Scanner) Walk(workers int) ([]*MarkdownFile, []ImageFile, []ParseError, error) {
	type job struct {
		path, relPath string
	}

	var mdJobs []job
	var images []ImageFile

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != s.root && s.shouldIgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".DS_Store" {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			mdJobs = append(mdJobs, job{path: path, relPath: filepath.ToSlash(rel)})
			return nil
		}
		if wikilink.HasImageExtension(d.Name()) {
			info, statErr := d.Info()
			var size int64
			if statErr == nil {
				size = info.Size()
			}
			images = append(images, ImageFile{Path: path, RelativePath: filepath.ToSlash(rel), Size: size})
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("walking vault: %w", err)
	}

	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		files   []*MarkdownFile
		parseEr []ParseError
	)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, j := range mdJobs {
		j := j
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			mf, loadErr := s.loadFile(j.path, j.relPath)

			mu.Lock()
			defer mu.Unlock()
			if loadErr != nil {
				parseEr = append(parseEr, ParseError{Path: j.path, Err: loadErr})
				return
			}
			files = append(files, mf)
		}()
	}
	wg.Wait()

	if !s.continueOnErrors && len(parseEr) > 0 {
		return nil, nil, parseEr, fmt.Errorf("loading %s: %w", parseEr[0].Path, parseEr[0].Err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	sort.Slice(images, func(i, j int) bool { return images[i].RelativePath < images[j].RelativePath })

	return files, images, parseEr, nil
}

func (s *Scanner) loadFile(path, relPath string) (*MarkdownFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	created := NewUTCTimeFromInfo(info)
	modified := created

	return New(path, relPath, string(data), created, modified)
}
