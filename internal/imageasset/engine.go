// Package imageasset implements the image asset engine: it hash-groups
// every image file discovered by the walker, classifies each member of a
// hash group as valid, unreferenced, incompatible, a duplicate, or the
// duplicate-keeper, and propagates that classification onto every ImageLink
// that refers to it across the vault.
package imageasset

import (
	"path"
	"sort"
	"strings"

	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

// HashFunc computes a content hash for an absolute path. Callers
// typically supply a cache-backed implementation (internal/cache.HashCache.Hash).
type HashFunc func(absolutePath string) (string, error)

// StateKind enumerates the classification an ImageFile can carry.
type StateKind int

const (
	Valid StateKind = iota
	Unreferenced
	Incompatible
	Duplicate
	DuplicateKeeper
)

func (k StateKind) String() string {
	switch k {
	case Valid:
		return "Valid"
	case Unreferenced:
		return "Unreferenced"
	case Incompatible:
		return "Incompatible"
	case Duplicate:
		return "Duplicate"
	case DuplicateKeeper:
		return "DuplicateKeeper"
	default:
		return "Unknown"
	}
}

// State is the per-file classification outcome.
type State struct {
	Kind               StateKind
	Hash               string
	IncompatibleReason wikilink.IncompatibleReason
}

// ImageFile is a hash-grouped, classified image/asset file.
type ImageFile struct {
	Path         string
	RelativePath string
	Hash         string
	Size         int64
	References   []string // relative paths of referring markdown files
	State        State
}

// Filename returns the lowercased basename used for cross-referencing.
func (f *ImageFile) Filename() string {
	return strings.ToLower(path.Base(f.RelativePath))
}

// Build processes every image file the scanner discovered: it hashes
// each one, gathers its Markdown referrers, groups by hash, classifies
// every member, and propagates the resulting state onto every ImageLink
// that names it (case-insensitively) across files.
func Build(images []vaultfile.ImageFile, files []*vaultfile.MarkdownFile, hash HashFunc) ([]*ImageFile, error) {
	byFilename := make(map[string][]string) // filename -> referring relative paths
	for _, mf := range files {
		for _, link := range mf.ImageLinks {
			if link.Locality != wikilink.Internal {
				continue
			}
			byFilename[link.Filename] = append(byFilename[link.Filename], mf.RelativePath)
		}
	}

	out := make([]*ImageFile, 0, len(images))
	for _, img := range images {
		h, err := hash(img.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, &ImageFile{
			Path:         img.Path,
			RelativePath: img.RelativePath,
			Hash:         h,
			Size:         img.Size,
			References:   append([]string{}, byFilename[strings.ToLower(path.Base(img.RelativePath))]...),
		})
	}

	classify(out)
	propagate(out, files)
	return out, nil
}

// classify groups files by hash, sorts members by path, marks
// individually-incompatible members, then assigns
// DuplicateKeeper/Duplicate/Unreferenced/Valid to the remaining
// non-incompatible members of each group.
func classify(files []*ImageFile) {
	groups := make(map[string][]*ImageFile)
	for _, f := range files {
		groups[f.Hash] = append(groups[f.Hash], f)
	}

	for hash, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })

		var nonIncompatible []*ImageFile
		for _, f := range group {
			switch {
			case f.Size == 0:
				f.State = State{Kind: Incompatible, Hash: hash, IncompatibleReason: wikilink.IncompatibleZeroByte}
			case isTiff(f.RelativePath):
				f.State = State{Kind: Incompatible, Hash: hash, IncompatibleReason: wikilink.IncompatibleTiff}
			default:
				nonIncompatible = append(nonIncompatible, f)
			}
		}

		switch {
		case len(nonIncompatible) > 1:
			nonIncompatible[0].State = State{Kind: DuplicateKeeper, Hash: hash}
			for _, f := range nonIncompatible[1:] {
				f.State = State{Kind: Duplicate, Hash: hash}
			}
		case len(nonIncompatible) == 1:
			f := nonIncompatible[0]
			if len(f.References) == 0 {
				f.State = State{Kind: Unreferenced, Hash: hash}
			} else {
				f.State = State{Kind: Valid, Hash: hash}
			}
		}
	}
}

func isTiff(relativePath string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(relativePath)), ".")
	return ext == "tiff"
}

// propagate resolves every ImageLink across every file's filename
// (case-insensitively) against the classified image files and copies the
// resulting state onto it, or marks it Missing if nothing matches.
func propagate(images []*ImageFile, files []*vaultfile.MarkdownFile) {
	byFilename := make(map[string][]*ImageFile)
	keeperByHash := make(map[string]*ImageFile)
	for _, img := range images {
		byFilename[img.Filename()] = append(byFilename[img.Filename()], img)
		if img.State.Kind == DuplicateKeeper {
			keeperByHash[img.Hash] = img
		}
	}

	for _, mf := range files {
		for i := range mf.ImageLinks {
			link := &mf.ImageLinks[i]
			if link.Locality != wikilink.Internal {
				continue
			}
			candidates := byFilename[link.Filename]
			if len(candidates) == 0 {
				link.State = wikilink.ImageLinkState{Kind: wikilink.StateMissing}
				continue
			}
			img := selectCandidate(candidates, link.RelativePath)
			switch img.State.Kind {
			case Incompatible:
				link.State = wikilink.ImageLinkState{
					Kind:               wikilink.StateIncompatible,
					IncompatibleReason: img.State.IncompatibleReason,
				}
			case Duplicate:
				keeper := keeperByHash[img.State.Hash]
				keeperPath := img.Path
				if keeper != nil {
					keeperPath = keeper.Path
				}
				link.State = wikilink.ImageLinkState{Kind: wikilink.StateDuplicate, KeeperPath: keeperPath}
			default:
				link.State = wikilink.ImageLinkState{Kind: wikilink.StateFound}
			}
		}
	}
}

// selectCandidate picks the image file a link most plausibly refers to
// when more than one file shares a basename: prefer one in the same
// relative directory as the link, else the first (path-sorted) candidate.
func selectCandidate(candidates []*ImageFile, linkRelativePath string) *ImageFile {
	linkDir := path.Dir(linkRelativePath)
	for _, c := range candidates {
		if path.Dir(c.RelativePath) == linkDir {
			return c
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates[0]
}
