// Package planner implements the replacement planner: it merges a file's
// unambiguous back-populate matches and image-link state transitions into
// a single, line-keyed, descending-position rewrite of the file's body,
// then marks the file with the persist reasons that rewrite implies.
package planner

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

// ReplaceableContent is the polymorphic item the planner consumes: a
// textual span on some line that should be spliced out and replaced
// (possibly with the empty string, for a deletion).
type ReplaceableContent interface {
	LineNumber() int
	Position() int
	MatchedText() string
	ReplacementText() string
	IsImageChange() bool
}

type backPopulateItem struct {
	m vaultfile.BackPopulateMatch
}

func (i backPopulateItem) LineNumber() int         { return i.m.LineNumber }
func (i backPopulateItem) Position() int           { return i.m.Position }
func (i backPopulateItem) MatchedText() string     { return i.m.FoundText }
func (i backPopulateItem) ReplacementText() string { return i.m.Replacement }
func (i backPopulateItem) IsImageChange() bool     { return false }

type imageLinkItem struct {
	link        wikilink.ImageLink
	replacement string
}

func (i imageLinkItem) LineNumber() int        { return i.link.LineNumber }
func (i imageLinkItem) Position() int          { return i.link.Position }
func (i imageLinkItem) MatchedText() string    { return i.link.MatchedText }
func (i imageLinkItem) ReplacementText() string { return i.replacement }
func (i imageLinkItem) IsImageChange() bool     { return true }

// FatalError marks a UTF-8 boundary violation: byte offsets desynchronized
// from character boundaries. It is never recoverable and must abort the
// pass.
type FatalError struct {
	Path       string
	LineNumber int
	Position   int
	Detail     string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s:%d: byte offset %d is not a valid UTF-8 boundary: %s", e.Path, e.LineNumber, e.Position, e.Detail)
}

// imageReplacementText implements the image engine's replacement
// semantics: Found carries no item at all (never constructed here);
// Missing and Incompatible become a deletion (empty string); Duplicate
// rewrites the link to name the keeper's basename under the link's own
// relative directory, preserving syntactic shape.
func imageReplacementText(link wikilink.ImageLink) (text string, include bool) {
	switch link.State.Kind {
	case wikilink.StateFound:
		return "", false
	case wikilink.StateMissing, wikilink.StateIncompatible:
		return "", true
	case wikilink.StateDuplicate:
		return rewriteImageLink(link), true
	default:
		return "", false
	}
}

func rewriteImageLink(link wikilink.ImageLink) string {
	dir := path.Dir(link.RelativePath)
	newBase := path.Base(link.State.KeeperPath)
	var newRelPath string
	if dir == "." || dir == "" {
		newRelPath = newBase
	} else {
		newRelPath = dir + "/" + newBase
	}

	bang := ""
	if link.Mode == wikilink.Embedded {
		bang = "!"
	}

	switch link.Syntax {
	case wikilink.WikilinkSyntax:
		if link.SizeParameter != "" {
			return fmt.Sprintf("%s[[%s|%s]]", bang, newRelPath, link.SizeParameter)
		}
		return fmt.Sprintf("%s[[%s]]", bang, newRelPath)
	default: // MarkdownSyntax
		return fmt.Sprintf("%s[%s](%s)", bang, link.AltText, newRelPath)
	}
}

// collectItems gathers every ReplaceableContent the file's unambiguous
// matches and non-Found internal image links contribute.
func collectItems(mf *vaultfile.MarkdownFile) []ReplaceableContent {
	var items []ReplaceableContent
	for _, m := range mf.Matches.Unambiguous {
		items = append(items, backPopulateItem{m})
	}
	for _, link := range mf.ImageLinks {
		if link.Locality != wikilink.Internal {
			continue
		}
		if text, include := imageReplacementText(link); include {
			items = append(items, imageLinkItem{link: link, replacement: text})
		}
	}
	return items
}

// Plan runs the planner end to end for a single file: it merges and
// applies replacements, rewrites the body, and calls the frontmatter
// mark-* methods that record why the file now needs to be persisted. It
// returns whether the file changed at all.
func Plan(mf *vaultfile.MarkdownFile, now frontmatter.UTCTime, tz string) (changed bool, err error) {
	items := collectItems(mf)
	if len(items) == 0 {
		return false, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].LineNumber() != items[j].LineNumber() {
			return items[i].LineNumber() < items[j].LineNumber()
		}
		return items[i].Position() > items[j].Position()
	})

	byLine := make(map[int][]ReplaceableContent)
	for _, it := range items {
		byLine[it.LineNumber()] = append(byLine[it.LineNumber()], it)
	}

	lines := strings.Split(mf.Body, "\n")
	out := make([]string, 0, len(lines))

	backPopulated := false
	imageChanged := false

	for idx, line := range lines {
		realLineNumber := mf.RealLineNumber(idx)
		lineItems, ok := byLine[realLineNumber]
		if !ok {
			out = append(out, line)
			continue
		}

		rewritten := line
		droppedAny := false
		for _, it := range lineItems {
			start := it.Position()
			end := start + len(it.MatchedText())
			if start < 0 || end > len(rewritten) {
				return false, &FatalError{Path: mf.Path, LineNumber: realLineNumber, Position: start, Detail: "position out of range"}
			}
			if !utf8.RuneStart(byteAt(rewritten, start)) || (end < len(rewritten) && !utf8.RuneStart(byteAt(rewritten, end))) {
				return false, &FatalError{Path: mf.Path, LineNumber: realLineNumber, Position: start, Detail: "not a UTF-8 char boundary"}
			}
			rewritten = rewritten[:start] + it.ReplacementText() + rewritten[end:]

			if it.IsImageChange() {
				imageChanged = true
				if it.ReplacementText() == "" {
					droppedAny = true
				}
			} else {
				backPopulated = true
			}
		}

		if droppedAny {
			rewritten = collapseWhitespace(strings.TrimSpace(rewritten))
			if rewritten == "" {
				continue // drop the line entirely once an image removal empties it
			}
		}
		out = append(out, rewritten)
	}

	mf.Body = strings.TrimRight(strings.Join(out, "\n"), "\n")

	if backPopulated {
		if markErr := mf.Frontmatter.MarkBackPopulated(now, tz); markErr != nil {
			return false, markErr
		}
	}
	if imageChanged {
		if markErr := mf.Frontmatter.MarkImageReferenceUpdated(now, tz); markErr != nil {
			return false, markErr
		}
	}

	return backPopulated || imageChanged, nil
}

// byteAt returns the byte at position i, or 0x00 if i is at or past the
// line's length; 0x00 passes utf8.RuneStart, so the line's end counts as a
// valid boundary.
func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0x00
	}
	return s[i]
}

// collapseWhitespace collapses runs of interior whitespace to a single
// space after an image removal leaves a ragged line. Adjacent blank
// lines are deliberately left untouched — that is a line-level decision
// made by the caller, not this function.
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
