// Package vaultfile implements the per-file aggregate that binds a
// Markdown file's parsed frontmatter, raw body, wikilink sets, image
// links, and accumulated back-populate matches together.
package vaultfile

import (
	"strings"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

// BackPopulateMatch is a single candidate replacement found by the
// back-populate resolver, possibly later reclassified as ambiguous by
// the ambiguity classifier.
type BackPopulateMatch struct {
	FoundText       string
	Replacement     string
	LineNumber      int
	Position        int
	InMarkdownTable bool
}

// MatchSet separates resolved matches from ones the ambiguity classifier
// has flagged as corresponding to more than one canonical target.
type MatchSet struct {
	Unambiguous []BackPopulateMatch
	Ambiguous   []BackPopulateMatch
}

// MarkdownFile is the per-file aggregate holding a Markdown file's
// parsed frontmatter, body, wikilink sets, and back-populate matches.
type MarkdownFile struct {
	Path         string
	RelativePath string
	Stem         string

	Frontmatter          *frontmatter.Document
	Body                 string
	FrontmatterLineCount int

	ValidWikilinks      []wikilink.Wikilink
	InvalidWikilinks    []wikilink.InvalidWikilink
	ImageLinks          []wikilink.ImageLink
	WikilinkSpansByLine map[int][]wikilink.Span

	DoNotBackPopulateRegexes []string // compiled by the caller; stored as source patterns here

	Matches MatchSet

	FileSystemCreated  UTCTime
	FileSystemModified UTCTime
}

// UTCTime avoids importing frontmatter's UTCTime alias cycle concerns; it
// is the same shape and freely convertible.
type UTCTime = frontmatter.UTCTime

// Stem derives the file stem (basename without extension) from a path.
func Stem(relativePath string) string {
	base := relativePath
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".md")
}

// New builds a MarkdownFile from raw file content, splitting frontmatter
// from body and lexing every line for wikilinks and image links.
func New(path, relativePath, content string, fsCreated, fsModified UTCTime) (*MarkdownFile, error) {
	doc, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	mf := &MarkdownFile{
		Path:               path,
		RelativePath:       relativePath,
		Stem:               Stem(relativePath),
		Frontmatter:        doc,
		Body:               strings.TrimRight(body, "\n"),
		FileSystemCreated:  fsCreated,
		FileSystemModified: fsModified,
	}
	mf.FrontmatterLineCount = countFrontmatterLines(content, body)

	mf.DoNotBackPopulateRegexes = append([]string{}, doc.Aliases...)
	mf.DoNotBackPopulateRegexes = append(mf.DoNotBackPopulateRegexes, doc.DoNotBackPopulate...)

	mf.lexBody()
	return mf, nil
}

// countFrontmatterLines returns how many lines of the original content
// precede the body, so real line numbers can be computed from
// content-relative ones.
func countFrontmatterLines(content, body string) int {
	if strings.HasSuffix(content, body) && len(content) != len(body) {
		prefix := content[:len(content)-len(body)]
		return strings.Count(prefix, "\n")
	}
	return 0
}

// lexBody runs the exclusion tracker and lexer over every body line,
// accumulating wikilinks and image links plus the filename-derived and
// alias-derived synthetic wikilinks every file contributes to the index.
func (mf *MarkdownFile) lexBody() {
	tracker := wikilink.NewExclusionTracker()
	lexer := wikilink.NewLexer()

	lines := strings.Split(mf.Body, "\n")
	for idx, line := range lines {
		contentLineNumber := idx + 1
		realLineNumber := contentLineNumber + mf.FrontmatterLineCount

		if tracker.ObserveLine(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		inline := wikilink.InlineCodeSpans(line)
		mdLinks := wikilink.MarkdownLinkSpans(line)
		exclusions := append(append([]wikilink.Span{}, inline...), mdLinks...)

		res := lexer.Lex(line, exclusions)
		for _, v := range res.Valid {
			mf.ValidWikilinks = append(mf.ValidWikilinks, v)
			if mf.WikilinkSpansByLine == nil {
				mf.WikilinkSpansByLine = make(map[int][]wikilink.Span)
			}
			mf.WikilinkSpansByLine[realLineNumber] = append(mf.WikilinkSpansByLine[realLineNumber], v.Span)
		}
		for _, inv := range res.Invalid {
			mf.InvalidWikilinks = append(mf.InvalidWikilinks, inv.Promote(line, realLineNumber))
		}
		for _, raw := range res.Images {
			mf.ImageLinks = append(mf.ImageLinks, wikilink.ClassifyImageLink(raw, realLineNumber))
		}
	}

	mf.ValidWikilinks = append(mf.ValidWikilinks, wikilink.Wikilink{
		Target:      mf.Stem,
		DisplayText: mf.Stem,
	})
	for _, alias := range mf.Frontmatter.Aliases {
		mf.ValidWikilinks = append(mf.ValidWikilinks, wikilink.Wikilink{
			Target:      mf.Stem,
			DisplayText: alias,
		})
	}
}

// RealLineNumber converts a zero-based body line index to the real
// (file-relative) line number, accounting for the frontmatter block.
func (mf *MarkdownFile) RealLineNumber(zeroBasedIdx int) int {
	return zeroBasedIdx + 1 + mf.FrontmatterLineCount
}
