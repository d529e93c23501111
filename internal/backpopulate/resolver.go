// Package backpopulate implements the back-populate resolver and the
// ambiguity classifier: finding plain-text occurrences of known wikilink
// display texts and turning the unambiguous ones into replacement
// directives.
package backpopulate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
	"github.com/vaultkeep/vaultkeep/internal/wikilinkindex"
)

// CompileDoNotBackPopulate turns a list of literal strings into
// case-insensitive, word-boundary regexes.
func CompileDoNotBackPopulate(literals []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(literals))
	for _, lit := range literals {
		if lit == "" {
			continue
		}
		pattern := `(?i)\b` + regexp.QuoteMeta(lit) + `\b`
		if re, err := regexp.Compile(pattern); err == nil {
			out = append(out, re)
		}
	}
	return out
}

// Resolve scans every body line of mf, appending candidate matches to
// mf.Matches.Unambiguous (ambiguity is resolved later, globally, by
// Classify).
func Resolve(mf *vaultfile.MarkdownFile, idx *wikilinkindex.Index, globalDoNotBackPopulate []*regexp.Regexp) {
	fileDoNotBackPopulate := CompileDoNotBackPopulate(mf.DoNotBackPopulateRegexes)

	selfNames := map[string]bool{strings.ToLower(mf.Stem): true}
	for _, alias := range mf.Frontmatter.Aliases {
		selfNames[strings.ToLower(alias)] = true
	}

	tracker := wikilink.NewExclusionTracker()
	lines := strings.Split(mf.Body, "\n")

	for i, line := range lines {
		realLineNumber := mf.RealLineNumber(i)

		if tracker.ObserveLine(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		exclusions := lineExclusions(mf, line, realLineNumber, globalDoNotBackPopulate, fileDoNotBackPopulate)

		for _, m := range idx.FindAll(line) {
			span := wikilink.Span{Start: m.Start, End: m.End}
			if wikilink.Excluded(span, exclusions) {
				continue
			}
			if !boundaryOK(line, m.Start, m.End) {
				continue
			}
			if insideExistingWikilink(line, m.Start) {
				continue
			}
			foundText := line[m.Start:m.End]
			if selfNames[strings.ToLower(foundText)] {
				continue
			}

			match := vaultfile.BackPopulateMatch{
				FoundText:       foundText,
				Replacement:     buildReplacement(m.Wikilink, foundText),
				LineNumber:      realLineNumber,
				Position:        m.Start,
				InMarkdownTable: inMarkdownTable(line, foundText),
			}
			if match.InMarkdownTable {
				match.Replacement = strings.ReplaceAll(match.Replacement, "|", `\|`)
			}
			mf.Matches.Unambiguous = append(mf.Matches.Unambiguous, match)
		}
	}
}

func buildReplacement(w wikilink.Wikilink, foundText string) string {
	target := strings.TrimSuffix(w.Target, ".md")
	if foundText == target {
		return "[[" + target + "]]"
	}
	return "[[" + target + "|" + foundText + "]]"
}

func inMarkdownTable(line, foundText string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "|") &&
		strings.HasSuffix(trimmed, "|") &&
		strings.Count(trimmed, "|") >= 3 &&
		strings.Contains(line, foundText)
}

func lineExclusions(mf *vaultfile.MarkdownFile, line string, realLineNumber int, globalRe, fileRe []*regexp.Regexp) []wikilink.Span {
	var spans []wikilink.Span
	spans = append(spans, wikilink.MarkdownLinkSpans(line)...)
	spans = append(spans, wikilink.InlineCodeSpans(line)...)

	for _, inv := range mf.InvalidWikilinks {
		if inv.LineNumber == realLineNumber {
			spans = append(spans, inv.Span)
		}
	}

	for _, re := range globalRe {
		spans = append(spans, regexSpans(re, line)...)
	}
	for _, re := range fileRe {
		spans = append(spans, regexSpans(re, line)...)
	}

	return spans
}

func regexSpans(re *regexp.Regexp, line string) []wikilink.Span {
	locs := re.FindAllStringIndex(line, -1)
	spans := make([]wikilink.Span, 0, len(locs))
	for _, l := range locs {
		spans = append(spans, wikilink.Span{Start: l[0], End: l[1]})
	}
	return spans
}

// isWordChar approximates regex `\w`: Unicode letters and digits, plus
// underscore.
func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

// boundaryOK implements the word-boundary + contraction rule: the char
// before start must be absent/non-word, and the char after end must be
// absent/non-word, except an "'t"/"'T" contraction fails the boundary (a
// possessive "'s" does not).
func boundaryOK(line string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(line[:start])
		if isWordChar(r) {
			return false
		}
	}
	if end < len(line) {
		rest := line[end:]
		r, size := utf8.DecodeRuneInString(rest)
		if isWordChar(r) {
			return false
		}
		if isApostrophe(r) {
			afterApostrophe := rest[size:]
			if afterApostrophe != "" {
				r2, _ := utf8.DecodeRuneInString(afterApostrophe)
				if r2 == 't' || r2 == 'T' {
					return false
				}
			}
		}
	}
	return true
}

// insideExistingWikilink scans left for the most recent unmatched `[[`
// and right for the nearest `]]`; if that pair encloses start, the match
// sits inside a wikilink that's already correctly formed and must not be
// back-populated again.
func insideExistingWikilink(line string, start int) bool {
	openIdx := strings.LastIndex(line[:start], "[[")
	if openIdx < 0 {
		return false
	}
	// The nearest close after the open must also be after start for this
	// to actually enclose the match.
	closeIdx := strings.Index(line[openIdx:], "]]")
	if closeIdx < 0 {
		return false
	}
	closeIdx += openIdx
	return closeIdx+2 > start
}
