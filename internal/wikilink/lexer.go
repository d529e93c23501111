package wikilink

import (
	"regexp"
	"strconv"
	"strings"
)

// LineResult is everything the lexer extracts from a single, already
// fence-filtered line of Markdown.
type LineResult struct {
	Valid   []Wikilink
	Invalid []ParsedInvalidWikilink
	Images  []RawImageLink
}

// Lexer combines wikilink lexing with the image-link half of link
// classification: it walks one line at a time, honoring exclusion spans
// supplied by the caller (inline code, external Markdown links), and
// emits wikilinks, invalid-wikilink diagnostics, and raw image-link
// substrings.
type Lexer struct{}

// NewLexer returns a ready-to-use Lexer. It carries no state of its own;
// fence state lives in ExclusionTracker, one per file.
func NewLexer() *Lexer {
	return &Lexer{}
}

// Lex scans line for wikilinks and image links, skipping any byte ranges
// named in exclusions (typically inline-code spans and non-image Markdown
// link spans computed by the caller).
func (l *Lexer) Lex(line string, exclusions []Span) LineResult {
	var res LineResult
	consumed := make([]bool, len(line)+1)

	res.Images = l.lexImages(line, exclusions, consumed)
	res.Valid, res.Invalid = l.lexWikilinks(line, exclusions, consumed)
	res.Invalid = append(res.Invalid, l.lexPostScan(line, exclusions, consumed)...)
	return res
}

func markConsumed(consumed []bool, start, end int) {
	for i := start; i < end && i < len(consumed); i++ {
		consumed[i] = true
	}
}

func isConsumed(consumed []bool, i int) bool {
	return i < len(consumed) && consumed[i]
}

// lexImages finds `![[target]]`, `![[target|alt]]` and `![alt](target)`
// occurrences.
func (l *Lexer) lexImages(line string, exclusions []Span, consumed []bool) []RawImageLink {
	var out []RawImageLink
	i := 0
	for i < len(line)-1 {
		if line[i] != '!' || line[i+1] != '[' {
			i++
			continue
		}
		if isConsumed(consumed, i) {
			i++
			continue
		}
		if i+2 < len(line) && line[i+2] == '[' {
			// ![[target]] or ![[target|alt]]
			end := strings.Index(line[i+3:], "]]")
			if end < 0 {
				i++
				continue
			}
			closeAt := i + 3 + end
			inner := line[i+3 : closeAt]
			full := Span{Start: i, End: closeAt + 2}
			if Excluded(full, exclusions) {
				i = closeAt + 2
				continue
			}
			target, alt, size := splitEmbedInner(inner)
			out = append(out, RawImageLink{
				Text:     line[full.Start:full.End],
				Target:   target,
				Alt:      alt,
				Size:     size,
				Span:     full,
				Syntax:   WikilinkSyntax,
				Mode:     Embedded,
				Locality: localityOf(target),
			})
			markConsumed(consumed, full.Start, full.End)
			i = full.End
			continue
		}

		// ![alt](target) — Markdown image syntax.
		depth := 1
		j := i + 2
		for j < len(line) && depth > 0 {
			switch line[j] {
			case '[':
				depth++
			case ']':
				depth--
			}
			j++
		}
		if depth != 0 || j >= len(line) || line[j] != '(' {
			i++
			continue
		}
		alt := line[i+2 : j-1]
		k := j + 1
		pdepth := 1
		for k < len(line) && pdepth > 0 {
			switch line[k] {
			case '(':
				pdepth++
			case ')':
				pdepth--
			}
			k++
		}
		if pdepth != 0 {
			i++
			continue
		}
		target := line[j+1 : k-1]
		full := Span{Start: i, End: k}
		if Excluded(full, exclusions) {
			i = k
			continue
		}
		out = append(out, RawImageLink{
			Text:     line[full.Start:full.End],
			Target:   target,
			Alt:      alt,
			Span:     full,
			Syntax:   MarkdownSyntax,
			Mode:     Embedded,
			Locality: localityOf(target),
		})
		markConsumed(consumed, full.Start, full.End)
		i = k
	}
	return out
}

func localityOf(target string) ImageLocality {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return External
	}
	return Internal
}

// splitEmbedInner splits the `target|alt-or-size` interior of a wikilink
// embed. A purely numeric (optionally `NxM`) suffix is treated as a size
// parameter rather than alt text.
func splitEmbedInner(inner string) (target, alt, size string) {
	idx := strings.IndexByte(inner, '|')
	if idx < 0 {
		return inner, "", ""
	}
	target = inner[:idx]
	rest := inner[idx+1:]
	if isSizeSpec(rest) {
		return target, "", rest
	}
	return target, rest, ""
}

func isSizeSpec(s string) bool {
	if s == "" {
		return false
	}
	parts := strings.SplitN(s, "x", 2)
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

// lexWikilinks runs the bracket state machine described by the original
// wikilink grammar: `[[target]]` or `[[target|display]]`, with `\`
// escaping of `|` and `]` inside the brackets.
func (l *Lexer) lexWikilinks(line string, exclusions []Span, consumed []bool) ([]Wikilink, []ParsedInvalidWikilink) {
	var valid []Wikilink
	var invalid []ParsedInvalidWikilink

	i := 0
	for i < len(line)-1 {
		if line[i] != '[' || line[i+1] != '[' {
			i++
			continue
		}
		if isConsumed(consumed, i) || (i > 0 && line[i-1] == '!') {
			i++
			continue
		}

		start := i
		j := i + 2
		var target, display strings.Builder
		inDisplay := false
		pipeCount := 0
		nested := false
		closed := false
		singleBracket := false

	scan:
		for j < len(line) {
			switch {
			case line[j] == '\\' && j+1 < len(line):
				if inDisplay {
					display.WriteByte(line[j+1])
				} else {
					target.WriteByte(line[j+1])
				}
				j += 2
			case line[j] == ']' && j+1 < len(line) && line[j+1] == ']':
				j += 2
				closed = true
				break scan
			case line[j] == '[' && j+1 < len(line) && line[j+1] == '[':
				nested = true
				j++
			case line[j] == '|':
				pipeCount++
				if pipeCount > 1 {
					// second pipe: keep scanning for the close so the
					// diagnostic span covers the whole fragment.
					display.WriteByte('|')
				} else {
					inDisplay = true
				}
				j++
			case line[j] == '[' || line[j] == ']':
				// A lone bracket that didn't form `[[`/`]]` above.
				singleBracket = true
				if inDisplay {
					display.WriteByte(line[j])
				} else {
					target.WriteByte(line[j])
				}
				j++
			default:
				if inDisplay {
					display.WriteByte(line[j])
				} else {
					target.WriteByte(line[j])
				}
				j++
			}
		}

		trimmedTarget := strings.TrimSpace(target.String())
		trimmedDisplay := strings.TrimSpace(display.String())

		switch {
		case !closed:
			invalid = append(invalid, ParsedInvalidWikilink{
				Content: line[start:len(line)],
				Reason:  UnmatchedOpening,
				Span:    Span{Start: start, End: len(line)},
			})
		case nested:
			invalid = append(invalid, ParsedInvalidWikilink{
				Content: line[start:j],
				Reason:  NestedOpening,
				Span:    Span{Start: start, End: j},
			})
		case pipeCount > 1:
			invalid = append(invalid, ParsedInvalidWikilink{
				Content: line[start:j],
				Reason:  DoubleAlias,
				Span:    Span{Start: start, End: j},
			})
		case singleBracket:
			invalid = append(invalid, ParsedInvalidWikilink{
				Content: line[start:j],
				Reason:  UnmatchedSingleInWikilink,
				Span:    Span{Start: start, End: j},
			})
		case trimmedTarget == "" || (inDisplay && trimmedDisplay == ""):
			invalid = append(invalid, ParsedInvalidWikilink{
				Content: line[start:j],
				Reason:  EmptyWikilink,
				Span:    Span{Start: start, End: j},
			})
		default:
			full := Span{Start: start, End: j}
			if !Excluded(full, exclusions) {
				disp := trimmedDisplay
				if !inDisplay {
					disp = trimmedTarget
				}
				valid = append(valid, Wikilink{
					Target:      trimmedTarget,
					DisplayText: disp,
					Span:        full,
				})
			}
		}

		markConsumed(consumed, start, j)
		i = j
	}

	return valid, invalid
}

// tagPattern, rawHTTPPattern and emailPattern back the regex-driven half
// of the post-scan sweep. emailPattern mirrors the character classes the
// vault's own input validation uses for addresses, loosened to match
// mid-string rather than anchoring a whole field.
var (
	tagPattern     = regexp.MustCompile(`\b#[A-Za-z0-9_\-]+`)
	rawHTTPPattern = regexp.MustCompile(`\bhttps?://[^\s]+`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// lexPostScan runs over whatever the wikilink and image passes left
// unconsumed, looking for constructs that aren't valid or invalid
// wikilinks but are still worth flagging: an unterminated inline-code
// span, a stray `]]`/`[` that never paired up, and bare tags, URLs, and
// email addresses (all of which join the back-populate exclusion set,
// since a known display text appearing inside one of them should never
// be rewritten into a wikilink).
func (l *Lexer) lexPostScan(line string, exclusions []Span, consumed []bool) []ParsedInvalidWikilink {
	var out []ParsedInvalidWikilink

	if span, ok := UnclosedInlineCodeSpan(line); ok {
		out = append(out, ParsedInvalidWikilink{
			Content: line[span.Start:span.End],
			Reason:  UnclosedInlineCode,
			Span:    span,
		})
		markConsumed(consumed, span.Start, span.End)
	}

	masked := make([]bool, len(line))
	for i := range masked {
		masked[i] = isConsumed(consumed, i) || Excluded(Span{Start: i, End: i + 1}, exclusions)
	}

	out = append(out, bracketSweep(line, masked)...)
	out = append(out, regexSweep(line, masked)...)
	return out
}

// bracketSweep looks for an unmatched `]]` (with no preceding `[[` to
// close) or a `[` with no later `]` anywhere on the line, over the
// unmasked bytes of line.
func bracketSweep(line string, masked []bool) []ParsedInvalidWikilink {
	var out []ParsedInvalidWikilink
	boundary := 0

	i := 0
	for i < len(line) {
		if masked[i] {
			i++
			continue
		}
		if line[i] == ']' && i+1 < len(line) && line[i+1] == ']' && !masked[i+1] {
			out = append(out, ParsedInvalidWikilink{
				Content: line[boundary : i+2],
				Reason:  UnmatchedClosing,
				Span:    Span{Start: boundary, End: i + 2},
			})
			boundary = i + 2
			i += 2
			continue
		}
		if line[i] == '[' {
			hasClose := false
			for k := i + 1; k < len(line); k++ {
				if line[k] == ']' {
					hasClose = true
					break
				}
			}
			if !hasClose {
				out = append(out, ParsedInvalidWikilink{
					Content: line[i:len(line)],
					Reason:  UnmatchedMarkdownLinkOpening,
					Span:    Span{Start: i, End: len(line)},
				})
				return out
			}
		}
		i++
	}
	return out
}

// regexSweep applies tagPattern/rawHTTPPattern/emailPattern to a copy of
// line with every masked byte blanked to a space, preserving byte offsets
// so the reported spans still index into the original line.
func regexSweep(line string, masked []bool) []ParsedInvalidWikilink {
	buf := []byte(line)
	for i, m := range masked {
		if m {
			buf[i] = ' '
		}
	}
	blanked := string(buf)

	var out []ParsedInvalidWikilink
	for _, loc := range emailPattern.FindAllStringIndex(blanked, -1) {
		out = append(out, ParsedInvalidWikilink{
			Content: line[loc[0]:loc[1]],
			Reason:  EmailAddress,
			Span:    Span{Start: loc[0], End: loc[1]},
		})
	}
	for _, loc := range rawHTTPPattern.FindAllStringIndex(blanked, -1) {
		out = append(out, ParsedInvalidWikilink{
			Content: line[loc[0]:loc[1]],
			Reason:  RawHTTPLink,
			Span:    Span{Start: loc[0], End: loc[1]},
		})
	}
	for _, loc := range tagPattern.FindAllStringIndex(blanked, -1) {
		out = append(out, ParsedInvalidWikilink{
			Content: line[loc[0]:loc[1]],
			Reason:  Tag,
			Span:    Span{Start: loc[0], End: loc[1]},
		})
	}
	return out
}
