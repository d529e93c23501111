package wikilink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexLine(line string) LineResult {
	inline := InlineCodeSpans(line)
	mdLinks := MarkdownLinkSpans(line)
	exclusions := append(inline, mdLinks...)
	return NewLexer().Lex(line, exclusions)
}

func TestLexSimpleWikilink(t *testing.T) {
	res := lexLine("See [[Test Link]] for details.")
	require.Len(t, res.Valid, 1)
	assert.Equal(t, "Test Link", res.Valid[0].Target)
	assert.Equal(t, "Test Link", res.Valid[0].DisplayText)
	assert.False(t, res.Valid[0].IsAlias())
}

func TestLexAliasedWikilink(t *testing.T) {
	res := lexLine("[[Target Page|Display Text]]")
	require.Len(t, res.Valid, 1)
	assert.Equal(t, "Target Page", res.Valid[0].Target)
	assert.Equal(t, "Display Text", res.Valid[0].DisplayText)
	assert.True(t, res.Valid[0].IsAlias())
}

func TestLexEscapedPipe(t *testing.T) {
	res := lexLine(`[[Target\|Name|Display]]`)
	require.Len(t, res.Valid, 1)
	assert.Equal(t, `Target|Name`, res.Valid[0].Target)
	assert.Equal(t, "Display", res.Valid[0].DisplayText)
}

func TestLexUnclosedWikilinkIsInvalid(t *testing.T) {
	res := lexLine("This has [[Unclosed link text")
	require.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, UnmatchedOpening, res.Invalid[0].Reason)
}

func TestLexEmptyWikilinkIsInvalid(t *testing.T) {
	res := lexLine("An empty [[]] link.")
	require.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, EmptyWikilink, res.Invalid[0].Reason)
}

func TestLexDoubleAliasIsInvalid(t *testing.T) {
	res := lexLine("[[Target|First|Second]]")
	require.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, DoubleAlias, res.Invalid[0].Reason)
}

func TestLexSkipsImageEmbed(t *testing.T) {
	res := lexLine("![[Target Page]]")
	assert.Empty(t, res.Valid)
	assert.Empty(t, res.Invalid)
}

func TestLexSkipsWikilinkInsideMarkdownLink(t *testing.T) {
	res := lexLine("See [a link with [[brackets]] inside](https://example.com)")
	assert.Empty(t, res.Valid)
}

func TestLexSkipsWikilinkInsideInlineCode(t *testing.T) {
	res := lexLine("Use `[[Not A Link]]` in code.")
	assert.Empty(t, res.Valid)
}

func TestLexMultipleWikilinksOnOneLine(t *testing.T) {
	res := lexLine("[[First]] and [[Second|Alt]] are both here.")
	require.Len(t, res.Valid, 2)
	assert.Equal(t, "First", res.Valid[0].Target)
	assert.Equal(t, "Second", res.Valid[1].Target)
}

func TestLexWikilinkImageEmbed(t *testing.T) {
	res := lexLine("![[diagram.png|300]]")
	require.Len(t, res.Images, 1)
	img := res.Images[0]
	assert.Equal(t, "diagram.png", img.Target)
	assert.Equal(t, "300", img.Size)
	assert.Equal(t, WikilinkSyntax, img.Syntax)
	assert.Equal(t, Embedded, img.Mode)
}

func TestLexWikilinkImageEmbedWithAlt(t *testing.T) {
	res := lexLine("![[diagram.png|a screenshot]]")
	require.Len(t, res.Images, 1)
	assert.Equal(t, "a screenshot", res.Images[0].Alt)
	assert.Empty(t, res.Images[0].Size)
}

func TestLexMarkdownImageEmbed(t *testing.T) {
	res := lexLine("![alt text](assets/photo.jpg)")
	require.Len(t, res.Images, 1)
	img := res.Images[0]
	assert.Equal(t, "assets/photo.jpg", img.Target)
	assert.Equal(t, "alt text", img.Alt)
	assert.Equal(t, MarkdownSyntax, img.Syntax)
}

func TestLexExternalImageLocality(t *testing.T) {
	res := lexLine("![alt](https://example.com/photo.png)")
	require.Len(t, res.Images, 1)
	assert.Equal(t, External, res.Images[0].Locality)
}

func TestClassifyImageLinkLowercasesFilename(t *testing.T) {
	raw := RawImageLink{Target: "Assets/Photo.PNG", Alt: "x"}
	img := ClassifyImageLink(raw, 3)
	assert.Equal(t, "photo.png", img.Filename)
	assert.Equal(t, "Assets/Photo.PNG", img.RelativePath)
	assert.Equal(t, StateFound, img.State.Kind)
}

func TestWikilinkLess(t *testing.T) {
	longer := Wikilink{Target: "a", DisplayText: "Longer Display"}
	shorter := Wikilink{Target: "b", DisplayText: "Short"}
	assert.True(t, Less(longer, shorter))
}

func TestLexUnmatchedSingleBracketInsideWikilinkIsInvalid(t *testing.T) {
	res := lexLine("[[Target[Oops]]")
	require.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, UnmatchedSingleInWikilink, res.Invalid[0].Reason)
}

func TestLexUnterminatedBacktickIsUnclosedInlineCode(t *testing.T) {
	res := lexLine("Use `unterminated code")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, UnclosedInlineCode, res.Invalid[0].Reason)
	assert.Equal(t, "`unterminated code", res.Invalid[0].Content)
}

func TestLexUnmatchedClosingBracketsIsInvalid(t *testing.T) {
	res := lexLine("See stray ]] here.")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, UnmatchedClosing, res.Invalid[0].Reason)
}

func TestLexUnmatchedMarkdownOpeningIsInvalid(t *testing.T) {
	res := lexLine("An orphan [ bracket.")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, UnmatchedMarkdownLinkOpening, res.Invalid[0].Reason)
}

func TestLexRawHTTPLinkIsInvalid(t *testing.T) {
	res := lexLine("Visit https://example.com/page for info.")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, RawHTTPLink, res.Invalid[0].Reason)
	assert.Equal(t, "https://example.com/page", res.Invalid[0].Content)
}

func TestLexEmailAddressIsInvalid(t *testing.T) {
	res := lexLine("Contact jane.doe@example.com for help.")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, EmailAddress, res.Invalid[0].Reason)
	assert.Equal(t, "jane.doe@example.com", res.Invalid[0].Content)
}

// The Tag regex is anchored with \b immediately before '#', which is
// itself a non-word character: the boundary only fires when '#' is
// directly preceded by a word character, not by whitespace or start of
// line. This mirrors the regex given in the post-scan sweep rules
// verbatim.
func TestLexTagAdjacentToWordCharIsInvalid(t *testing.T) {
	res := lexLine("Link2#project-tag end")
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, Tag, res.Invalid[0].Reason)
	assert.Equal(t, "#project-tag", res.Invalid[0].Content)
}

func TestExclusionTrackerFencedBlock(t *testing.T) {
	tr := NewExclusionTracker()
	assert.True(t, tr.ObserveLine("```go"))
	assert.True(t, tr.ObserveLine("var x = [[Not A Link]]"))
	assert.True(t, tr.ObserveLine("```"))
	assert.False(t, tr.ObserveLine("Normal [[Link]] text"))
}
