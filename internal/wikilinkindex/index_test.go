package wikilinkindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

func TestAutomatonFindsExactMatch(t *testing.T) {
	a := NewAutomaton([]string{"Amazon", "Test Link"})
	matches := a.FindAll("This is Test Link in a sentence.")
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].PatternIndex)
	assert.Equal(t, "Test Link", "This is Test Link in a sentence."[matches[0].Start:matches[0].End])
}

func TestAutomatonCaseInsensitive(t *testing.T) {
	a := NewAutomaton([]string{"Amazon"})
	matches := a.FindAll("amazon is also huge")
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, 6, matches[0].End)
}

func TestAutomatonLeftmostLongest(t *testing.T) {
	a := NewAutomaton([]string{"Test", "Test Link"})
	matches := a.FindAll("This is Test Link here.")
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].PatternIndex)
}

func TestAutomatonMultipleMatches(t *testing.T) {
	a := NewAutomaton([]string{"Amazon"})
	matches := a.FindAll("Amazon is huge\namazon is also huge")
	assert.Len(t, matches, 2)
}

func TestIndexDeduplicatesByTargetAndDisplay(t *testing.T) {
	links := []wikilink.Wikilink{
		{Target: "Amazon", DisplayText: "Amazon"},
		{Target: "Amazon", DisplayText: "Amazon"},
		{Target: "Amazon", DisplayText: "amazon"},
	}
	idx := Build(links)
	assert.Len(t, idx.Entries, 2)
}

func TestIndexOrdersByDisplayLengthDescending(t *testing.T) {
	links := []wikilink.Wikilink{
		{Target: "a", DisplayText: "Short"},
		{Target: "b", DisplayText: "Much Longer Display"},
	}
	idx := Build(links)
	require.Len(t, idx.Entries, 2)
	assert.Equal(t, "Much Longer Display", idx.Entries[0].DisplayText)
}

func TestIndexFindAllResolvesWikilink(t *testing.T) {
	links := []wikilink.Wikilink{{Target: "Test Link", DisplayText: "Test Link"}}
	idx := Build(links)
	matches := idx.FindAll("This is Test Link in a sentence.")
	require.Len(t, matches, 1)
	assert.Equal(t, "Test Link", matches[0].Wikilink.Target)
}
