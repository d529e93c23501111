package vaultfile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
)

func testTime() UTCTime {
	return frontmatter.NewUTCTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
}

func TestNewSplitsFrontmatterAndBody(t *testing.T) {
	content := "---\ndate_created: \"[[2024-05-01]]\"\naliases:\n  - Alt Name\n---\nThis is Test Link in a sentence.\n"
	mf, err := New("/vault/Note.md", "Note.md", content, testTime(), testTime())
	require.NoError(t, err)

	assert.Equal(t, "Note", mf.Stem)
	assert.Equal(t, 5, mf.FrontmatterLineCount)
	assert.Contains(t, mf.Body, "This is Test Link in a sentence.")
}

func TestNewAccumulatesSyntheticWikilinks(t *testing.T) {
	content := "---\naliases:\n  - Other Name\n---\nBody\n"
	mf, err := New("/vault/My Page.md", "My Page.md", content, testTime(), testTime())
	require.NoError(t, err)

	var targets []string
	for _, w := range mf.ValidWikilinks {
		targets = append(targets, w.Target)
	}
	assert.Contains(t, targets, "My Page")

	var foundAlias bool
	for _, w := range mf.ValidWikilinks {
		if w.DisplayText == "Other Name" && w.Target == "My Page" {
			foundAlias = true
		}
	}
	assert.True(t, foundAlias)
}

func TestNewCollectsValidWikilinksFromBody(t *testing.T) {
	content := "No frontmatter here.\n\nSee [[Target Page|Alt]] for more.\n"
	mf, err := New("/vault/note.md", "note.md", content, testTime(), testTime())
	require.NoError(t, err)

	var found bool
	for _, w := range mf.ValidWikilinks {
		if w.Target == "Target Page" && w.DisplayText == "Alt" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNewSkipsFencedCodeBlocks(t *testing.T) {
	content := "Intro\n\n```\n[[Not A Link]]\n```\n\nOutro [[Real Link]].\n"
	mf, err := New("/vault/note.md", "note.md", content, testTime(), testTime())
	require.NoError(t, err)

	for _, w := range mf.ValidWikilinks {
		assert.NotEqual(t, "Not A Link", w.Target)
	}
	var foundReal bool
	for _, w := range mf.ValidWikilinks {
		if w.Target == "Real Link" {
			foundReal = true
		}
	}
	assert.True(t, foundReal)
}

func TestDoNotBackPopulateRegexesCombinesAliasesAndConfig(t *testing.T) {
	content := "---\naliases:\n  - Foo\ndo_not_back_populate:\n  - Bar\n---\nBody\n"
	mf, err := New("/vault/note.md", "note.md", content, testTime(), testTime())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Foo", "Bar"}, mf.DoNotBackPopulateRegexes)
}
