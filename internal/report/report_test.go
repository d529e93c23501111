package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
	"github.com/vaultkeep/vaultkeep/internal/imageasset"
	"github.com/vaultkeep/vaultkeep/internal/persist"
	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

func ts() frontmatter.UTCTime {
	return frontmatter.NewUTCTime(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
}

func TestWriteBackPopulateMatchesGroupsByFoundText(t *testing.T) {
	mf, err := vaultfile.New("/vault/other.md", "other.md", "This is Test Link here.\n", ts(), ts())
	require.NoError(t, err)
	mf.Matches.Unambiguous = []vaultfile.BackPopulateMatch{
		{FoundText: "Test Link", Replacement: "[[Test Link]]", LineNumber: 1},
	}

	b := New()
	b.WriteBackPopulateMatches([]*vaultfile.MarkdownFile{mf})
	out := b.String()

	assert.Contains(t, out, "Back-populate matches")
	assert.Contains(t, out, "Test Link")
	assert.Contains(t, out, "other")
}

func TestWriteBackPopulateMatchesEmptyWhenNoMatches(t *testing.T) {
	mf, err := vaultfile.New("/vault/other.md", "other.md", "nothing here\n", ts(), ts())
	require.NoError(t, err)

	b := New()
	b.WriteBackPopulateMatches([]*vaultfile.MarkdownFile{mf})
	assert.Equal(t, "\n", b.String())
}

func TestWriteAmbiguousMatches(t *testing.T) {
	mf, err := vaultfile.New("/vault/a.md", "a.md", "See Widget here.\n", ts(), ts())
	require.NoError(t, err)
	mf.Matches.Ambiguous = []vaultfile.BackPopulateMatch{
		{FoundText: "Widget", Replacement: "[[Widget One|Widget]]", LineNumber: 1},
	}

	b := New()
	b.WriteAmbiguousMatches([]*vaultfile.MarkdownFile{mf})
	assert.Contains(t, b.String(), "Widget")
}

func TestWriteInvalidWikilinks(t *testing.T) {
	mf, err := vaultfile.New("/vault/a.md", "a.md", "oops [[unterminated\n", ts(), ts())
	require.NoError(t, err)
	require.NotEmpty(t, mf.InvalidWikilinks)

	b := New()
	b.WriteInvalidWikilinks([]*vaultfile.MarkdownFile{mf})
	assert.Contains(t, b.String(), "Invalid wikilinks")
}

func TestWriteImageClassificationListsDuplicatesAndIncompatible(t *testing.T) {
	images := []*imageasset.ImageFile{
		{RelativePath: "keep.jpg", Hash: "h1", Size: 100, State: imageasset.State{Kind: imageasset.DuplicateKeeper, Hash: "h1"}},
		{RelativePath: "dup.jpg", Hash: "h1", Size: 100, State: imageasset.State{Kind: imageasset.Duplicate, Hash: "h1"}},
		{RelativePath: "scan.tiff", Size: 200, State: imageasset.State{Kind: imageasset.Incompatible, IncompatibleReason: wikilink.IncompatibleTiff}},
		{RelativePath: "orphan.png", Size: 50, State: imageasset.State{Kind: imageasset.Unreferenced}},
	}

	b := New()
	b.WriteImageClassification(images)
	out := b.String()
	assert.Contains(t, out, "dup.jpg")
	assert.Contains(t, out, "scan.tiff")
	assert.Contains(t, out, "orphan.png")
}

func TestWritePersistSummary(t *testing.T) {
	result := &persist.Result{
		FilesPersisted: []persist.FileResult{
			{RelativePath: "a.md", Reasons: []frontmatter.PersistReason{{Kind: frontmatter.BackPopulated}}},
		},
		FilesSkipped:  []string{"b.md"},
		ImagesDeleted: []persist.ImageDeletion{{RelativePath: "dup.jpg", Reason: "duplicate of h1"}},
	}

	b := New()
	b.WritePersistSummary(result)
	out := b.String()
	assert.Contains(t, out, "a.md")
	assert.Contains(t, out, "b.md")
	assert.Contains(t, out, "dup.jpg")
}
