// Package report renders the outcome of a maintenance pass as a single
// Markdown document: one table per concern (back-populate matches,
// ambiguous matches, invalid wikilinks, image classification, persisted
// files), in the style of a vault-maintenance changelog a human would
// actually read. Frontmatter date repairs have no table of their own; they
// appear as reasons in the persisted-files table.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vaultkeep/vaultkeep/internal/imageasset"
	"github.com/vaultkeep/vaultkeep/internal/persist"
	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
)

// Builder accumulates a report section by section.
type Builder struct {
	sections []string
}

// New returns an empty report builder.
func New() *Builder {
	return &Builder{}
}

// String renders the accumulated sections, separated by blank lines.
func (b *Builder) String() string {
	return strings.Join(b.sections, "\n\n") + "\n"
}

func (b *Builder) add(section string) {
	if section != "" {
		b.sections = append(b.sections, section)
	}
}

type backPopulateRow struct {
	file string
	line int
	text string
	repl string
}

// WriteBackPopulateMatches renders one table per distinct display text
// among every file's unambiguous matches, grouped and sorted the way a
// reviewer would scan them: alphabetically by the text that was found.
func (b *Builder) WriteBackPopulateMatches(files []*vaultfile.MarkdownFile) {
	byText := make(map[string][]backPopulateRow)
	for _, mf := range files {
		for _, m := range mf.Matches.Unambiguous {
			key := strings.ToLower(m.FoundText)
			byText[key] = append(byText[key], backPopulateRow{file: mf.Stem, line: m.LineNumber, text: m.FoundText, repl: m.Replacement})
		}
	}
	if len(byText) == 0 {
		return
	}

	keys := sortedKeys(byText)
	var buf strings.Builder
	buf.WriteString("## Back-populate matches\n\n")
	for _, key := range keys {
		rows := byText[key]
		sort.Slice(rows, func(i, j int) bool { return rows[i].file < rows[j].file })
		files := make(map[string]bool)
		for _, r := range rows {
			files[r.file] = true
		}
		fmt.Fprintf(&buf, "### found: \"%s\" (%d occurrences in %d files)\n\n", rows[0].text, len(rows), len(files))
		buf.WriteString("| file | line | will replace with |\n")
		buf.WriteString("|---|---:|---|\n")
		for _, r := range rows {
			fmt.Fprintf(&buf, "| %s | %d | `%s` |\n", escapePipe(r.file), r.line, escapePipe(r.repl))
		}
		buf.WriteString("\n")
	}
	b.add(strings.TrimRight(buf.String(), "\n"))
}

// WriteAmbiguousMatches renders the matches held back because their
// display text resolves to more than one canonical target.
func (b *Builder) WriteAmbiguousMatches(files []*vaultfile.MarkdownFile) {
	var buf strings.Builder
	count := 0
	buf.WriteString("## Ambiguous matches (not back-populated)\n\n")
	buf.WriteString("| file | line | text |\n")
	buf.WriteString("|---|---:|---|\n")
	for _, mf := range files {
		for _, m := range mf.Matches.Ambiguous {
			fmt.Fprintf(&buf, "| %s | %d | %s |\n", escapePipe(mf.Stem), m.LineNumber, escapePipe(m.FoundText))
			count++
		}
	}
	if count == 0 {
		return
	}
	b.add(strings.TrimRight(buf.String(), "\n"))
}

// WriteInvalidWikilinks renders every malformed wikilink the lexer
// rejected, grouped by reason.
func (b *Builder) WriteInvalidWikilinks(files []*vaultfile.MarkdownFile) {
	var buf strings.Builder
	count := 0
	buf.WriteString("## Invalid wikilinks\n\n")
	buf.WriteString("| file | line | reason | text |\n")
	buf.WriteString("|---|---:|---|---|\n")
	for _, mf := range files {
		for _, inv := range mf.InvalidWikilinks {
			fmt.Fprintf(&buf, "| %s | %d | %s | %s |\n", escapePipe(mf.Stem), inv.LineNumber, inv.Reason.String(), escapePipe(inv.Content))
			count++
		}
	}
	if count == 0 {
		return
	}
	b.add(strings.TrimRight(buf.String(), "\n"))
}

// WriteImageClassification renders one section per non-trivial image
// state: unreferenced, incompatible, and duplicate groups, with
// human-readable byte sizes.
func (b *Builder) WriteImageClassification(images []*imageasset.ImageFile) {
	var unreferenced, incompatible []*imageasset.ImageFile
	duplicateGroups := make(map[string][]*imageasset.ImageFile)

	for _, img := range images {
		switch img.State.Kind {
		case imageasset.Unreferenced:
			unreferenced = append(unreferenced, img)
		case imageasset.Incompatible:
			incompatible = append(incompatible, img)
		case imageasset.Duplicate, imageasset.DuplicateKeeper:
			duplicateGroups[img.Hash] = append(duplicateGroups[img.Hash], img)
		}
	}

	var buf strings.Builder
	wrote := false

	if len(unreferenced) > 0 {
		wrote = true
		buf.WriteString("## Unreferenced images\n\n")
		buf.WriteString("| file | size |\n|---|---:|\n")
		sort.Slice(unreferenced, func(i, j int) bool { return unreferenced[i].RelativePath < unreferenced[j].RelativePath })
		for _, img := range unreferenced {
			fmt.Fprintf(&buf, "| %s | %s |\n", escapePipe(img.RelativePath), humanize.Bytes(uint64(img.Size)))
		}
		buf.WriteString("\n")
	}

	if len(incompatible) > 0 {
		wrote = true
		buf.WriteString("## Incompatible images\n\n")
		buf.WriteString("| file | reason | size |\n|---|---|---:|\n")
		sort.Slice(incompatible, func(i, j int) bool { return incompatible[i].RelativePath < incompatible[j].RelativePath })
		for _, img := range incompatible {
			fmt.Fprintf(&buf, "| %s | %s | %s |\n", escapePipe(img.RelativePath), img.State.IncompatibleReason.String(), humanize.Bytes(uint64(img.Size)))
		}
		buf.WriteString("\n")
	}

	if len(duplicateGroups) > 0 {
		wrote = true
		buf.WriteString("## Duplicate images\n\n")
		for _, hash := range sortedHashKeys(duplicateGroups) {
			group := duplicateGroups[hash]
			sort.Slice(group, func(i, j int) bool { return group[i].State.Kind == imageasset.DuplicateKeeper })
			fmt.Fprintf(&buf, "### hash: %s\n\n", hash)
			buf.WriteString("| file | status | references |\n|---|---|---:|\n")
			for _, img := range group {
				status := "duplicate (will be removed)"
				if img.State.Kind == imageasset.DuplicateKeeper {
					status = "keeper"
				}
				fmt.Fprintf(&buf, "| %s | %s | %d |\n", escapePipe(img.RelativePath), status, len(img.References))
			}
			buf.WriteString("\n")
		}
	}

	if wrote {
		b.add(strings.TrimRight(buf.String(), "\n"))
	}
}

// WritePersistSummary renders the files persist actually rewrote (or
// would rewrite), with the reasons that earned each one a rewrite, plus
// any images it removed.
func (b *Builder) WritePersistSummary(result *persist.Result) {
	if result == nil || (len(result.FilesPersisted) == 0 && len(result.ImagesDeleted) == 0) {
		return
	}

	var buf strings.Builder
	buf.WriteString("## Persisted files\n\n")
	if len(result.FilesPersisted) == 0 {
		buf.WriteString("None.\n\n")
	} else {
		buf.WriteString("| file | reasons |\n|---|---|\n")
		for _, f := range result.FilesPersisted {
			reasons := make([]string, 0, len(f.Reasons))
			for _, r := range f.Reasons {
				reasons = append(reasons, r.Kind.String())
			}
			fmt.Fprintf(&buf, "| %s | %s |\n", escapePipe(f.RelativePath), strings.Join(reasons, ", "))
		}
		buf.WriteString("\n")
	}

	if len(result.FilesSkipped) > 0 {
		fmt.Fprintf(&buf, "%d file(s) deferred to a future run by the process limit: %s\n\n",
			len(result.FilesSkipped), strings.Join(result.FilesSkipped, ", "))
	}

	if len(result.ImagesDeleted) > 0 {
		buf.WriteString("### Images removed\n\n")
		buf.WriteString("| file | reason |\n|---|---|\n")
		for _, d := range result.ImagesDeleted {
			fmt.Fprintf(&buf, "| %s | %s |\n", escapePipe(d.RelativePath), d.Reason)
		}
		buf.WriteString("\n")
	}

	b.add(strings.TrimRight(buf.String(), "\n"))
}

func escapePipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func sortedKeys(m map[string][]backPopulateRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedHashKeys(m map[string][]*imageasset.ImageFile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
