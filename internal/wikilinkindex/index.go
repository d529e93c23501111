package wikilinkindex

import (
	"sort"

	"github.com/vaultkeep/vaultkeep/internal/wikilink"
)

// Index is the deduplicated, length-ordered table of every wikilink
// seen across the vault, paired with an Aho-Corasick automaton over
// display texts whose pattern indices align with the table.
type Index struct {
	Entries   []wikilink.Wikilink
	automaton *Automaton
}

// Build deduplicates links by (target, display_text), sorts by the total
// order defined for the vault, and compiles the matching automaton.
func Build(links []wikilink.Wikilink) *Index {
	seen := make(map[[2]string]bool)
	var unique []wikilink.Wikilink
	for _, l := range links {
		key := [2]string{l.Target, l.DisplayText}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, l)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return wikilink.Less(unique[i], unique[j])
	})

	patterns := make([]string, len(unique))
	for i, l := range unique {
		patterns[i] = l.DisplayText
	}

	return &Index{Entries: unique, automaton: NewAutomaton(patterns)}
}

// FindAll scans text for wikilink display-text occurrences, returning
// each match alongside the Wikilink it resolves to.
func (idx *Index) FindAll(text string) []ResolvedMatch {
	raw := idx.automaton.FindAll(text)
	out := make([]ResolvedMatch, 0, len(raw))
	for _, m := range raw {
		out = append(out, ResolvedMatch{
			Wikilink: idx.Entries[m.PatternIndex],
			Start:    m.Start,
			End:      m.End,
		})
	}
	return out
}

// ResolvedMatch is an automaton match already resolved to its Wikilink.
type ResolvedMatch struct {
	Wikilink wikilink.Wikilink
	Start    int
	End      int
}
