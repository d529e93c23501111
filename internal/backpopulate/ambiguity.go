package backpopulate

import (
	"sort"
	"strings"

	"github.com/vaultkeep/vaultkeep/internal/vaultfile"
	"github.com/vaultkeep/vaultkeep/internal/wikilinkindex"
)

// Classify builds the canonical-target and display-to-targets tables once
// across the whole index, then, for every file, moves any found-text
// group whose lowercased display text resolves to more than one
// canonical target from Unambiguous to Ambiguous.
func Classify(files []*vaultfile.MarkdownFile, idx *wikilinkindex.Index) {
	canonical := canonicalTargets(idx)
	displayToTargets := make(map[string]map[string]bool)
	for _, w := range idx.Entries {
		key := strings.ToLower(w.DisplayText)
		target := canonical[strings.ToLower(w.Target)]
		if target == "" {
			target = w.Target
		}
		if displayToTargets[key] == nil {
			displayToTargets[key] = make(map[string]bool)
		}
		displayToTargets[key][target] = true
	}

	for _, mf := range files {
		var kept []vaultfile.BackPopulateMatch
		for _, m := range mf.Matches.Unambiguous {
			if len(displayToTargets[strings.ToLower(m.FoundText)]) > 1 {
				mf.Matches.Ambiguous = append(mf.Matches.Ambiguous, m)
				continue
			}
			kept = append(kept, m)
		}
		mf.Matches.Unambiguous = kept
	}
}

// canonicalTargets maps lowercased target -> canonical target, preferring
// the lexicographically smallest all-lowercase occurrence, else the first
// one seen.
func canonicalTargets(idx *wikilinkindex.Index) map[string]string {
	canonical := make(map[string]string)
	lowercaseCandidates := make(map[string][]string)

	for _, w := range idx.Entries {
		key := strings.ToLower(w.Target)
		if _, ok := canonical[key]; !ok {
			canonical[key] = w.Target
		}
		if w.Target == key {
			lowercaseCandidates[key] = append(lowercaseCandidates[key], w.Target)
		}
	}

	for key, candidates := range lowercaseCandidates {
		sort.Strings(candidates)
		canonical[key] = candidates[0]
	}

	return canonical
}
