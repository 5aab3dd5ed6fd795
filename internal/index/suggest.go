package index

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// suggestion pairs a candidate symbol name with its similarity score.
type suggestion struct {
	name  string
	score float64
}

// SuggestSymbols returns up to max symbol names similar to name, ranked by
// Jaro-Winkler similarity. Used as a "did you mean" fallback when an exact
// lookup misses; disabled entirely when fuzzy search is off in config.
func (ix *Index) SuggestSymbols(name string, max int) []string {
	if !ix.cfg.Search.Fuzzy || name == "" {
		return nil
	}
	if max <= 0 {
		max = 5
	}

	seen := make(map[string]bool)
	var candidates []suggestion
	for _, sym := range ix.table {
		if seen[sym.Name] {
			continue
		}
		seen[sym.Name] = true
		score, err := edlib.StringsSimilarity(name, sym.Name, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) >= ix.cfg.Search.FuzzyThreshold {
			candidates = append(candidates, suggestion{name: sym.Name, score: float64(score)})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	out := make([]string, 0, max)
	for _, c := range candidates {
		if len(out) == max {
			break
		}
		out = append(out, c.name)
	}
	return out
}
