package noteservice

import (
	"slices"

	"github.com/hbollon/go-edlib"
)

// minSimilarity is the Jaro-Winkler score below which ids are not offered.
const minSimilarity = 0.7

// Suggest returns up to n declared note ids similar to id, best match first.
func (s *Service) Suggest(id string, n int) []string {
	if n <= 0 || id == "" {
		return []string{}
	}

	type scored struct {
		id    string
		score float32
	}
	var candidates []scored
	for _, note := range s.engine.Notes() {
		score, err := edlib.StringsSimilarity(id, note.ID, edlib.JaroWinkler)
		if err != nil || score < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{id: note.ID, score: score})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	out := make([]string, 0, min(n, len(candidates)))
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, c.id)
	}
	return out
}
