package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"slidebank/internal/model"
)

// Suggestion proposes merging two near-duplicate keywords. It is only a
// proposal; nothing merges without user confirmation.
type Suggestion struct {
	A     model.Keyword
	B     model.Keyword
	Score float64
}

// SuggestMerges proposes keyword pairs whose text similarity is at or above
// threshold (0..1), best matches first. It is a pure function over the
// current keyword set; scores are recomputed on every call.
func (g *Graph) SuggestMerges(projectID string, threshold float64) ([]Suggestion, error) {
	keywords, err := g.st.ListKeywords(projectID)
	if err != nil {
		return nil, err
	}
	return SuggestOver(keywords, threshold), nil
}

// SuggestOver scores every pair in the given keyword set.
func SuggestOver(keywords []model.Keyword, threshold float64) []Suggestion {
	var out []Suggestion
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			score := Similarity(keywords[i].Text, keywords[j].Text)
			if score >= threshold && score < 1.0001 {
				out = append(out, Suggestion{A: keywords[i], B: keywords[j], Score: score})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].A.Text != out[j].A.Text {
			return out[i].A.Text < out[j].A.Text
		}
		return out[i].B.Text < out[j].B.Text
	})
	return out
}

// Similarity is a normalized levenshtein ratio in 0..1, case-insensitive.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	return 1 - float64(distance)/float64(longest)
}
