package core

// suggest.go proposes a column-to-field mapping by fuzzy name matching.
//
// Names are normalized (lowercase, diacritics stripped, punctuation folded to
// spaces) and compared with a pluggable SimilarityFunc. The default blends
// edit-distance ratio, token overlap and substring containment. Suggestions
// are never applied automatically.

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMatchThreshold is the minimum similarity a column needs to be suggested.
const DefaultMatchThreshold = 0.6

// minContainmentLen keeps very short names from matching inside longer ones.
const minContainmentLen = 3

// SimilarityFunc scores two already-normalized names in [0, 1].
// A score of 1 means the names are equivalent.
type SimilarityFunc func(a, b string) float64

// Suggestion is the suggester's output for one schema.
type Suggestion struct {
	Mapping    FieldMapping       `json:"suggestedMapping"`
	Confidence map[string]float64 `json:"mappingConfidence"`
}

// Suggester proposes field mappings.
type Suggester struct {
	Similarity SimilarityFunc
	Threshold  float64
}

// NewSuggester returns a suggester using DefaultSimilarity.
func NewSuggester(threshold float64) *Suggester {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &Suggester{Similarity: DefaultSimilarity, Threshold: threshold}
}

// Suggest picks, for each schema field, the source column with the highest
// score at or above the threshold. Ties keep the leftmost column. Two fields
// may be given the same column.
func (s *Suggester) Suggest(columns []string, schema EntitySchema) Suggestion {
	sim := s.Similarity
	if sim == nil {
		sim = DefaultSimilarity
	}

	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = Normalize(c)
	}

	out := Suggestion{
		Mapping:    make(FieldMapping),
		Confidence: make(map[string]float64),
	}

	for _, field := range schema.Fields {
		names := fieldNames(field)

		bestCol, bestScore := "", 0.0
		for i, col := range normalized {
			score := 0.0
			for _, name := range names {
				if v := sim(name, col); v > score {
					score = v
				}
			}
			if score > bestScore {
				bestCol, bestScore = columns[i], score
			}
		}

		if bestCol != "" && bestScore >= s.Threshold {
			out.Mapping[field.Key] = bestCol
			out.Confidence[field.Key] = bestScore
		}
	}
	return out
}

// fieldNames returns the normalized names a field can be recognized by.
func fieldNames(f FieldDef) []string {
	names := make([]string, 0, 2+len(f.Aliases))
	names = append(names, Normalize(f.Key), Normalize(f.Label))
	for _, a := range f.Aliases {
		names = append(names, Normalize(a))
	}
	return names
}

// Normalize lowercases s, strips diacritics and turns every run of
// non-alphanumeric characters into a single space.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}

// DefaultSimilarity is the maximum of three signals:
//   - edit-distance ratio over the names with spaces removed
//   - Jaccard overlap of word tokens
//   - containment of one compacted name in the other, scaled by length ratio
func DefaultSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ca, cb := strings.ReplaceAll(a, " ", ""), strings.ReplaceAll(b, " ", "")
	if ca == cb {
		return 1
	}

	score := editRatio(ca, cb)
	if j := jaccard(strings.Fields(a), strings.Fields(b)); j > score {
		score = j
	}
	if c := containment(ca, cb); c > score {
		score = c
	}
	return score
}

func editRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func containment(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < minContainmentLen || !strings.Contains(long, short) {
		return 0
	}
	return 0.5 + 0.5*float64(len(short))/float64(len(long))
}
