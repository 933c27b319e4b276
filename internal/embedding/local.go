package embedding

import (
	"sort"
	"strings"
)

// LocalDims is the dimensionality of the fallback encoder. It intentionally
// differs from typical provider dimensionalities so mixed vectors never score
// against each other (cosine over mismatched lengths is zero).
const LocalDims = 300

const localCharWindow = 100

// Local is a deterministic bag-of-words encoder used when the remote provider
// is down. Dimensions 0-99 carry normalized term frequencies over the sorted
// vocabulary; dimensions 100-299 carry character-level features from the first
// hundred characters. Same input always produces the same vector.
func Local(text string) []float64 {
	vec := make([]float64, LocalDims)
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return vec
	}

	words := strings.Fields(lowered)
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	vocab := make([]string, 0, len(freq))
	for w := range freq {
		vocab = append(vocab, w)
	}
	sort.Strings(vocab)

	total := float64(len(words))
	for i, w := range vocab {
		vec[i%localCharWindow] += float64(freq[w]) / total
	}

	limit := len(lowered)
	if limit > localCharWindow {
		limit = localCharWindow
	}
	for i := 0; i < limit; i++ {
		idx := int(lowered[i])%200 + 100
		vec[idx] += 0.01
	}
	return vec
}
