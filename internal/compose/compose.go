// Package compose merges retrieval results from the semantic, keyword and
// transcript paths into the single context block handed to the language model.
package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fridayhq/friday/models"
)

const (
	// MaxEntries caps how many sources make it into the prompt.
	MaxEntries = 5

	// semanticBoost nudges vector matches above keyword matches at equal
	// normalized score, since they already passed the similarity threshold.
	semanticBoost = 0.1
)

type entry struct {
	source   string
	origin   models.Origin
	score    float64
	excerpts []string
}

// Merge combines the three result lists into one ranked list. Scores are
// normalized per list so the weighting schemes do not need to agree. A source
// surfaced by both the semantic and keyword paths is merged into one combined
// entry with summed scores and concatenated excerpts.
func Merge(semantic, keyword, transcript []models.SearchResult) []models.SearchResult {
	byKey := make(map[string]*entry)
	var order []string

	add := func(results []models.SearchResult, boost float64) {
		max := maxScore(results)
		for _, r := range results {
			norm := r.Score
			if max > 0 {
				norm = r.Score / max
			}
			norm += boost
			key := string(r.Origin) + "|" + r.Source
			if r.Origin == models.OriginSemantic || r.Origin == models.OriginKeyword {
				key = "doc|" + r.Source
			}
			e, ok := byKey[key]
			if !ok {
				byKey[key] = &entry{source: r.Source, origin: r.Origin, score: norm, excerpts: r.Excerpts}
				order = append(order, key)
				continue
			}
			e.score += norm
			e.excerpts = append(e.excerpts, r.Excerpts...)
			if e.origin != r.Origin {
				e.origin = models.OriginCombined
			}
		}
	}

	add(semantic, semanticBoost)
	add(keyword, 0)
	add(transcript, 0)

	entries := make([]*entry, 0, len(order))
	for _, key := range order {
		entries = append(entries, byKey[key])
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	out := make([]models.SearchResult, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.SearchResult{
			Source:   e.source,
			Score:    e.score,
			Origin:   e.origin,
			Excerpts: dedupeStrings(e.excerpts),
		})
	}
	return out
}

// Render turns merged results into the labeled context block embedded in the
// system prompt. No results renders to the empty string so callers can detect
// a context-free query.
func Render(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s (%s)]\n", r.Source, r.Origin)
		b.WriteString(strings.Join(r.Excerpts, "\n"))
	}
	return b.String()
}

func maxScore(results []models.SearchResult) float64 {
	max := 0.0
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	return max
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
