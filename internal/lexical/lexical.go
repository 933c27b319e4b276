// Package lexical implements keyword search over in-memory text blobs
// (downloaded file contents, transcript segments). Scoring is a weighted
// overlap count: an exact phrase hit is worth far more than individual word
// occurrences, so whole-query matches dominate the ranking.
package lexical

import (
	"sort"
	"strings"

	"github.com/fridayhq/friday/models"
)

const (
	// phraseWeight is credited once when the full query appears verbatim.
	phraseWeight = 10
	// wordWeight is credited per occurrence of each query word longer than
	// two characters.
	wordWeight = 2

	maxExcerpts    = 3
	excerptMaxLen  = 200
	minWordLength  = 3
	defaultLimit   = 5
	phraseExcerpts = 10 // relevance assigned to excerpts containing the phrase
)

// Document is one searchable source.
type Document struct {
	ID   string
	Text string
}

// Search scores documents against the query and returns the top matches in
// descending score order. Ties keep the input order (stable sort). Sources
// that score zero are excluded. Malformed input yields an empty result, never
// a panic.
func Search(corpus []Document, query string, limit int) []models.SearchResult {
	query = strings.TrimSpace(query)
	if len(corpus) == 0 || query == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	loweredQuery := strings.ToLower(query)
	words := queryWords(loweredQuery)

	var results []models.SearchResult
	for _, doc := range corpus {
		if doc.Text == "" {
			continue
		}
		lowered := strings.ToLower(doc.Text)
		score := 0
		if strings.Contains(lowered, loweredQuery) {
			score += phraseWeight
		}
		for _, w := range words {
			score += wordWeight * strings.Count(lowered, w)
		}
		if score == 0 {
			continue
		}
		results = append(results, models.SearchResult{
			Source:   doc.ID,
			Score:    float64(score),
			Origin:   models.OriginKeyword,
			Excerpts: extractExcerpts(doc.Text, loweredQuery, words),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchMap is a convenience wrapper for callers holding a sourceID->text map.
// Keys are visited in sorted order so ties break deterministically.
func SearchMap(corpus map[string]string, query string, limit int) []models.SearchResult {
	if len(corpus) == 0 {
		return nil
	}
	ids := make([]string, 0, len(corpus))
	for id := range corpus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, Document{ID: id, Text: corpus[id]})
	}
	return Search(docs, query, limit)
}

func queryWords(loweredQuery string) []string {
	fields := strings.FieldsFunc(loweredQuery, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	})
	var out []string
	for _, f := range fields {
		if len(f) >= minWordLength {
			out = append(out, f)
		}
	}
	return out
}

// extractExcerpts picks up to three representative passages: first those
// containing the exact query phrase, then those containing at least two
// distinct query words, ranked by how many distinct words they contain.
func extractExcerpts(text, loweredQuery string, words []string) []string {
	passages := splitPassages(text)

	type scored struct {
		text      string
		relevance int
		pos       int
	}
	var candidates []scored
	for i, p := range passages {
		lowered := strings.ToLower(p)
		if strings.Contains(lowered, loweredQuery) {
			candidates = append(candidates, scored{p, phraseExcerpts, i})
			continue
		}
		matched := 0
		for _, w := range words {
			if strings.Contains(lowered, w) {
				matched++
			}
		}
		if matched >= 2 {
			candidates = append(candidates, scored{p, matched, i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].relevance > candidates[j].relevance })

	var out []string
	for _, c := range candidates {
		out = append(out, truncate(strings.TrimSpace(c.text), excerptMaxLen))
		if len(out) == maxExcerpts {
			break
		}
	}
	return out
}

// splitPassages breaks text into paragraphs, then falls back to sentences for
// single-paragraph blobs so excerpts stay readable.
func splitPassages(text string) []string {
	paras := splitNonEmpty(text, "\n\n")
	if len(paras) > 1 {
		return paras
	}
	return splitSentences(text)
}

func splitNonEmpty(text, sep string) []string {
	var out []string
	for _, p := range strings.Split(text, sep) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
