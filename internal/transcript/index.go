// Package transcript holds the live meeting transcript: an in-memory BM25
// index over caption segments for retrieval, and the cleanup pass applied to
// raw captions before they are stored.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/fridayhq/friday/models"
)

const snippetLen = 300

// Segment is one captured caption line.
type Segment struct {
	ID      string    `json:"id"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Index is a per-meeting, memory-only search index over transcript segments.
// It lives for the duration of the meeting session; the durable transcript
// text is persisted separately.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	meta  map[string]Segment
	order []string
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]Segment)}, nil
}

// Add indexes a segment. Blank text is ignored.
func (ix *Index) Add(seg Segment) error {
	if strings.TrimSpace(seg.Text) == "" {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if seg.ID == "" {
		seg.ID = fmt.Sprintf("seg_%d", len(ix.order))
	}
	if _, exists := ix.meta[seg.ID]; !exists {
		ix.order = append(ix.order, seg.ID)
	}
	ix.meta[seg.ID] = seg
	return ix.bleve.Index(seg.ID, seg)
}

// Search runs a BM25 query over the segments and returns transcript-origin
// results, best first.
func (ix *Index) Search(q string, k int) ([]models.SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" || k <= 0 {
		return nil, nil
	}
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, err := ix.bleve.Search(req)
	if err != nil {
		return nil, err
	}
	var out []models.SearchResult
	for _, hit := range res.Hits {
		seg := ix.meta[hit.ID]
		label := "transcript"
		if seg.Speaker != "" {
			label = seg.Speaker
		}
		out = append(out, models.SearchResult{
			Source:   label,
			Score:    hit.Score,
			Origin:   models.OriginTranscript,
			Excerpts: []string{snippet(seg.Text)},
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// Text returns the full transcript in capture order, one line per segment.
func (ix *Index) Text() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var b strings.Builder
	for _, id := range ix.order {
		seg := ix.meta[id]
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Len reports the number of indexed segments.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	return ix.bleve.Close()
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}
