package vector

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fridayhq/friday/internal/chunk"
	"github.com/fridayhq/friday/models"
)

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"mismatched length", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tc := range cases {
		got := Cosine(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: got %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestCosineBounded(t *testing.T) {
	a := []float64{0.3, -0.7, 1.2, 0.05}
	b := []float64{-0.4, 0.9, 0.1, 2.0}
	got := Cosine(a, b)
	if got < -1-1e-9 || got > 1+1e-9 {
		t.Fatalf("cosine out of range: %f", got)
	}
}

func TestUpsertBatchesAndCounts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upsert" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		var req struct {
			Namespace string `json:"namespace"`
			Vectors   []struct {
				ID       string `json:"id"`
				Metadata struct {
					Filename string `json:"filename"`
					Content  string `json:"content"`
				} `json:"metadata"`
			} `json:"vectors"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Namespace != "files" {
			t.Errorf("unexpected namespace %q", req.Namespace)
		}
		for _, v := range req.Vectors {
			if len(v.Metadata.Content) > contentPreview {
				t.Errorf("metadata content not capped: %d", len(v.Metadata.Content))
			}
		}
		json.NewEncoder(w).Encode(map[string]int{"upsertedCount": len(req.Vectors)})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Namespace: "files"}, nil)
	var chunks []models.ContentChunk
	for i := 0; i < upsertBatch+10; i++ {
		chunks = append(chunks, models.ContentChunk{
			ID:        "doc_chunk_" + string(rune('0'+i%10)),
			Source:    "doc",
			Index:     i,
			Content:   strings.Repeat("x", contentPreview+100),
			Embedding: []float64{0.1, 0.2},
		})
	}
	count, err := c.Upsert(context.Background(), chunks)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if count != upsertBatch+10 {
		t.Fatalf("expected %d upserted, got %d", upsertBatch+10, count)
	}
	if calls != 2 {
		t.Fatalf("expected 2 batches, got %d", calls)
	}
}

func TestUpsertSkipsUnembedded(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, nil)
	count, err := c.Upsert(context.Background(), []models.ContentChunk{{ID: "a", Content: "text"}})
	if err != nil || count != 0 {
		t.Fatalf("expected 0, nil for unembedded chunks, got %d, %v", count, err)
	}
}

func TestQueryFiltersByThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "a_chunk_0", "score": 0.91, "filename": "a.txt", "chunkIndex": 0, "content": "strong match"},
			{"id": "b_chunk_2", "score": 0.60, "filename": "b.txt", "chunkIndex": 2, "content": "weak match"},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	results := c.Query(context.Background(), []float64{0.1}, 5, DefaultThreshold)
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	r := results[0]
	if r.Source != "a.txt" || r.Origin != models.OriginSemantic || r.ChunkIndex != 0 {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestQueryStoreFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	if got := c.Query(context.Background(), []float64{0.1}, 5, 0); got != nil {
		t.Fatalf("expected nil on store failure, got %+v", got)
	}
}

type staticEmbedder struct{}

func (staticEmbedder) EmbedChunks(ctx context.Context, chunks []models.ContentChunk) error {
	for i := range chunks {
		chunks[i].Embedding = []float64{1, 0}
	}
	return nil
}

func TestIndexerSkipsSeenDocuments(t *testing.T) {
	var upserts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upserts++
		var req upsertRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]int{"upsertedCount": len(req.Vectors)})
	}))
	defer srv.Close()

	ix := NewIndexer(chunk.NewSplitter(0), staticEmbedder{}, New(Config{BaseURL: srv.URL}, nil), NewMemoryLedger(), nil)

	count, err := ix.Index(context.Background(), "Notes.txt", "meeting notes content")
	if err != nil || count != 1 {
		t.Fatalf("first index: count=%d err=%v", count, err)
	}
	// Same content under a case/whitespace variant of the name is a no-op.
	count, err = ix.Index(context.Background(), "  notes.TXT ", "meeting notes content")
	if err != nil || count != 0 {
		t.Fatalf("second index: count=%d err=%v", count, err)
	}
	if upserts != 1 {
		t.Fatalf("expected 1 upsert call, got %d", upserts)
	}

	// Changed content re-indexes.
	count, err = ix.Index(context.Background(), "notes.txt", "meeting notes content, revised")
	if err != nil || count != 1 {
		t.Fatalf("third index: count=%d err=%v", count, err)
	}
}
