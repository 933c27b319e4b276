// Package vector talks to the vector-store proxy service and implements the
// similarity math used for semantic retrieval.
package vector

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/fridayhq/friday/internal/httpx"
	"github.com/fridayhq/friday/models"
)

const (
	// DefaultTopK is the number of neighbors requested per query.
	DefaultTopK = 5
	// DefaultThreshold filters out weak matches before they reach the context.
	DefaultThreshold = 0.75

	defaultTimeout = 30 * time.Second
	upsertBatch    = 100
	// contentPreview caps the metadata content stored per vector.
	contentPreview = 1000
)

// Config configures the proxy client.
type Config struct {
	BaseURL   string
	Namespace string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
}

// Client is the HTTP client for the vector-store proxy.
type Client struct {
	http      *httpx.Client
	baseURL   string
	namespace string
	log       *log.Logger
}

func New(cfg Config, logger *log.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:      httpx.NewClient(cfg.Timeout, cfg.Retries, cfg.Backoff),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		namespace: cfg.Namespace,
		log:       logger,
	}
}

type wireVector struct {
	ID       string    `json:"id"`
	Values   []float64 `json:"values"`
	Metadata struct {
		Filename   string `json:"filename"`
		ChunkIndex int    `json:"chunkIndex"`
		Content    string `json:"content"`
	} `json:"metadata"`
}

type upsertRequest struct {
	Namespace string       `json:"namespace"`
	Vectors   []wireVector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes embedded chunks to the store in batches. Chunks without an
// embedding are skipped. Batches fail independently; the count of vectors
// accepted by the store is returned along with the first batch error.
func (c *Client) Upsert(ctx context.Context, chunks []models.ContentChunk) (int, error) {
	var vectors []wireVector
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			continue
		}
		v := wireVector{ID: ch.ID, Values: ch.Embedding}
		v.Metadata.Filename = ch.Source
		v.Metadata.ChunkIndex = ch.Index
		v.Metadata.Content = truncate(ch.Content, contentPreview)
		vectors = append(vectors, v)
	}
	if len(vectors) == 0 {
		return 0, nil
	}

	total := 0
	var firstErr error
	for start := 0; start < len(vectors); start += upsertBatch {
		end := start + upsertBatch
		if end > len(vectors) {
			end = len(vectors)
		}
		var resp upsertResponse
		err := c.http.DoJSON(ctx, "POST", c.baseURL+"/upsert", nil, upsertRequest{
			Namespace: c.namespace,
			Vectors:   vectors[start:end],
		}, &resp)
		if err != nil {
			c.log.Printf("upsert batch %d-%d failed: %v", start, end, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += resp.UpsertedCount
	}
	return total, firstErr
}

type queryRequest struct {
	QueryEmbedding  []float64 `json:"queryEmbedding"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Namespace       string    `json:"namespace"`
}

type queryMatch struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
}

// Query returns the nearest neighbors above threshold as semantic search
// results, best first. Store failures degrade to an empty list so retrieval
// can fall back to the keyword path.
func (c *Client) Query(ctx context.Context, embedding []float64, topK int, threshold float64) []models.SearchResult {
	if len(embedding) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	var matches []queryMatch
	err := c.http.DoJSON(ctx, "POST", c.baseURL+"/search", nil, queryRequest{
		QueryEmbedding:  embedding,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       c.namespace,
	}, &matches)
	if err != nil {
		c.log.Printf("query failed: %v", err)
		return nil
	}

	var results []models.SearchResult
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Source:     m.Filename,
			ChunkIndex: m.ChunkIndex,
			Score:      m.Score,
			Origin:     models.OriginSemantic,
			Excerpts:   []string{m.Content},
		})
	}
	return results
}

type deleteRequest struct {
	Namespace string   `json:"namespace"`
	IDs       []string `json:"ids,omitempty"`
	DeleteAll bool     `json:"deleteAll,omitempty"`
}

// Delete removes the given vector ids; with no ids it clears the namespace.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	return c.http.DoJSON(ctx, "POST", c.baseURL+"/delete", nil, deleteRequest{
		Namespace: c.namespace,
		IDs:       ids,
		DeleteAll: len(ids) == 0,
	}, nil)
}

// Stats reports the vector count in the namespace.
func (c *Client) Stats(ctx context.Context) (int, error) {
	var resp struct {
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := c.http.DoJSON(ctx, "GET", c.baseURL+"/stats?namespace="+c.namespace, nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.TotalVectorCount, nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths and
// zero-norm vectors score zero rather than erroring, so callers can compare
// vectors from different encoders without special cases.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
