// Package embedding turns text into vectors. The primary path is a remote
// OpenAI-compatible embeddings endpoint; when it is unreachable a local
// deterministic fallback keeps retrieval alive with degraded quality.
package embedding

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/fridayhq/friday/internal/httpx"
	"github.com/fridayhq/friday/models"
)

const (
	// maxInputChars bounds the text sent to the provider per request.
	maxInputChars = 8000

	defaultModel   = "text-embedding-3-small"
	defaultTimeout = 20 * time.Second
)

// Config configures the remote client.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	Retries       int
	Backoff       time.Duration
	LocalFallback bool
}

// Client embeds text via the remote provider, falling back to the local
// encoder when configured to.
type Client struct {
	http          *httpx.Client
	baseURL       string
	apiKey        string
	model         string
	localFallback bool
	log           *log.Logger
}

func New(cfg Config, logger *log.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:          httpx.NewClient(cfg.Timeout, cfg.Retries, cfg.Backoff),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		localFallback: cfg.LocalFallback,
		log:           logger,
	}
}

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns a vector for text. Input longer than the provider bound is
// truncated. On remote failure the local fallback is used when enabled,
// otherwise ErrEmbeddingUnavailable wraps the cause.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) > maxInputChars {
		// The bound is in characters; cut on a rune boundary.
		if r := []rune(text); len(r) > maxInputChars {
			text = string(r[:maxInputChars])
		}
	}

	vec, err := c.remote(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !c.localFallback {
		c.log.Printf("provider failed, no fallback: %v", err)
		return nil, models.ErrEmbeddingUnavailable
	}
	c.log.Printf("provider failed, using local fallback: %v", err)
	return Local(text), nil
}

// EmbedChunks fills in the Embedding field of each chunk in place.
func (c *Client) EmbedChunks(ctx context.Context, chunks []models.ContentChunk) error {
	for i := range chunks {
		vec, err := c.Embed(ctx, chunks[i].Content)
		if err != nil {
			return err
		}
		chunks[i].Embedding = vec
	}
	return nil
}

func (c *Client) remote(ctx context.Context, text string) ([]float64, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, models.ErrEmbeddingUnavailable
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var resp embedResponse
	err := c.http.DoJSON(ctx, "POST", c.baseURL+"/embeddings", headers, embedRequest{Input: text, Model: c.model}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, models.ErrEmbeddingUnavailable
	}
	return resp.Data[0].Embedding, nil
}
