package vector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fridayhq/friday/internal/chunk"
	"github.com/fridayhq/friday/models"
)

// Embedder is satisfied by the embedding client.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []models.ContentChunk) error
}

// Ledger records which documents have already been indexed so repeated
// ingestion of unchanged content is skipped.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// LedgerKey identifies a document by normalized name plus content length, so
// a renamed-but-identical or re-downloaded file is not re-embedded while an
// edited file is.
func LedgerKey(name string, contentLen int) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(strings.TrimSpace(name)), contentLen)
}

// Indexer runs the ingest pipeline: split, embed, upsert, record.
type Indexer struct {
	splitter *chunk.Splitter
	embedder Embedder
	store    *Client
	ledger   Ledger
	log      *log.Logger
}

func NewIndexer(splitter *chunk.Splitter, embedder Embedder, store *Client, ledger Ledger, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	return &Indexer{splitter: splitter, embedder: embedder, store: store, ledger: ledger, log: logger}
}

// Index ingests one document. Returns the number of vectors written; zero with
// a nil error means the document was already indexed or empty.
func (ix *Indexer) Index(ctx context.Context, name, content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, nil
	}
	key := LedgerKey(name, len(content))
	if ix.ledger != nil {
		seen, err := ix.ledger.Seen(ctx, key)
		if err != nil {
			ix.log.Printf("ledger read failed, indexing anyway: %v", err)
		} else if seen {
			return 0, nil
		}
	}

	chunks := ix.splitter.Split(name, content)
	if err := ix.embedder.EmbedChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}
	count, err := ix.store.Upsert(ctx, chunks)
	if err != nil {
		return count, fmt.Errorf("upsert %s: %w", name, err)
	}
	if ix.ledger != nil {
		if err := ix.ledger.Mark(ctx, key); err != nil {
			ix.log.Printf("ledger write failed for %s: %v", name, err)
		}
	}
	return count, nil
}

// MemoryLedger is a process-local Ledger for tests and cache-less deployments.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Seen(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok, nil
}

func (l *MemoryLedger) Mark(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key] = struct{}{}
	return nil
}
