package server

import (
	"context"
	"log"

	"github.com/fridayhq/friday/internal/cache"
	"github.com/fridayhq/friday/internal/files"
	"github.com/fridayhq/friday/internal/telemetry"
	"github.com/fridayhq/friday/internal/vector"
	"github.com/fridayhq/friday/models"
)

// Library serves meeting documents to the assistant, fronting Drive with the
// Redis listing cache and feeding new content through the vector indexer.
type Library struct {
	drive   *files.Service
	cache   *cache.Cache
	indexer *vector.Indexer
	log     *log.Logger
}

func NewLibrary(drive *files.Service, c *cache.Cache, indexer *vector.Indexer, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.Default()
	}
	return &Library{drive: drive, cache: c, indexer: indexer, log: logger}
}

// ListFiles lists the folder behind a Drive link, via the cache when present.
func (l *Library) ListFiles(ctx context.Context, folderLink string) ([]models.FileRef, error) {
	folderID, err := files.ExtractFolderID(folderLink)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if refs, ok, err := l.cache.GetListing(ctx, folderID); err == nil && ok {
			return refs, nil
		}
	}
	refs, err := l.drive.List(ctx, folderID, "")
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if err := l.cache.SetListing(ctx, folderID, refs); err != nil {
			l.log.Printf("caching listing for %s: %v", folderID, err)
		}
	}
	return refs, nil
}

// FetchContents downloads the folder's text contents and pushes them through
// the indexer so the vector store stays current. Indexing failures do not
// block retrieval.
func (l *Library) FetchContents(ctx context.Context, folderLink string) (map[string]string, error) {
	folderID, err := files.ExtractFolderID(folderLink)
	if err != nil {
		return nil, err
	}
	contents, err := l.drive.FetchFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if l.indexer != nil {
		for name, content := range contents {
			count, err := l.indexer.Index(ctx, name, content)
			if err != nil {
				l.log.Printf("indexing %s: %v", name, err)
				continue
			}
			if count > 0 {
				telemetry.IndexedDocumentsTotal.Inc()
			}
		}
	}
	return contents, nil
}
