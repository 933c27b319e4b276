package server

import (
	"context"
	"sync"

	"github.com/fridayhq/friday/internal/transcript"
	"github.com/fridayhq/friday/models"
)

// SessionRegistry holds the live transcript index per meeting. Indexes are
// created lazily on the first caption and dropped when the meeting is
// finalized or deleted.
type SessionRegistry struct {
	mu      sync.Mutex
	indexes map[string]*transcript.Index
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{indexes: make(map[string]*transcript.Index)}
}

// Get returns the meeting's transcript index, creating it if needed.
func (r *SessionRegistry) Get(meetingID string) (*transcript.Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ix, ok := r.indexes[meetingID]; ok {
		return ix, nil
	}
	ix, err := transcript.NewIndex()
	if err != nil {
		return nil, err
	}
	r.indexes[meetingID] = ix
	return ix, nil
}

// Peek returns the index without creating one.
func (r *SessionRegistry) Peek(meetingID string) (*transcript.Index, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ix, ok := r.indexes[meetingID]
	return ix, ok
}

// Drop closes and forgets the meeting's index.
func (r *SessionRegistry) Drop(meetingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ix, ok := r.indexes[meetingID]; ok {
		ix.Close()
		delete(r.indexes, meetingID)
	}
}

// SearchTranscript implements the assistant's transcript dependency. A
// meeting without a live session simply has no transcript results.
func (r *SessionRegistry) SearchTranscript(ctx context.Context, meetingID, query string, k int) ([]models.SearchResult, error) {
	ix, ok := r.Peek(meetingID)
	if !ok {
		return nil, nil
	}
	return ix.Search(query, k)
}
