package models

import (
	"errors"
	"time"
)

// Origin identifies which retrieval path produced a search result.
type Origin string

const (
	OriginSemantic   Origin = "semantic"
	OriginKeyword    Origin = "keyword"
	OriginTranscript Origin = "transcript"
	// OriginCombined marks a result found by both the semantic and keyword paths.
	OriginCombined Origin = "combined"
)

// ContentChunk is the unit of searchable text. Long documents are split into
// chunks at paragraph boundaries so each chunk stays within embedding limits.
type ContentChunk struct {
	ID        string
	Source    string
	Index     int
	Content   string
	WordCount int
	Embedding []float64
}

// SearchResult is produced fresh per query and never persisted.
type SearchResult struct {
	Source     string
	ChunkIndex int
	Score      float64
	Origin     Origin
	Excerpts   []string
}

// Turn is a single message in a chat conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Meeting is the meeting context attached to every chat session.
type Meeting struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Date            string    `json:"meeting_date"`
	Time            string    `json:"meeting_time"`
	MeetingLink     string    `json:"meeting_link"`
	DriveFolderLink string    `json:"drive_folder_link"`
	CreatedAt       time.Time `json:"created_at"`
}

// FileRef points at a document in the external file store.
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mime_type"`
	WebViewLink string `json:"web_view_link"`
}

var (
	// ErrMeetingNotFound is returned when a meeting id does not exist.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrNoMeeting is returned when a chat flow is attempted without a selected meeting.
	ErrNoMeeting = errors.New("no meeting selected")
	// ErrAccessDenied is returned when the file store rejects access to a folder.
	ErrAccessDenied = errors.New("access denied to drive folder")
	// ErrEmbeddingUnavailable is returned when the embedding provider fails and
	// no local fallback is configured.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)
