// Package assistant orchestrates the answer pipeline: classify the question,
// gather context from documents and the live transcript, compose a prompt and
// generate a reply through the provider chain.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fridayhq/friday/internal/compose"
	"github.com/fridayhq/friday/internal/convo"
	"github.com/fridayhq/friday/internal/intent"
	"github.com/fridayhq/friday/internal/lexical"
	"github.com/fridayhq/friday/internal/llm"
	"github.com/fridayhq/friday/internal/telemetry"
	"github.com/fridayhq/friday/internal/vector"
	"github.com/fridayhq/friday/models"
)

// ErrBusy is returned while a previous question for the same meeting is still
// being answered.
var ErrBusy = errors.New("a question for this meeting is already being processed")

// ErrEmptyQuery rejects blank questions before any work happens.
var ErrEmptyQuery = errors.New("empty query")

// NoContextReply is returned for document and transcript questions when
// retrieval finds nothing to ground an answer on.
const NoContextReply = "I couldn't find anything in this meeting's documents or transcript that answers that. Try rephrasing, or check that the Drive folder is linked and accessible."

const (
	topK      = vector.DefaultTopK
	threshold = vector.DefaultThreshold
	maxFiles  = 20
)

// meetingRe detects questions about the meeting itself, which pull the
// meeting details into the system prompt.
var meetingRe = regexp.MustCompile(`(?i)\b(meeting|call|standup|sync|session|agenda|schedule)\b`)

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

var quickReplies = map[string]string{
	"hello":     "Hello! Ask me anything about this meeting, its documents or the transcript.",
	"hi":        "Hi! Ask me anything about this meeting, its documents or the transcript.",
	"hey":       "Hey! Ask me anything about this meeting, its documents or the transcript.",
	"thanks":    "You're welcome!",
	"thank you": "You're welcome!",
	"help":      "I can answer questions about this meeting's Drive documents, search them for you, list the folder contents, or recall what was said in the transcript.",
}

// Embedder is the query-embedding dependency.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorSearcher is the semantic retrieval dependency.
type VectorSearcher interface {
	Query(ctx context.Context, embedding []float64, topK int, threshold float64) []models.SearchResult
}

// Library provides the meeting's documents: the folder listing and the
// downloaded text contents.
type Library interface {
	ListFiles(ctx context.Context, folderLink string) ([]models.FileRef, error)
	FetchContents(ctx context.Context, folderLink string) (map[string]string, error)
}

// TranscriptSearcher searches the live transcript of a meeting session.
type TranscriptSearcher interface {
	SearchTranscript(ctx context.Context, meetingID, query string, k int) ([]models.SearchResult, error)
}

// Generator is the chat-completion dependency.
type Generator interface {
	Generate(ctx context.Context, system string, turns []models.Turn) (llm.Result, error)
}

// ChatStore persists conversation turns.
type ChatStore interface {
	AppendChatMessage(ctx context.Context, meetingID, role, content string) error
}

type Assistant struct {
	embed       Embedder
	vectors     VectorSearcher
	library     Library
	transcripts TranscriptSearcher
	gen         Generator
	convo       *convo.Manager
	chats       ChatStore
	log         *log.Logger
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

func New(embed Embedder, vectors VectorSearcher, library Library, transcripts TranscriptSearcher, gen Generator, conversations *convo.Manager, chats ChatStore, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.Default()
	}
	if conversations == nil {
		conversations = convo.NewManager()
	}
	return &Assistant{
		embed:       embed,
		vectors:     vectors,
		library:     library,
		transcripts: transcripts,
		gen:         gen,
		convo:       conversations,
		chats:       chats,
		log:         logger,
		now:         time.Now,
		inflight:    make(map[string]bool),
	}
}

// Answer runs the full pipeline for one question. Only one question per
// meeting runs at a time; concurrent calls get ErrBusy.
func (a *Assistant) Answer(ctx context.Context, meeting *models.Meeting, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if meeting == nil {
		return "", models.ErrNoMeeting
	}

	if reply, ok := quickReplies[strings.ToLower(strings.TrimRight(query, "!. "))]; ok {
		return reply, nil
	}

	if !a.acquire(meeting.ID) {
		return "", ErrBusy
	}
	defer a.release(meeting.ID)

	started := a.now()
	kind := intent.Classify(query)
	telemetry.QueriesTotal.WithLabelValues(string(kind)).Inc()
	a.log.Printf("meeting=%s intent=%s", meeting.ID, kind)

	var reply string
	var err error
	switch kind {
	case intent.DriveFiles:
		reply, err = a.listFiles(ctx, meeting)
	case intent.SearchFiles, intent.FileSearch:
		reply, err = a.searchFiles(ctx, meeting, query, kind)
	default:
		reply, err = a.answerWithContext(ctx, meeting, query, kind)
	}
	if err != nil {
		return "", err
	}

	a.record(ctx, meeting.ID, query, reply)
	telemetry.AnswerLatency.Observe(a.now().Sub(started).Seconds())
	return reply, nil
}

func (a *Assistant) acquire(meetingID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight[meetingID] {
		return false
	}
	a.inflight[meetingID] = true
	return true
}

func (a *Assistant) release(meetingID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inflight, meetingID)
}

func (a *Assistant) record(ctx context.Context, meetingID, query, reply string) {
	a.convo.Append(meetingID, models.Turn{Role: models.RoleUser, Content: query})
	a.convo.Append(meetingID, models.Turn{Role: models.RoleAssistant, Content: reply})
	if a.chats == nil {
		return
	}
	if err := a.chats.AppendChatMessage(ctx, meetingID, models.RoleUser, query); err != nil {
		a.log.Printf("persist user turn: %v", err)
	}
	if err := a.chats.AppendChatMessage(ctx, meetingID, models.RoleAssistant, reply); err != nil {
		a.log.Printf("persist assistant turn: %v", err)
	}
}

// listFiles answers "what files are in the folder" directly from the listing.
func (a *Assistant) listFiles(ctx context.Context, meeting *models.Meeting) (string, error) {
	if a.library == nil || meeting.DriveFolderLink == "" {
		return "This meeting has no Drive folder linked, so there are no files to list.", nil
	}
	refs, err := a.library.ListFiles(ctx, meeting.DriveFolderLink)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			return "I can't access the linked Drive folder. Check that it is shared with me.", nil
		}
		return "", err
	}
	if len(refs) == 0 {
		return "The linked Drive folder is empty.", nil
	}
	return formatFileList("Here's what's in the meeting folder:", refs), nil
}

// searchFiles filters the folder listing by name. A quoted phrase in the
// query is matched verbatim; otherwise each significant word may match.
func (a *Assistant) searchFiles(ctx context.Context, meeting *models.Meeting, query string, kind intent.Intent) (string, error) {
	if a.library == nil || meeting.DriveFolderLink == "" {
		return NoContextReply, nil
	}
	refs, err := a.library.ListFiles(ctx, meeting.DriveFolderLink)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			return "I can't access the linked Drive folder. Check that it is shared with me.", nil
		}
		return "", err
	}

	terms := searchTerms(query)
	var matched []models.FileRef
	for _, ref := range refs {
		name := strings.ToLower(ref.Name)
		for _, term := range terms {
			if strings.Contains(name, term) {
				matched = append(matched, ref)
				break
			}
		}
	}
	if len(matched) == 0 {
		// Fall back to searching file contents instead of names.
		return a.answerWithContext(ctx, meeting, query, kind)
	}
	return formatFileList("These files match:", matched), nil
}

// answerWithContext is the retrieval-augmented path: gather semantic, keyword
// and transcript context, compose the prompt and generate.
func (a *Assistant) answerWithContext(ctx context.Context, meeting *models.Meeting, query string, kind intent.Intent) (string, error) {
	semantic := a.semanticResults(ctx, query)
	keyword := a.keywordResults(ctx, meeting, query)
	spoken := a.transcriptResults(ctx, meeting.ID, query)

	merged := compose.Merge(semantic, keyword, spoken)
	contextBlock := compose.Render(merged)

	if contextBlock == "" && kind != intent.General {
		return NoContextReply, nil
	}

	system := a.systemPrompt(meeting, query, kind, contextBlock)
	turns := append(a.convo.Window(meeting.ID), models.Turn{Role: models.RoleUser, Content: query})

	res, err := a.gen.Generate(ctx, system, turns)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (a *Assistant) semanticResults(ctx context.Context, query string) []models.SearchResult {
	if a.embed == nil || a.vectors == nil {
		return nil
	}
	embedding, err := a.embed.Embed(ctx, query)
	if err != nil {
		a.log.Printf("query embedding failed, skipping semantic path: %v", err)
		return nil
	}
	return a.vectors.Query(ctx, embedding, topK, threshold)
}

func (a *Assistant) keywordResults(ctx context.Context, meeting *models.Meeting, query string) []models.SearchResult {
	if a.library == nil || meeting.DriveFolderLink == "" {
		return nil
	}
	contents, err := a.library.FetchContents(ctx, meeting.DriveFolderLink)
	if err != nil {
		a.log.Printf("fetching folder contents failed, skipping keyword path: %v", err)
		return nil
	}
	return lexical.SearchMap(contents, query, topK)
}

func (a *Assistant) transcriptResults(ctx context.Context, meetingID, query string) []models.SearchResult {
	if a.transcripts == nil {
		return nil
	}
	results, err := a.transcripts.SearchTranscript(ctx, meetingID, query, topK)
	if err != nil {
		a.log.Printf("transcript search failed: %v", err)
		return nil
	}
	return results
}

func (a *Assistant) systemPrompt(meeting *models.Meeting, query string, kind intent.Intent, contextBlock string) string {
	var b strings.Builder
	b.WriteString("You are Friday, a meeting assistant. Answer using only the provided context and conversation. Be concise. If the context does not contain the answer, say so.")

	if kind == intent.MeetingTranscript || meetingRe.MatchString(query) {
		fmt.Fprintf(&b, "\n\nMeeting details: date %s, time %s (%s).", meeting.Date, meeting.Time, meetingStatus(meeting, a.now()))
		if meeting.MeetingLink != "" {
			fmt.Fprintf(&b, " Link: %s", meeting.MeetingLink)
		}
	}

	if contextBlock != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(contextBlock)
	}
	return b.String()
}

// meetingStatus classifies the meeting date against today.
func meetingStatus(meeting *models.Meeting, now time.Time) string {
	d, err := time.Parse("2006-01-02", meeting.Date)
	if err != nil {
		return "date unknown"
	}
	today := now.Format("2006-01-02")
	switch {
	case meeting.Date == today:
		return "today"
	case d.After(now):
		return "upcoming"
	default:
		return "past"
	}
}

func searchTerms(query string) []string {
	if m := quotedRe.FindStringSubmatch(query); m != nil {
		return []string{strings.ToLower(m[1])}
	}
	stop := map[string]bool{
		"find": true, "search": true, "file": true, "files": true, "document": true,
		"documents": true, "named": true, "called": true, "for": true, "the": true,
		"any": true, "with": true, "that": true, "contain": true, "containing": true,
		"there": true, "are": true, "folder": true, "drive": true,
	}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `?.,!"'`)
		if len(w) >= 3 && !stop[w] {
			out = append(out, w)
		}
	}
	return out
}

func formatFileList(header string, refs []models.FileRef) string {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	var b strings.Builder
	b.WriteString(header)
	for i, ref := range refs {
		if i == maxFiles {
			fmt.Fprintf(&b, "\n...and %d more", len(refs)-maxFiles)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(ref.Name)
	}
	return b.String()
}
