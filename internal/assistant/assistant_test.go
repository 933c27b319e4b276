package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fridayhq/friday/internal/convo"
	"github.com/fridayhq/friday/internal/llm"
	"github.com/fridayhq/friday/models"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

type fakeVectors struct {
	results []models.SearchResult
}

func (f fakeVectors) Query(ctx context.Context, embedding []float64, topK int, threshold float64) []models.SearchResult {
	return f.results
}

type fakeLibrary struct {
	refs     []models.FileRef
	contents map[string]string
	err      error
}

func (f fakeLibrary) ListFiles(ctx context.Context, folderLink string) ([]models.FileRef, error) {
	return f.refs, f.err
}

func (f fakeLibrary) FetchContents(ctx context.Context, folderLink string) (map[string]string, error) {
	return f.contents, f.err
}

type fakeGen struct {
	mu      sync.Mutex
	system  string
	turns   []models.Turn
	reply   string
	started chan struct{}
	proceed chan struct{}
}

func (f *fakeGen) Generate(ctx context.Context, system string, turns []models.Turn) (llm.Result, error) {
	f.mu.Lock()
	f.system = system
	f.turns = turns
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.proceed
	}
	return llm.Result{Text: f.reply, State: llm.StateSucceeded}, nil
}

func meeting() *models.Meeting {
	return &models.Meeting{
		ID:              "meet-1",
		OwnerID:         "user-1",
		Date:            "2026-03-04",
		Time:            "10:00",
		DriveFolderLink: "https://drive.google.com/drive/folders/abc123",
	}
}

func newAssistant(lib Library, vectors VectorSearcher, gen Generator) *Assistant {
	return New(fakeEmbedder{}, vectors, lib, nil, gen, convo.NewManager(), nil, nil)
}

func TestAnswerGuards(t *testing.T) {
	a := newAssistant(nil, fakeVectors{}, &fakeGen{reply: "x"})
	if _, err := a.Answer(context.Background(), meeting(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := a.Answer(context.Background(), nil, "question"); !errors.Is(err, models.ErrNoMeeting) {
		t.Fatalf("expected ErrNoMeeting, got %v", err)
	}
}

func TestAnswerQuickReply(t *testing.T) {
	gen := &fakeGen{reply: "should not be used"}
	a := newAssistant(nil, fakeVectors{}, gen)
	reply, err := a.Answer(context.Background(), meeting(), "Hello!")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply, "Ask me anything") {
		t.Fatalf("unexpected quick reply %q", reply)
	}
	if gen.system != "" {
		t.Fatalf("quick replies must not hit the generator")
	}
}

func TestAnswerInFlightGuard(t *testing.T) {
	gen := &fakeGen{reply: "slow answer", started: make(chan struct{}, 1), proceed: make(chan struct{})}
	lib := fakeLibrary{contents: map[string]string{"notes.txt": "the budget is fine"}}
	a := newAssistant(lib, fakeVectors{}, gen)

	done := make(chan error, 1)
	go func() {
		_, err := a.Answer(context.Background(), meeting(), "what about the budget")
		done <- err
	}()
	<-gen.started

	if _, err := a.Answer(context.Background(), meeting(), "another question"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(gen.proceed)
	if err := <-done; err != nil {
		t.Fatalf("first answer: %v", err)
	}

	// After completion the meeting accepts questions again.
	if _, err := a.Answer(context.Background(), meeting(), "what about the budget"); err != nil {
		t.Fatalf("post-completion answer: %v", err)
	}
}

func TestAnswerNoContextCannedReply(t *testing.T) {
	gen := &fakeGen{reply: "should not be used"}
	a := newAssistant(fakeLibrary{contents: map[string]string{}}, fakeVectors{}, gen)
	reply, err := a.Answer(context.Background(), meeting(), "what does report.docx say about hiring")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply != NoContextReply {
		t.Fatalf("expected canned no-context reply, got %q", reply)
	}
}

func TestAnswerComposesContext(t *testing.T) {
	gen := &fakeGen{reply: "the budget was approved"}
	lib := fakeLibrary{contents: map[string]string{
		"budget.txt": "The budget was approved in the last review session.",
	}}
	vectors := fakeVectors{results: []models.SearchResult{{
		Source: "budget.txt", Score: 0.9, Origin: models.OriginSemantic,
		Excerpts: []string{"budget approved after review"},
	}}}
	a := newAssistant(lib, vectors, gen)

	reply, err := a.Answer(context.Background(), meeting(), "was the budget approved")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply != "the budget was approved" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if !strings.Contains(gen.system, "[Source: budget.txt (combined)]") {
		t.Fatalf("system prompt missing merged context:\n%s", gen.system)
	}
	if gen.turns[len(gen.turns)-1].Content != "was the budget approved" {
		t.Fatalf("user turn missing from prompt window")
	}
}

func TestAnswerMeetingDetailsInPrompt(t *testing.T) {
	gen := &fakeGen{reply: "it is at 10:00"}
	a := newAssistant(nil, fakeVectors{}, gen)
	if _, err := a.Answer(context.Background(), meeting(), "when is this meeting happening"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(gen.system, "Meeting details: date 2026-03-04, time 10:00") {
		t.Fatalf("system prompt missing meeting details:\n%s", gen.system)
	}
}

func TestAnswerListsFiles(t *testing.T) {
	gen := &fakeGen{reply: "unused"}
	lib := fakeLibrary{refs: []models.FileRef{
		{ID: "1", Name: "agenda.docx"},
		{ID: "2", Name: "notes.txt"},
	}}
	a := newAssistant(lib, fakeVectors{}, gen)
	reply, err := a.Answer(context.Background(), meeting(), "what files are in the drive folder")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply, "agenda.docx") || !strings.Contains(reply, "notes.txt") {
		t.Fatalf("listing reply missing files: %q", reply)
	}
}

func TestAnswerSearchFilesByName(t *testing.T) {
	gen := &fakeGen{reply: "unused"}
	lib := fakeLibrary{refs: []models.FileRef{
		{ID: "1", Name: "Q3 Budget.xlsx"},
		{ID: "2", Name: "notes.txt"},
	}}
	a := newAssistant(lib, fakeVectors{}, gen)
	reply, err := a.Answer(context.Background(), meeting(), `find files named "budget"`)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply, "Q3 Budget.xlsx") || strings.Contains(reply, "notes.txt") {
		t.Fatalf("unexpected search reply %q", reply)
	}
}

func TestAnswerDeniedFolder(t *testing.T) {
	gen := &fakeGen{reply: "unused"}
	a := newAssistant(fakeLibrary{err: models.ErrAccessDenied}, fakeVectors{}, gen)
	reply, err := a.Answer(context.Background(), meeting(), "list the files in the folder")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply, "can't access") {
		t.Fatalf("expected access-denied reply, got %q", reply)
	}
}

func TestAnswerRecordsConversation(t *testing.T) {
	gen := &fakeGen{reply: "answer text"}
	manager := convo.NewManager()
	a := New(fakeEmbedder{}, fakeVectors{}, nil, nil, gen, manager, nil, nil)
	if _, err := a.Answer(context.Background(), meeting(), "a general question please"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if manager.Len("meet-1") != 2 {
		t.Fatalf("expected user and assistant turns recorded, got %d", manager.Len("meet-1"))
	}
}
