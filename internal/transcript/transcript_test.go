package transcript

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fridayhq/friday/models"
)

func TestIndexSearch(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	defer ix.Close()

	segs := []Segment{
		{ID: "s1", Speaker: "Dana", Text: "We agreed to move the launch date to March.", At: time.Now()},
		{ID: "s2", Speaker: "Lee", Text: "Budget review is scheduled for next Tuesday.", At: time.Now()},
		{ID: "s3", Speaker: "Dana", Text: "Someone should update the hiring plan.", At: time.Now()},
	}
	for _, s := range segs {
		if err := ix.Add(s); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	results, err := ix.Search("launch date", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected a hit for launch date")
	}
	top := results[0]
	if top.Origin != models.OriginTranscript || top.Source != "Dana" {
		t.Fatalf("unexpected top result %+v", top)
	}
	if !strings.Contains(top.Excerpts[0], "launch date") {
		t.Fatalf("excerpt missing matched text: %q", top.Excerpts[0])
	}
}

func TestIndexIgnoresBlankSegments(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	defer ix.Close()
	if err := ix.Add(Segment{ID: "s1", Text: "   "}); err != nil {
		t.Fatalf("add blank: %v", err)
	}
	if ix.Len() != 0 {
		t.Fatalf("blank segment was indexed")
	}
}

func TestIndexConcurrentAutoIDs(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	defer ix.Close()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := ix.Add(Segment{Text: fmt.Sprintf("caption number %d", i)}); err != nil {
				t.Errorf("add: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Generated ids must not collide, so every segment survives.
	if ix.Len() != n {
		t.Fatalf("expected %d segments, got %d", n, ix.Len())
	}
}

func TestIndexTextOrder(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	defer ix.Close()
	ix.Add(Segment{ID: "a", Speaker: "Dana", Text: "first line"})
	ix.Add(Segment{ID: "b", Text: "second line"})
	got := ix.Text()
	want := "Dana: first line\nsecond line"
	if got != want {
		t.Fatalf("transcript text mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestEnhanceShortPassthrough(t *testing.T) {
	in := "ok so we gonna"
	if got := Enhance(in); got != in {
		t.Fatalf("short fragment must pass through, got %q", got)
	}
}

func TestEnhanceCorrections(t *testing.T) {
	in := "so we gonna finalize the budget and i dont think the vendor cant make it, thats the the main risk here"
	got := Enhance(in)
	for _, want := range []string{"going to", "don't", "can't", "that's", "the main risk", " I "} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "the the") {
		t.Fatalf("doubled word survived: %q", got)
	}
}

func TestEnhancePreservesCase(t *testing.T) {
	in := "Gonna walk through the roadmap first and then open the floor for questions today"
	got := Enhance(in)
	if !strings.HasPrefix(got, "Going to") {
		t.Fatalf("leading capitalization lost: %q", got)
	}
}

func TestFinalize(t *testing.T) {
	in := "we agreed on the budget. next step is the vendor call and dana owns the followup on hiring plans"
	got := Finalize(in)
	if !strings.HasPrefix(got, "We agreed") {
		t.Fatalf("sentence start not capitalized: %q", got)
	}
	if !strings.Contains(got, ". Next step") {
		t.Fatalf("mid-text sentence start not capitalized: %q", got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("missing terminal period: %q", got)
	}
}

func TestFinalizeEmpty(t *testing.T) {
	if got := Finalize("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
