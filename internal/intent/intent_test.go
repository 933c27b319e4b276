package intent

import "testing"

func TestClassifyExamples(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"show me the drive folder", DriveFiles},
		{"list the files", DriveFiles},
		{"display documents", DriveFiles},
		{"what did we discuss about budget", MeetingTranscript},
		{"what was mentioned in the conversation", MeetingTranscript},
		{"open report.docx", FileContent},
		{"summarize notes.pdf", FileContent},
		{"can you read the proposal.txt", FileContent},
		{"find the budget file", SearchFiles},
		{"search for the planning document", SearchFiles},
		{"find quarterly numbers", FileSearch},
		{"look around for something", FileSearch},
		{"xyz", General},
		{"hello there", General},
		{"", General},
		{"   ", General},
	}
	for _, c := range cases {
		if got := Classify(c.query); got != c.want {
			t.Errorf("Classify(%q) = %s, want %s", c.query, got, c.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	queries := []string{"show me the drive folder", "find x", "what did we say", "open a.pdf", ""}
	for _, q := range queries {
		first := Classify(q)
		for i := 0; i < 10; i++ {
			if got := Classify(q); got != first {
				t.Fatalf("Classify(%q) not deterministic: %s then %s", q, first, got)
			}
		}
	}
}

func TestExtensionShortCircuit(t *testing.T) {
	// A trailing document extension wins even when transcript keywords appear.
	if got := Classify("what did we discuss in minutes.docx"); got != FileContent {
		t.Fatalf("expected file_content, got %s", got)
	}
}

func TestRulesOrder(t *testing.T) {
	rs := Rules()
	wantOrder := []Intent{DriveFiles, FileContent, MeetingTranscript, SearchFiles, FileSearch}
	if len(rs) != len(wantOrder) {
		t.Fatalf("expected %d rules, got %d", len(wantOrder), len(rs))
	}
	for i, r := range rs {
		if r.Intent != wantOrder[i] {
			t.Errorf("rule %d: expected %s, got %s", i, wantOrder[i], r.Intent)
		}
	}
}
