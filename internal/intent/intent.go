// Package intent routes a user query to one of a fixed set of categories
// using an ordered pattern table. Precedence is the declaration order of the
// table: the first category with any matching pattern wins.
package intent

import (
	"regexp"
	"strings"
)

// Intent is a discrete classification of a query's purpose.
type Intent string

const (
	DriveFiles        Intent = "drive_files"
	FileContent       Intent = "file_content"
	MeetingTranscript Intent = "meeting_transcript"
	SearchFiles       Intent = "search_files"
	FileSearch        Intent = "file_search"
	General           Intent = "general"
)

// Rule binds one intent to the patterns that select it.
type Rule struct {
	Intent   Intent
	Patterns []*regexp.Regexp
}

// documentExt matches queries that end in a known document extension, which
// short-circuits classification to FileContent before the table is consulted.
var documentExt = regexp.MustCompile(`\.(docx?|pdf|txt|pptx?|xlsx?|csv|md|rtf)\s*[?.!]?\s*$`)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// rules is evaluated top to bottom; overlapping patterns across categories are
// resolved purely by this order.
var rules = []Rule{
	{DriveFiles, compile(
		`\b(show|list|display)\s+(me\s+)?(the\s+)?(drive\s+folder|documents|files|docs|drive\s+files)\b`,
		`\bwhat(?:'s|\s+is)\s+in\s+(the\s+)?(drive|folder)\b`,
		`\bdrive\s+folder\b`,
	)},
	{FileContent, compile(
		`\b(open|read|summar(?:ize|ise|y))\b.*\.\w{2,5}\b`,
		`\bcontents?\s+of\b.*\.\w{2,5}\b`,
		`\bwhat\s+does\s+\S+\.\w{2,5}\s+say\b`,
	)},
	{MeetingTranscript, compile(
		`\b(discuss(?:ed)?|talk(?:ed)?\s+about|said|mention(?:ed)?|decided?|agreed?)\b`,
		`\b(transcript|conversation|recording)\b`,
		`\bwhat\s+did\s+(we|they|i)\b`,
		`\baction\s+items?\b`,
		`\bnext\s+steps?\b`,
	)},
	{SearchFiles, compile(
		`\b(find|search|look\s+(?:for|up))\b.*\b(file|doc|document|spreadsheet|presentation)s?\b`,
	)},
	{FileSearch, compile(
		`\b(find|search)\b`,
		`\blook.*\bfor\b`,
	)},
}

// Classify maps a query to an Intent. It is a pure function of the query text,
// never errors, and falls through to General for anything unmatched (including
// empty or whitespace-only input).
func Classify(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return General
	}
	if documentExt.MatchString(q) {
		return FileContent
	}
	for _, r := range rules {
		for _, p := range r.Patterns {
			if p.MatchString(q) {
				return r.Intent
			}
		}
	}
	return General
}

// Rules exposes the priority table so callers (and tests) can verify the
// declared precedence rather than relying on implicit ordering.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
