// Package chunk splits source documents into bounded pieces for embedding.
// Splits happen at paragraph boundaries; paragraphs larger than the limit are
// split at sentence boundaries, and a single oversized sentence is sliced at
// a fixed size so no chunk ever exceeds the provider's input bound.
package chunk

import (
	"fmt"
	"strings"

	"github.com/fridayhq/friday/models"
)

// DefaultSize keeps each chunk within embedding-provider token limits.
const DefaultSize = 1000

// Splitter carries the chunking parameters.
type Splitter struct {
	Size int
}

// NewSplitter returns a Splitter with the given chunk size, defaulting when
// size is not positive.
func NewSplitter(size int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Splitter{Size: size}
}

// Split breaks text from the named source into ordered chunks. Concatenating
// the chunk contents in order reproduces the document's paragraphs, modulo
// whitespace normalization at boundaries. Empty input yields no chunks.
func (s *Splitter) Split(source, text string) []models.ContentChunk {
	var chunks []models.ContentChunk
	var current strings.Builder
	index := 0

	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		if content == "" {
			return
		}
		chunks = append(chunks, models.ContentChunk{
			ID:        fmt.Sprintf("%s_chunk_%d", source, index),
			Source:    source,
			Index:     index,
			Content:   content,
			WordCount: len(strings.Fields(content)),
		})
		index++
	}

	for _, para := range paragraphs(text) {
		if current.Len() > 0 && current.Len()+len(para)+2 > s.Size {
			flush()
		}
		if len(para) <= s.Size {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}
		// Oversized paragraph: flush whatever is pending, then split it on
		// sentence boundaries.
		flush()
		for _, piece := range splitLarge(para, s.Size) {
			if current.Len() > 0 && current.Len()+len(piece)+1 > s.Size {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(piece)
		}
		flush()
	}
	flush()
	return chunks
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitLarge breaks an oversized paragraph into sentences; any single
// sentence still larger than the limit is sliced at the limit, on rune
// boundaries so multi-byte characters never get cut in half.
func splitLarge(para string, size int) []string {
	var out []string
	for _, sentence := range sentences(para) {
		if len(sentence) <= size {
			out = append(out, sentence)
			continue
		}
		runes := []rune(sentence)
		for len(runes) > size {
			out = append(out, string(runes[:size]))
			runes = runes[size:]
		}
		if len(runes) > 0 {
			out = append(out, string(runes))
		}
	}
	return out
}

func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
