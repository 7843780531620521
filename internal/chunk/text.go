// Package chunk implements C3: the text and AST-aware chunking strategies.
package chunk

import (
	"strings"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// TextOptions configures the text chunking strategy.
type TextOptions struct {
	TokenSize    int // default ~800 "tokens" (approximated as 4 characters each)
	TokenOverlap int // default ~150
}

// DefaultTextOptions returns the defaults named in §4.3.
func DefaultTextOptions() TextOptions {
	return TextOptions{TokenSize: 800, TokenOverlap: 150}
}

// Result is one produced chunk, prior to persistence assigning it an ID.
type Result struct {
	Index int
	Text  string
	Meta  domain.ChunkMetadata
}

// ChunkText splits text into overlapping chunks, respecting paragraph and
// sentence boundaries where available and never splitting inside a UTF-8
// code point (operating on []rune throughout guarantees this).
//
// Adapted from the teacher's whitespace-respecting splitter: chunk size
// and overlap are expressed in characters there; here they approximate
// "tokens" at ~4 characters each, matching the source system's heuristic.
func ChunkText(text string, opts TextOptions) []Result {
	size := opts.TokenSize * 4
	overlap := opts.TokenOverlap * 4
	if size <= 0 {
		size = 3200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	var results []Result
	runes := []rune(text)
	totalLen := len(runes)
	if totalLen == 0 {
		return results
	}

	index := 0
	start := 0

	for start < totalLen {
		end := start + size
		if end > totalLen {
			end = totalLen
		}

		// Prefer a paragraph boundary, then a sentence boundary, then any
		// whitespace boundary, before falling back to a hard cut.
		if end > start && end < totalLen {
			if boundary := findBoundary(runes, start, end); boundary > start {
				end = boundary
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			results = append(results, Result{
				Index: index,
				Text:  content,
				Meta:  domain.ChunkMetadata{Type: domain.ChunkText},
			})
			index++
		}

		if end >= totalLen {
			break
		}

		nextStart := end - overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		for nextStart < totalLen && !isWhitespace(runes[nextStart]) {
			nextStart++
		}
		for nextStart < totalLen && isWhitespace(runes[nextStart]) {
			nextStart++
		}

		start = nextStart
	}

	return results
}

// findBoundary looks backward from target for a paragraph break ("\n\n"),
// then a sentence end (". "), then any whitespace, within a bounded search
// window, returning start if nothing suitable was found.
func findBoundary(runes []rune, start, target int) int {
	maxSearch := (target - start) / 5
	if maxSearch < 50 {
		maxSearch = 50
	}
	if maxSearch > 500 {
		maxSearch = 500
	}
	low := target - maxSearch
	if low < start {
		low = start
	}

	// Paragraph boundary.
	for i := target; i > low+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Sentence boundary.
	for i := target; i > low; i-- {
		if (runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?') && i < len(runes) && isWhitespace(runes[i]) {
			return i + 1
		}
	}
	// Any whitespace, searching backward then forward.
	for i := 0; i < maxSearch && target-i > start; i++ {
		if isWhitespace(runes[target-i]) {
			return target - i
		}
	}
	for i := 1; i < maxSearch && target+i < len(runes); i++ {
		if isWhitespace(runes[target+i]) {
			return target + i
		}
	}
	return start
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
