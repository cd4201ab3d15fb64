// Package chunker splits raw text into overlapping bounded segments for
// embedding. Sizes are expressed in approximate tokens and converted with a
// fixed characters-per-token ratio.
package chunker

import (
	"strings"
)

// charsPerToken approximates tokens for sizing; exact tokenization is not a
// requirement of the splitter.
const charsPerToken = 4

// separators are tried in priority order: paragraph, line, sentence, word,
// and finally character-level hard split as last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Config controls chunk sizing in approximate token units.
type Config struct {
	ChunkSize int
	Overlap   int
}

// DefaultConfig provides the default chunking parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 500,
		Overlap:   50,
	}
}

// Chunk splits text into an ordered sequence of non-empty segments, each at
// most ChunkSize approximate tokens, re-introducing Overlap trailing context
// from the prior segment. Empty or whitespace-only input yields no chunks;
// input that already fits yields exactly one chunk equal to the trimmed
// input. Output is deterministic for identical input.
func Chunk(text string, cfg Config) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.ChunkSize <= 0 {
		cfg = DefaultConfig()
	}

	maxChars := cfg.ChunkSize * charsPerToken
	overlapChars := cfg.Overlap * charsPerToken
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	if len([]rune(clean)) <= maxChars {
		return []string{clean}
	}

	pieces := splitBySeparators(clean, separators, maxChars)
	return mergePieces(pieces, maxChars, overlapChars)
}

// splitBySeparators recursively splits text until every piece fits within
// maxChars runes. Separators are kept attached to the piece they terminate
// so no characters are lost.
func splitBySeparators(text string, seps []string, maxChars int) []string {
	if len([]rune(text)) <= maxChars {
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		return hardSplit(text, maxChars)
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		// Separator absent, fall through to the next priority.
		return splitBySeparators(text, seps[1:], maxChars)
	}

	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len([]rune(part)) > maxChars {
			pieces = append(pieces, splitBySeparators(part, seps[1:], maxChars)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// hardSplit cuts text into maxChars-rune slices. Last resort for a single
// run of characters with no usable boundary.
func hardSplit(text string, maxChars int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/maxChars+1)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// mergePieces accumulates pieces into chunks up to maxChars runes, seeding
// each new chunk with the last overlapChars runes of the flushed one.
func mergePieces(pieces []string, maxChars, overlapChars int) []string {
	chunks := make([]string, 0, len(pieces))
	var buf []rune

	flush := func() {
		chunk := strings.TrimSpace(string(buf))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if overlapChars > 0 && len(buf) > overlapChars {
			buf = append([]rune(nil), buf[len(buf)-overlapChars:]...)
		} else {
			buf = buf[:0]
		}
	}

	for _, piece := range pieces {
		runes := []rune(piece)
		if len(buf) > 0 && len(buf)+len(runes) > maxChars {
			flush()
		}
		// Shrink carried overlap if the next piece would not fit beside it.
		if over := len(buf) + len(runes) - maxChars; over > 0 && over <= len(buf) {
			buf = buf[over:]
		}
		buf = append(buf, runes...)
	}

	if chunk := strings.TrimSpace(string(buf)); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}
