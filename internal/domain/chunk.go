package domain

import (
	"fmt"
	"strings"
	"time"
)

// BlockType tags the structural origin of a chunk. It is only meaningful for
// chunks produced from partitioned documents; transcript and plain-text
// chunks are always "text".
type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeTable BlockType = "table"
	BlockTypeTitle BlockType = "title"
	BlockTypeOther BlockType = "other"
)

// NormalizeBlockType maps arbitrary partitioner categories onto the known
// block types. Unknown categories fall back to "other".
func NormalizeBlockType(category string) BlockType {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "", "text", "paragraph", "narrativetext", "narrative_text", "listitem", "list_item":
		return BlockTypeText
	case "table":
		return BlockTypeTable
	case "title", "header", "heading":
		return BlockTypeTitle
	default:
		return BlockTypeOther
	}
}

// Chunk is the atomic retrievable unit: a bounded span of source text with
// provenance metadata. Ordinals are contiguous from 0 within one source.
type Chunk struct {
	ID        string
	SourceID  string
	MeetingID string
	Ordinal   int
	Text      string
	StartMS   *int64
	EndMS     *int64
	BlockType BlockType
	Metadata  map[string]any
	VectorID  string
	CreatedAt time.Time
}

// ValidateChunk validates a Chunk instance.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if c.SourceID == "" {
		return fmt.Errorf("chunk SourceID is required")
	}
	if c.Ordinal < 0 {
		return fmt.Errorf("chunk Ordinal cannot be negative")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk Text cannot be empty")
	}
	return nil
}

// ValidateChunkSequence checks that a source's chunks are ordered 0..N-1
// with no gaps.
func ValidateChunkSequence(chunks []*Chunk) error {
	for i, c := range chunks {
		if err := ValidateChunk(c); err != nil {
			return err
		}
		if c.Ordinal != i {
			return fmt.Errorf("chunk ordinals must be contiguous from 0: got %d at position %d", c.Ordinal, i)
		}
	}
	return nil
}
