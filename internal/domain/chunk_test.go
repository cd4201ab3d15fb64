package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBlockType(t *testing.T) {
	tests := []struct {
		category string
		want     BlockType
	}{
		{"", BlockTypeText},
		{"text", BlockTypeText},
		{"NarrativeText", BlockTypeText},
		{"paragraph", BlockTypeText},
		{"ListItem", BlockTypeText},
		{"Table", BlockTypeTable},
		{"Title", BlockTypeTitle},
		{"heading", BlockTypeTitle},
		{"Image", BlockTypeOther},
		{"PageBreak", BlockTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBlockType(tt.category))
		})
	}
}

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{
		ID:        "chunk1",
		SourceID:  "src1",
		MeetingID: "meeting1",
		Ordinal:   0,
		Text:      "some text",
		BlockType: BlockTypeText,
	}
	require.NoError(t, ValidateChunk(valid))

	tests := []struct {
		name   string
		mutate func(c *Chunk)
		errMsg string
	}{
		{"missing ID", func(c *Chunk) { c.ID = "" }, "ID"},
		{"missing SourceID", func(c *Chunk) { c.SourceID = "" }, "SourceID"},
		{"negative ordinal", func(c *Chunk) { c.Ordinal = -1 }, "Ordinal"},
		{"empty text", func(c *Chunk) { c.Text = "" }, "Text"},
		{"whitespace text", func(c *Chunk) { c.Text = "   \n\t" }, "Text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *valid
			tt.mutate(&c)
			err := ValidateChunk(&c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateChunkSequence(t *testing.T) {
	mk := func(ordinal int) *Chunk {
		return &Chunk{
			ID:       "chunk" + string(rune('a'+ordinal)),
			SourceID: "src1",
			Ordinal:  ordinal,
			Text:     "text",
		}
	}

	require.NoError(t, ValidateChunkSequence([]*Chunk{mk(0), mk(1), mk(2)}))
	require.NoError(t, ValidateChunkSequence(nil))

	err := ValidateChunkSequence([]*Chunk{mk(0), mk(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contiguous")
}
