package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyInput(t *testing.T) {
	assert.Empty(t, Chunk("", DefaultConfig()))
	assert.Empty(t, Chunk("   \n\t  ", DefaultConfig()))
}

func TestChunkShortInputSingleChunk(t *testing.T) {
	text := "A short meeting note that easily fits in one chunk."
	chunks := Chunk("  "+text+"\n", DefaultConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkRespectsSizeBound(t *testing.T) {
	cfg := Config{ChunkSize: 25, Overlap: 5}
	maxChars := cfg.ChunkSize * charsPerToken

	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("Every sentence here ends with a period and a space. ")
	}

	chunks := Chunk(b.String(), cfg)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), maxChars, "chunk %d exceeds bound", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta. ", 8)
	text := para + "\n\n" + para + "\n\n" + para

	cfg := Config{ChunkSize: 60, Overlap: 0}
	chunks := Chunk(text, cfg)

	require.Greater(t, len(chunks), 1)
	// With zero overlap every source word survives into some chunk.
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "alpha beta gamma delta.")
}

func TestChunkOverlapCarriesTrailingContext(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("segment number marker word item token value entry. ")
	}

	cfg := Config{ChunkSize: 30, Overlap: 10}
	chunks := Chunk(b.String(), cfg)
	require.Greater(t, len(chunks), 1)

	overlapChars := cfg.Overlap * charsPerToken
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tailLen := overlapChars / 2
		if tailLen > len(prev) {
			tailLen = len(prev)
		}
		tail := strings.TrimSpace(string(prev[len(prev)-tailLen:]))
		require.NotEmpty(t, tail)
		assert.Contains(t, chunks[i], tail, "chunk %d does not carry context from chunk %d", i, i-1)
	}
}

func TestChunkHardSplitsUnbrokenRun(t *testing.T) {
	cfg := Config{ChunkSize: 10, Overlap: 0}
	maxChars := cfg.ChunkSize * charsPerToken

	run := strings.Repeat("x", maxChars*3+7)
	chunks := Chunk(run, cfg)

	require.Len(t, chunks, 4)
	assert.Equal(t, maxChars*3+7, len(strings.Join(chunks, "")))
	for _, c := range chunks[:3] {
		assert.Len(t, c, maxChars)
	}
}

func TestChunkDeterministic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("Discussion of roadmap items and action points for the week.\n")
	}

	cfg := Config{ChunkSize: 40, Overlap: 8}
	first := Chunk(b.String(), cfg)
	second := Chunk(b.String(), cfg)

	assert.Equal(t, first, second)
}

func TestChunkInvalidConfigFallsBackToDefaults(t *testing.T) {
	text := "A note that fits comfortably."
	chunks := Chunk(text, Config{ChunkSize: 0, Overlap: -3})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}
