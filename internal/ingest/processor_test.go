package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/partition"
)

type fakeSources struct {
	src      *domain.Source
	statuses []domain.SourceStatus
}

func (f *fakeSources) GetByID(_ context.Context, id string) (*domain.Source, error) {
	if f.src == nil || f.src.ID != id {
		return nil, errors.New("source not found")
	}
	return f.src, nil
}

func (f *fakeSources) UpdateStatus(_ context.Context, _ string, status domain.SourceStatus, errorMessage string) error {
	f.src.Status = status
	f.src.ErrorMessage = errorMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeSources) SetRawText(_ context.Context, _, rawText string) error {
	f.src.RawText = rawText
	return nil
}

func (f *fakeSources) MarkEmbedded(_ context.Context, _ string, chunkCount int, embeddedAt time.Time) error {
	f.src.ChunkCount = chunkCount
	f.src.EmbeddingsCreatedAt = &embeddedAt
	return nil
}

func (f *fakeSources) ClearEmbedded(_ context.Context, _ string) error {
	f.src.ChunkCount = 0
	f.src.EmbeddingsCreatedAt = nil
	return nil
}

type fakeChunks struct {
	replaced [][]domain.Chunk
}

func (f *fakeChunks) ReplaceChunks(_ context.Context, _ string, chunks []domain.Chunk) error {
	f.replaced = append(f.replaced, chunks)
	return nil
}

type fakeIndex struct {
	upserts [][]domain.Chunk
	err     error
}

func (f *fakeIndex) UpsertChunks(_ context.Context, _ string, _ *domain.Source, chunks []domain.Chunk) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, chunks)
	return nil
}

type stubTranscriber struct {
	text string
	err  error
	urls []string
}

func (s *stubTranscriber) Transcribe(_ context.Context, audioURL string) (string, error) {
	s.urls = append(s.urls, audioURL)
	return s.text, s.err
}

type stubPartitioner struct {
	blocks []partition.Block
	err    error
}

func (s *stubPartitioner) Partition(_ context.Context, _ string) ([]partition.Block, error) {
	return s.blocks, s.err
}

type stubStorage struct {
	url string
}

func (s *stubStorage) Configured() bool { return s.url != "" }

func (s *stubStorage) PresignedURL(_ context.Context, _ string) (string, error) {
	return s.url, nil
}

type processorFixture struct {
	sources     *fakeSources
	chunks      *fakeChunks
	index       *fakeIndex
	transcriber *stubTranscriber
	partitioner *stubPartitioner
	storage     *stubStorage
	dataDir     string
	processor   *Processor
}

func newFixture(t *testing.T, src *domain.Source) *processorFixture {
	t.Helper()
	f := &processorFixture{
		sources:     &fakeSources{src: src},
		chunks:      &fakeChunks{},
		index:       &fakeIndex{},
		transcriber: &stubTranscriber{},
		partitioner: &stubPartitioner{},
		storage:     &stubStorage{},
		dataDir:     t.TempDir(),
	}
	f.processor = NewProcessor(
		f.sources, f.chunks, f.index,
		f.transcriber, f.partitioner, f.storage,
		f.dataDir, chunker.DefaultConfig(),
	)
	return f
}

func TestProcessTranscriptSource(t *testing.T) {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "Alpha discussed the budget. Beta raised the deadline."

	f := newFixture(t, src)
	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, domain.SourceStatusCompleted, src.Status)
	assert.NotNil(t, src.EmbeddingsCreatedAt)
	require.Len(t, f.index.upserts, 1)

	indexed := f.index.upserts[0]
	for i, c := range indexed {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, domain.BlockTypeText, c.BlockType)
		assert.NotEmpty(t, c.VectorID)
	}
}

func TestProcessEmptyTranscriptFails(t *testing.T) {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "   \n "

	f := newFixture(t, src)
	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	assert.ErrorIs(t, err, domain.ErrEmptySource)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
	assert.NotEmpty(t, src.ErrorMessage)
	assert.Nil(t, src.EmbeddingsCreatedAt)
	assert.Empty(t, f.index.upserts)
}

func TestProcessIdempotentShortCircuit(t *testing.T) {
	embeddedAt := time.Now().UTC()
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "already handled"
	src.Status = domain.SourceStatusCompleted
	src.ChunkCount = 3
	src.EmbeddingsCreatedAt = &embeddedAt

	f := newFixture(t, src)
	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Empty(t, f.index.upserts)
	assert.Empty(t, f.sources.statuses)
}

func TestProcessForceReingestsWithSameVectorIDs(t *testing.T) {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "Force me twice and get the same points."

	f := newFixture(t, src)
	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)
	require.NoError(t, err)

	_, err = f.processor.ProcessSource(context.Background(), src.ID, true)
	require.NoError(t, err)

	require.Len(t, f.index.upserts, 2)
	first, second := f.index.upserts[0], f.index.upserts[1]
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].VectorID, second[i].VectorID)
	}
}

func TestProcessTerminalFailureNotRetriedWithoutForce(t *testing.T) {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "text"
	src.Status = domain.SourceStatusFailed

	f := newFixture(t, src)
	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
	assert.Empty(t, f.index.upserts)
}

func TestProcessTextDocument(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "notes.txt", time.Now().UTC())
	src.StorageKey = "meeting-1/notes.txt"

	f := newFixture(t, src)
	path := filepath.Join(f.dataDir, src.StorageKey)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Minutes of the meeting. Decisions were made."), 0o644))

	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, domain.SourceStatusCompleted, src.Status)
	assert.Contains(t, src.RawText, "Minutes of the meeting.")
}

func TestProcessUnsupportedExtension(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "deck.pptx", time.Now().UTC())

	f := newFixture(t, src)
	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
}

func TestProcessAudioUsesPresignedURL(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "recording.mp3", time.Now().UTC())
	src.StorageKey = "meeting-1/recording.mp3"

	f := newFixture(t, src)
	f.storage.url = "https://bucket.example/presigned"
	f.transcriber.text = "The recording says hello."

	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.transcriber.urls, 1)
	assert.Equal(t, "https://bucket.example/presigned", f.transcriber.urls[0])
	assert.Equal(t, "The recording says hello.", src.RawText)
}

func TestProcessAudioWithoutURLFails(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "recording.mp3", time.Now().UTC())
	src.StorageKey = "meeting-1/recording.mp3"

	f := newFixture(t, src)
	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	assert.ErrorIs(t, err, domain.ErrAudioURLMissing)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "recording.mp3", time.Now().UTC())
	src.StorageKey = "meeting-1/recording.mp3"

	f := newFixture(t, src)
	f.storage.url = "https://bucket.example/presigned"
	f.transcriber.err = domain.ErrTranscriptionFailed

	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
	assert.Nil(t, src.EmbeddingsCreatedAt)
	assert.Empty(t, f.index.upserts)
}

func TestProcessStructuredDocument(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "report.pdf", time.Now().UTC())
	src.StorageKey = "meeting-1/report.pdf"

	f := newFixture(t, src)
	f.partitioner.blocks = []partition.Block{
		{Category: "Title", Text: "Quarterly Report"},
		{Category: "NarrativeText", Text: "Revenue grew in all regions.", Metadata: map[string]any{"page_number": 1}},
		{Category: "Table", Text: "Q1 | Q2 | Q3"},
		{Category: "NarrativeText", Text: "   "},
	}

	count, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Len(t, f.index.upserts, 1)
	indexed := f.index.upserts[0]
	require.Len(t, indexed, 3)
	assert.Equal(t, domain.BlockTypeTitle, indexed[0].BlockType)
	assert.Equal(t, domain.BlockTypeText, indexed[1].BlockType)
	assert.Equal(t, domain.BlockTypeTable, indexed[2].BlockType)
	for i, c := range indexed {
		assert.Equal(t, i, c.Ordinal)
	}
	assert.Equal(t, map[string]any{"page_number": 1}, indexed[1].Metadata)
}

func TestProcessStructuredDocumentNoBlocks(t *testing.T) {
	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "empty.pdf", time.Now().UTC())

	f := newFixture(t, src)
	f.partitioner.blocks = []partition.Block{{Category: "NarrativeText", Text: " "}}

	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	assert.ErrorIs(t, err, domain.ErrNoReadableBlocks)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
}

func TestProcessIndexFailureIsFatal(t *testing.T) {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC())
	src.RawText = "some text"

	f := newFixture(t, src)
	f.index.err = errors.New("embedding service down")

	_, err := f.processor.ProcessSource(context.Background(), src.ID, false)

	require.Error(t, err)
	assert.Equal(t, domain.SourceStatusFailed, src.Status)
	assert.Contains(t, src.ErrorMessage, "embedding service down")
	assert.Nil(t, src.EmbeddingsCreatedAt)
}
