package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/vecindex"
)

// piece is one chunk-to-be with its provenance, produced by a strategy
// before ids are assigned.
type piece struct {
	Text      string
	BlockType domain.BlockType
	Metadata  map[string]any
	StartMS   *int64
	EndMS     *int64
}

// ChunkStore persists the relational chunk rows.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error
}

// SourceStore is the slice of source persistence the ingest path needs.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errorMessage string) error
	SetRawText(ctx context.Context, id, rawText string) error
	MarkEmbedded(ctx context.Context, id string, chunkCount int, embeddedAt time.Time) error
	ClearEmbedded(ctx context.Context, id string) error
}

// Index writes chunk batches into the vector index.
type Index interface {
	UpsertChunks(ctx context.Context, scopeID string, src *domain.Source, chunks []domain.Chunk) error
}

// persister is the shared persist step every strategy funnels through:
// replace chunk rows, upsert vector points, stamp the embeddings marker.
// Point ids derive from (source kind, source id, ordinal), so running it
// twice for the same source overwrites instead of duplicating.
type persister struct {
	chunks  ChunkStore
	sources SourceStore
	index   Index
}

func newPersister(chunks ChunkStore, sources SourceStore, index Index) *persister {
	return &persister{chunks: chunks, sources: sources, index: index}
}

func (p *persister) persist(ctx context.Context, src *domain.Source, pieces []piece) (int, error) {
	now := time.Now().UTC()
	records := make([]domain.Chunk, len(pieces))
	for i, pc := range pieces {
		blockType := pc.BlockType
		if blockType == "" {
			blockType = domain.BlockTypeText
		}
		records[i] = domain.Chunk{
			ID:        uuid.NewString(),
			SourceID:  src.ID,
			MeetingID: src.MeetingID,
			Ordinal:   i,
			Text:      pc.Text,
			StartMS:   pc.StartMS,
			EndMS:     pc.EndMS,
			BlockType: blockType,
			Metadata:  pc.Metadata,
			VectorID:  vecindex.PointID(string(src.Kind), src.ID, i),
			CreatedAt: now,
		}
	}

	if err := p.chunks.ReplaceChunks(ctx, src.ID, records); err != nil {
		return 0, err
	}
	if err := p.index.UpsertChunks(ctx, src.MeetingID, src, records); err != nil {
		return 0, err
	}
	if err := p.sources.MarkEmbedded(ctx, src.ID, len(records), now); err != nil {
		return 0, err
	}
	return len(records), nil
}

func textPieces(chunks []string) []piece {
	pieces := make([]piece, len(chunks))
	for i, text := range chunks {
		pieces[i] = piece{Text: text, BlockType: domain.BlockTypeText}
	}
	return pieces
}
