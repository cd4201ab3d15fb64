package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumhq/quorum/internal/domain"
)

// ChunkRepository handles persistence of the relational chunk rows. Vector
// points live in the chunk index and are written by the gateway, not here.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a source and inserts new ones.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, source_id, meeting_id, ordinal, content, start_ms, end_ms, block_type, metadata, vector_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID,
			c.SourceID,
			c.MeetingID,
			c.Ordinal,
			c.Text,
			c.StartMS,
			c.EndMS,
			c.BlockType,
			metadata,
			c.VectorID,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) ListBySource(ctx context.Context, sourceID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, meeting_id, ordinal, content, start_ms, end_ms, block_type, metadata, vector_id, created_at
		 FROM chunks
		 WHERE source_id = $1
		 ORDER BY ordinal ASC`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.SourceID, &c.MeetingID, &c.Ordinal, &c.Text,
			&c.StartMS, &c.EndMS, &c.BlockType, &c.Metadata, &c.VectorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) CountByMeeting(ctx context.Context, meetingID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE meeting_id = $1`, meetingID).Scan(&count)
	return count, err
}
