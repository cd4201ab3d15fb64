//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/testutil"
)

func createSourceForChunks(ctx context.Context, t *testing.T, repo *SourceRepository, meetingID string) *domain.Source {
	src := domain.NewTranscriptSource(uuid.NewString(), meetingID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, src))
	return src
}

func makeChunk(src *domain.Source, ordinal int, text string) domain.Chunk {
	return domain.Chunk{
		ID:        uuid.NewString(),
		SourceID:  src.ID,
		MeetingID: src.MeetingID,
		Ordinal:   ordinal,
		Text:      text,
		BlockType: domain.BlockTypeText,
		VectorID:  uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestChunkRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	src := createSourceForChunks(ctx, t, sourceRepo, "meeting-1")

	first := []domain.Chunk{
		makeChunk(src, 0, "opening remarks"),
		makeChunk(src, 1, "budget discussion"),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, src.ID, first))

	got, err := chunkRepo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "opening remarks", got[0].Text)
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, 1, got[1].Ordinal)

	// Replacing swaps the whole set, never appends.
	second := []domain.Chunk{makeChunk(src, 0, "revised transcript")}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, src.ID, second))

	got, err = chunkRepo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "revised transcript", got[0].Text)
}

func TestChunkRepository_ReplaceWithEmptyClears(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	src := createSourceForChunks(ctx, t, sourceRepo, "meeting-2")
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, src.ID, []domain.Chunk{makeChunk(src, 0, "stale")}))
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, src.ID, nil))

	got, err := chunkRepo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkRepository_CascadeOnSourceDelete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	src := createSourceForChunks(ctx, t, sourceRepo, "meeting-3")
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, src.ID, []domain.Chunk{makeChunk(src, 0, "to be removed")}))

	require.NoError(t, sourceRepo.Delete(ctx, src.ID))

	count, err := chunkRepo.CountByMeeting(ctx, "meeting-3")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
