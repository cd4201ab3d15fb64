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

func TestSourceRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	src := domain.NewDocumentSource(uuid.NewString(), "meeting-1", "notes.pdf", time.Now().UTC().Truncate(time.Microsecond))
	src.StorageKey = "meeting-1/notes.pdf"
	require.NoError(t, repo.Create(ctx, src))

	got, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src.ID, got.ID)
	assert.Equal(t, domain.SourceKindDocument, got.Kind)
	assert.Equal(t, "notes.pdf", got.FileName)
	assert.Equal(t, domain.SourceStatusNotStarted, got.Status)
	assert.Nil(t, got.EmbeddingsCreatedAt)
}

func TestSourceRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSourceRepository_StatusAndEmbeddedStamps(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-2", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, src))

	require.NoError(t, repo.UpdateStatus(ctx, src.ID, domain.SourceStatusProcessing, ""))
	require.NoError(t, repo.SetRawText(ctx, src.ID, "what was said"))

	embeddedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkEmbedded(ctx, src.ID, 7, embeddedAt))
	require.NoError(t, repo.UpdateStatus(ctx, src.ID, domain.SourceStatusCompleted, ""))

	got, err := repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusCompleted, got.Status)
	assert.Equal(t, "what was said", got.RawText)
	assert.Equal(t, 7, got.ChunkCount)
	require.NotNil(t, got.EmbeddingsCreatedAt)
	assert.Equal(t, embeddedAt, got.EmbeddingsCreatedAt.UTC())

	require.NoError(t, repo.ClearEmbedded(ctx, src.ID))
	got, err = repo.GetByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EmbeddingsCreatedAt)
	assert.Equal(t, 0, got.ChunkCount)
}

func TestSourceRepository_ListByMeeting(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	first := domain.NewTranscriptSource(uuid.NewString(), "meeting-3", time.Now().UTC().Add(-time.Minute))
	second := domain.NewDocumentSource(uuid.NewString(), "meeting-3", "agenda.txt", time.Now().UTC())
	other := domain.NewTranscriptSource(uuid.NewString(), "meeting-other", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, other))

	sources, err := repo.ListByMeeting(ctx, "meeting-3")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, first.ID, sources[0].ID)
	assert.Equal(t, second.ID, sources[1].ID)
}

func TestSourceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	src := domain.NewDocumentSource(uuid.NewString(), "meeting-4", "old.docx", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, src))

	require.NoError(t, repo.Delete(ctx, src.ID))
	_, err := repo.GetByID(ctx, src.ID)
	assert.ErrorIs(t, err, ErrSourceNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, src.ID), ErrSourceNotFound)
}
