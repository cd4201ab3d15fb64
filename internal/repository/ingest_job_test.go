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

func createSourceForJobs(ctx context.Context, t *testing.T, pool interface{}, repo *SourceRepository) *domain.Source {
	src := domain.NewTranscriptSource(uuid.NewString(), "meeting-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, src))
	return src
}

func TestIngestJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	src := createSourceForJobs(ctx, t, pool, sourceRepo)
	job := domain.NewIngestJob(uuid.NewString(), src.ID, true, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobRepo.Create(ctx, job))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, src.ID, got.SourceID)
	assert.True(t, got.Force)
	assert.Equal(t, domain.IngestJobStatusPending, got.Status)
}

func TestIngestJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	src := createSourceForJobs(ctx, t, pool, sourceRepo)
	old := domain.NewIngestJob(uuid.NewString(), src.ID, false, time.Now().UTC().Add(-time.Minute))
	recent := domain.NewIngestJob(uuid.NewString(), src.ID, false, time.Now().UTC())
	require.NoError(t, jobRepo.Create(ctx, old))
	require.NoError(t, jobRepo.Create(ctx, recent))

	claimed, err := jobRepo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, old.ID, claimed[0].ID)
	assert.Equal(t, domain.IngestJobStatusProcessing, claimed[0].Status)

	// Claimed jobs are no longer visible to a second claim.
	claimed, err = jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, recent.ID, claimed[0].ID)
}

func TestIngestJobRepository_RequeueForRetry(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	src := createSourceForJobs(ctx, t, pool, sourceRepo)
	job := domain.NewIngestJob(uuid.NewString(), src.ID, false, time.Now().UTC())
	require.NoError(t, jobRepo.Create(ctx, job))

	claimed, err := jobRepo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, jobRepo.RequeueForRetry(ctx, job.ID, "transient failure"))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusPending, got.Status)
	assert.Equal(t, int32(1), got.Retries)
	assert.Equal(t, "transient failure", got.Error)
}

func TestIngestJobRepository_UpdateStatusTerminal(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	src := createSourceForJobs(ctx, t, pool, sourceRepo)
	job := domain.NewIngestJob(uuid.NewString(), src.ID, false, time.Now().UTC())
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, "gave up"))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusFailed, got.Status)
	assert.Equal(t, "gave up", got.Error)
	assert.NotNil(t, got.ProcessedAt)

	assert.ErrorIs(t, jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.IngestJobStatusCompleted, ""), ErrIngestJobNotFound)
}
