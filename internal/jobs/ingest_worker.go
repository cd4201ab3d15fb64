package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/quorumhq/quorum/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	// ClaimBatchSize is how many pending jobs one poll claims
	ClaimBatchSize = 10
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending claims up to limit pending jobs and marks them processing
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// RequeueForRetry resets a job to pending and increments its retry count
	RequeueForRetry(ctx context.Context, id, errMsg string) error
}

// SourceProcessor defines the interface for running source ingestion
type SourceProcessor interface {
	ProcessSource(ctx context.Context, sourceID string, force bool) (int, error)
}

// IngestWorker processes ingest jobs
type IngestWorker struct {
	repo      IngestJobRepository
	processor SourceProcessor
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo IngestJobRepository, processor SourceProcessor) *IngestWorker {
	return &IngestWorker{
		repo:      repo,
		processor: processor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for source %s (force=%v)", job.ID, job.SourceID, job.Force)

	count, err := w.processor.ProcessSource(ctx, job.SourceID, job.Force)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: %d chunks indexed for source %s", job.ID, count, job.SourceID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.RequeueForRetry(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job for retry: %w", err)
	}

	return nil
}
