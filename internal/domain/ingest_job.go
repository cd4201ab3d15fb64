package domain

import (
	"fmt"
	"time"
)

// IngestJobStatus represents the status of a background ingestion job
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IngestJob represents one enqueued request to process a source. Delivery is
// at-least-once with no ordering across jobs; the processor's idempotent
// short-circuit absorbs duplicate deliveries.
type IngestJob struct {
	ID          string
	SourceID    string
	Force       bool
	Status      IngestJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIngestJob creates a pending IngestJob for a source.
func NewIngestJob(id, sourceID string, force bool, createdAt time.Time) *IngestJob {
	return &IngestJob{
		ID:        id,
		SourceID:  sourceID,
		Force:     force,
		Status:    IngestJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateIngestJob validates an IngestJob instance
func ValidateIngestJob(j *IngestJob) error {
	if j == nil {
		return fmt.Errorf("ingest job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("ingest job ID is required")
	}
	if j.SourceID == "" {
		return fmt.Errorf("ingest job SourceID is required")
	}
	if !isValidIngestJobStatus(j.Status) {
		return fmt.Errorf("ingest job Status is invalid: %s", j.Status)
	}
	if j.Retries < 0 {
		return fmt.Errorf("ingest job Retries cannot be negative")
	}
	return nil
}

func isValidIngestJobStatus(s IngestJobStatus) bool {
	switch s {
	case IngestJobStatusPending, IngestJobStatusProcessing,
		IngestJobStatusCompleted, IngestJobStatusFailed:
		return true
	}
	return false
}
