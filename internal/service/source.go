// Package service holds the operations the API exposes over sources and
// their ingestion lifecycle.
package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/telemetry"
)

// SourceRepositoryInterface defines the repository interface for source persistence
type SourceRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	ListByMeeting(ctx context.Context, meetingID string) ([]*domain.Source, error)
	Delete(ctx context.Context, id string) error
}

// IngestJobRepositoryInterface defines the repository interface for job enqueueing
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// VectorIndexInterface removes a source's points from the vector index
type VectorIndexInterface interface {
	DeleteSource(ctx context.Context, sourceID string) error
}

// ObjectStorage mirrors uploaded files into object storage
type ObjectStorage interface {
	Configured() bool
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	DeleteObject(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// SourceService handles source registration, retrieval and deletion.
// Ingestion itself runs in the background worker; this service only
// enqueues jobs.
type SourceService struct {
	sources SourceRepositoryInterface
	jobs    IngestJobRepositoryInterface
	index   VectorIndexInterface
	storage ObjectStorage
	dataDir string
	uuidGen UUIDGenerator
}

// NewSourceService creates a new SourceService instance
func NewSourceService(
	sources SourceRepositoryInterface,
	jobs IngestJobRepositoryInterface,
	index VectorIndexInterface,
	storage ObjectStorage,
	dataDir string,
) *SourceService {
	return &SourceService{
		sources: sources,
		jobs:    jobs,
		index:   index,
		storage: storage,
		dataDir: dataDir,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewSourceServiceWithUUIDGen creates a new SourceService with custom UUID generator (for testing)
func NewSourceServiceWithUUIDGen(
	sources SourceRepositoryInterface,
	jobs IngestJobRepositoryInterface,
	index VectorIndexInterface,
	storage ObjectStorage,
	dataDir string,
	uuidGen UUIDGenerator,
) *SourceService {
	s := NewSourceService(sources, jobs, index, storage, dataDir)
	s.uuidGen = uuidGen
	return s
}

// UploadInput represents an uploaded document or recording
type UploadInput struct {
	MeetingID string
	FileName  string
	File      io.Reader
}

// Upload stores the file, registers the source and enqueues ingestion.
// The file is kept on local disk and mirrored to object storage when one
// is configured.
func (s *SourceService) Upload(ctx context.Context, input UploadInput) (*domain.Source, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Upload", telemetry.SpanAttributes{
		MeetingID: input.MeetingID,
		Operation: "upload",
	})
	defer span.End()

	ext := strings.ToLower(filepath.Ext(input.FileName))
	if !domain.AllowedExtensions[ext] {
		return nil, domain.ErrUnsupportedFileType
	}

	now := time.Now().UTC()
	src := domain.NewDocumentSource(s.uuidGen.NewString(), input.MeetingID, input.FileName, now)
	src.StorageKey = filepath.Join(input.MeetingID, src.ID+ext)

	localPath := filepath.Join(s.dataDir, src.StorageKey)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, input.File); err != nil {
		f.Close()
		os.Remove(localPath)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	if s.storage != nil && s.storage.Configured() {
		if err := s.mirrorToStorage(ctx, src.StorageKey, ext, localPath); err != nil {
			// Audio needs a reachable URL later; ingestion will surface that.
			log.Printf("storage mirror failed for source %s: %v", src.ID, err)
		}
	}

	if err := s.sources.Create(ctx, src); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, src.ID, false, now); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *SourceService) mirrorToStorage(ctx context.Context, key, ext, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.storage.Upload(ctx, key, contentType, f)
}

// RegisterTranscript registers meeting transcript text as a source and
// enqueues ingestion.
func (s *SourceService) RegisterTranscript(ctx context.Context, meetingID, text string) (*domain.Source, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.RegisterTranscript", telemetry.SpanAttributes{
		MeetingID: meetingID,
		Operation: "register_transcript",
	})
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptySource
	}

	now := time.Now().UTC()
	src := domain.NewTranscriptSource(s.uuidGen.NewString(), meetingID, now)
	src.RawText = text

	if err := s.sources.Create(ctx, src); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, src.ID, false, now); err != nil {
		return nil, err
	}
	return src, nil
}

// Get returns one source by id
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.sources.GetByID(ctx, id)
}

// List returns a meeting's sources in creation order
func (s *SourceService) List(ctx context.Context, meetingID string) ([]*domain.Source, error) {
	return s.sources.ListByMeeting(ctx, meetingID)
}

// Reingest enqueues a forced re-ingestion for an existing source. The
// rebuilt chunks overwrite the same vector points.
func (s *SourceService) Reingest(ctx context.Context, id string) (*domain.Source, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Reingest", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "reingest",
	})
	defer span.End()

	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, src.ID, true, time.Now().UTC()); err != nil {
		return nil, err
	}
	return src, nil
}

// Delete removes a source, its chunks, its vector points and its stored
// file. Storage cleanup failures are logged, not returned.
func (s *SourceService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Delete", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "delete",
	})
	defer span.End()

	src, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteSource(ctx, src.ID); err != nil {
		return err
	}
	if err := s.sources.Delete(ctx, src.ID); err != nil {
		return err
	}

	if src.StorageKey != "" {
		if err := os.Remove(filepath.Join(s.dataDir, src.StorageKey)); err != nil && !os.IsNotExist(err) {
			log.Printf("local file cleanup failed for source %s: %v", src.ID, err)
		}
		if s.storage != nil && s.storage.Configured() {
			if err := s.storage.DeleteObject(ctx, src.StorageKey); err != nil {
				log.Printf("storage cleanup failed for source %s: %v", src.ID, err)
			}
		}
	}
	return nil
}

func (s *SourceService) enqueue(ctx context.Context, sourceID string, force bool, now time.Time) error {
	job := domain.NewIngestJob(s.uuidGen.NewString(), sourceID, force, now)
	return s.jobs.Create(ctx, job)
}
