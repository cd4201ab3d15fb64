package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
)

// Storage resolves object-storage URLs for sources that need one, which
// today is audio handed to the transcription service.
type Storage interface {
	Configured() bool
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Processor drives one source through ingestion: status transitions,
// strategy dispatch and the idempotent short-circuit. It is the single
// entry point the background worker calls.
type Processor struct {
	sources    SourceStore
	persister  *persister
	dispatcher *Dispatcher
	storage    Storage
	dataDir    string
	chunkCfg   chunker.Config
}

func NewProcessor(
	sources SourceStore,
	chunks ChunkStore,
	index Index,
	transcriber Transcriber,
	partitioner Partitioner,
	storage Storage,
	dataDir string,
	chunkCfg chunker.Config,
) *Processor {
	p := newPersister(chunks, sources, index)
	return &Processor{
		sources:    sources,
		persister:  p,
		dispatcher: NewDispatcher(p, transcriber, partitioner, chunkCfg),
		storage:    storage,
		dataDir:    dataDir,
		chunkCfg:   chunkCfg,
	}
}

// ProcessSource ingests one source and returns its chunk count. A source
// whose embeddings marker is already set is skipped unless force is set;
// force resets the marker and re-ingests, overwriting the same vector
// points. Failures mark the source failed with the cause and are returned.
func (pr *Processor) ProcessSource(ctx context.Context, sourceID string, force bool) (int, error) {
	src, err := pr.sources.GetByID(ctx, sourceID)
	if err != nil {
		return 0, err
	}

	if !force {
		if src.EmbeddingsCreatedAt != nil {
			return src.ChunkCount, nil
		}
		if src.Status.IsTerminal() {
			// A stale retry never overwrites a terminal outcome.
			return src.ChunkCount, nil
		}
	} else if src.EmbeddingsCreatedAt != nil {
		if err := pr.sources.ClearEmbedded(ctx, src.ID); err != nil {
			return 0, err
		}
	}

	if err := pr.sources.UpdateStatus(ctx, src.ID, domain.SourceStatusProcessing, ""); err != nil {
		return 0, err
	}

	count, err := pr.run(ctx, src)
	if err != nil {
		_ = pr.sources.UpdateStatus(ctx, src.ID, domain.SourceStatusFailed, err.Error())
		return 0, err
	}

	if err := pr.sources.UpdateStatus(ctx, src.ID, domain.SourceStatusCompleted, ""); err != nil {
		return count, err
	}
	return count, nil
}

func (pr *Processor) run(ctx context.Context, src *domain.Source) (int, error) {
	if src.Kind == domain.SourceKindTranscript {
		return pr.processTranscript(ctx, src)
	}

	strategy, err := pr.dispatcher.ForSource(src)
	if err != nil {
		return 0, err
	}

	localPath := ""
	if src.StorageKey != "" {
		localPath = filepath.Join(pr.dataDir, src.StorageKey)
	}
	return strategy.Process(ctx, src, localPath, pr.resolveStorageURL(ctx, src))
}

// processTranscript chunks text already captured on the source record, the
// path live meeting transcripts take.
func (pr *Processor) processTranscript(ctx context.Context, src *domain.Source) (int, error) {
	if strings.TrimSpace(src.RawText) == "" {
		return 0, domain.ErrEmptySource
	}

	chunks := chunker.Chunk(src.RawText, pr.chunkCfg)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptySource
	}
	return pr.persister.persist(ctx, src, textPieces(chunks))
}

// resolveStorageURL prefers a fresh presigned URL over whatever was stored
// at upload time; either may be empty for sources that never hit storage.
func (pr *Processor) resolveStorageURL(ctx context.Context, src *domain.Source) string {
	if pr.storage != nil && pr.storage.Configured() && src.StorageKey != "" {
		if url, err := pr.storage.PresignedURL(ctx, src.StorageKey); err == nil && url != "" {
			return url
		}
	}
	return src.StorageURL
}
