package ingest

import (
	"context"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
)

// AudioStrategy transcribes remotely-hosted audio and chunks the transcript.
// It needs a reachable storage URL; local-only audio cannot be transcribed.
type AudioStrategy struct {
	persister   *persister
	transcriber Transcriber
	chunkCfg    chunker.Config
}

func (s *AudioStrategy) Process(ctx context.Context, src *domain.Source, localPath, storageURL string) (int, error) {
	if storageURL == "" {
		return 0, domain.ErrAudioURLMissing
	}

	text, err := s.transcriber.Transcribe(ctx, storageURL)
	if err != nil {
		return 0, err
	}

	if err := s.persister.sources.SetRawText(ctx, src.ID, text); err != nil {
		return 0, err
	}

	chunks := chunker.Chunk(text, s.chunkCfg)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptySource
	}
	return s.persister.persist(ctx, src, textPieces(chunks))
}
