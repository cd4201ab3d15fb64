package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
)

// TextStrategy reads the file as UTF-8, tolerating invalid sequences, and
// chunks the result.
type TextStrategy struct {
	persister *persister
	chunkCfg  chunker.Config
}

func (s *TextStrategy) Process(ctx context.Context, src *domain.Source, localPath, storageURL string) (int, error) {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("read text file: %w", err)
	}

	// Invalid UTF-8 is replaced, never fatal.
	text := strings.ToValidUTF8(string(raw), "�")
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptySource
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
