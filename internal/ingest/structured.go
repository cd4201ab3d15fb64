package ingest

import (
	"context"
	"strings"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
)

// StructuredStrategy partitions PDF and Office files into typed blocks,
// chunks each block independently and renumbers ordinals globally across
// the whole document.
type StructuredStrategy struct {
	persister   *persister
	partitioner Partitioner
	chunkCfg    chunker.Config
}

func (s *StructuredStrategy) Process(ctx context.Context, src *domain.Source, localPath, storageURL string) (int, error) {
	blocks, err := s.partitioner.Partition(ctx, localPath)
	if err != nil {
		return 0, err
	}

	var kept []struct {
		text      string
		blockType domain.BlockType
		metadata  map[string]any
	}
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		kept = append(kept, struct {
			text      string
			blockType domain.BlockType
			metadata  map[string]any
		}{text, domain.NormalizeBlockType(b.Category), b.Metadata})
	}
	if len(kept) == 0 {
		return 0, domain.ErrNoReadableBlocks
	}

	texts := make([]string, len(kept))
	for i, b := range kept {
		texts[i] = b.text
	}
	if err := s.persister.sources.SetRawText(ctx, src.ID, strings.Join(texts, "\n\n")); err != nil {
		return 0, err
	}

	var pieces []piece
	for _, b := range kept {
		for _, chunk := range chunker.Chunk(b.text, s.chunkCfg) {
			pieces = append(pieces, piece{
				Text:      chunk,
				BlockType: b.blockType,
				Metadata:  b.metadata,
			})
		}
	}
	if len(pieces) == 0 {
		return 0, domain.ErrNoReadableBlocks
	}

	return s.persister.persist(ctx, src, pieces)
}
