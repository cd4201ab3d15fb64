// Package ingest turns raw sources into persisted, vector-indexed chunks.
// One strategy exists per source shape; all strategies funnel through a
// shared persist step that forms the idempotent boundary of ingestion.
package ingest

import (
	"context"

	"github.com/quorumhq/quorum/internal/chunker"
	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/partition"
)

// Strategy processes one source's file into indexed chunks and returns the
// chunk count.
type Strategy interface {
	Process(ctx context.Context, src *domain.Source, localPath, storageURL string) (int, error)
}

// Transcriber converts remotely-hosted audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Partitioner splits structured documents into typed blocks.
type Partitioner interface {
	Partition(ctx context.Context, localPath string) ([]partition.Block, error)
}

// Dispatcher selects a strategy by file extension. The allow-list is checked
// before any processing begins.
type Dispatcher struct {
	audio      Strategy
	text       Strategy
	structured Strategy
}

func NewDispatcher(p *persister, transcriber Transcriber, partitioner Partitioner, chunkCfg chunker.Config) *Dispatcher {
	return &Dispatcher{
		audio:      &AudioStrategy{persister: p, transcriber: transcriber, chunkCfg: chunkCfg},
		text:       &TextStrategy{persister: p, chunkCfg: chunkCfg},
		structured: &StructuredStrategy{persister: p, partitioner: partitioner, chunkCfg: chunkCfg},
	}
}

// ForSource returns the strategy for the source's extension, or
// ErrUnsupportedFileType for anything outside the allow-list.
func (d *Dispatcher) ForSource(src *domain.Source) (Strategy, error) {
	ext := src.Extension()
	if !domain.AllowedExtensions[ext] {
		return nil, domain.ErrUnsupportedFileType
	}

	switch ext {
	case ".mp3":
		return d.audio, nil
	case ".txt":
		return d.text, nil
	default:
		return d.structured, nil
	}
}
