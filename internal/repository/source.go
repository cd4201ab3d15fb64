package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumhq/quorum/internal/domain"
)

var ErrSourceNotFound = errors.New("source not found")

// SourceRepository handles persistence of ingestible sources.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx dbtx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources
			(id, meeting_id, kind, file_name, storage_key, storage_url, raw_text, status, error_message, chunk_count, embeddings_created_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.MeetingID, s.Kind, s.FileName, s.StorageKey, s.StorageURL, s.RawText,
		s.Status, s.ErrorMessage, s.ChunkCount, s.EmbeddingsCreatedAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var s domain.Source
	err := r.db.QueryRow(ctx,
		`SELECT id, meeting_id, kind, file_name, storage_key, storage_url, raw_text, status, error_message, chunk_count, embeddings_created_at, created_at, updated_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.MeetingID, &s.Kind, &s.FileName, &s.StorageKey, &s.StorageURL, &s.RawText,
		&s.Status, &s.ErrorMessage, &s.ChunkCount, &s.EmbeddingsCreatedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SourceRepository) ListByMeeting(ctx context.Context, meetingID string) ([]*domain.Source, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, kind, file_name, storage_key, storage_url, raw_text, status, error_message, chunk_count, embeddings_created_at, created_at, updated_at
		 FROM sources
		 WHERE meeting_id = $1
		 ORDER BY created_at ASC`,
		meetingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.Kind, &s.FileName, &s.StorageKey, &s.StorageURL, &s.RawText,
			&s.Status, &s.ErrorMessage, &s.ChunkCount, &s.EmbeddingsCreatedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, &s)
	}
	return sources, rows.Err()
}

// UpdateStatus moves a source through its status machine and records the
// failure reason when one exists.
func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errorMessage string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		status, errorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// SetRawText stores extracted text produced during ingestion.
func (r *SourceRepository) SetRawText(ctx context.Context, id, rawText string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET raw_text = $1, updated_at = $2 WHERE id = $3`,
		rawText, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// MarkEmbedded stamps the idempotency marker and chunk count after a
// successful index write.
func (r *SourceRepository) MarkEmbedded(ctx context.Context, id string, chunkCount int, embeddedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET chunk_count = $1, embeddings_created_at = $2, updated_at = $3 WHERE id = $4`,
		chunkCount, embeddedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// ClearEmbedded resets the idempotency marker ahead of a forced re-ingestion.
func (r *SourceRepository) ClearEmbedded(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET embeddings_created_at = NULL, chunk_count = 0, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}
