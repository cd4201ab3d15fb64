// Package vecindex manages the pgvector-backed chunk index: lazy collection
// creation, dimension reconciliation, idempotent point upserts and filtered
// similarity search.
package vecindex

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/quorumhq/quorum/internal/domain"
)

// indexLockKey serializes collection creation across concurrent callers.
const indexLockKey = 0x71756f72 // "quor"

// Embedder produces vectors for index writes and query-time search.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// SearchResult is one scored chunk returned from the index, carrying enough
// provenance to cite it in a prompt.
type SearchResult struct {
	VectorID     string
	ScopeID      string
	SourceID     string
	SourceType   string
	DocumentName string
	Ordinal      int
	Text         string
	StartMS      *int64
	EndMS        *int64
	BlockType    string
	Score        float64
}

// Gateway is the single owner of the chunk_index table. All vector reads and
// writes go through it.
type Gateway struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

func NewGateway(pool *pgxpool.Pool, embedder Embedder) *Gateway {
	return &Gateway{pool: pool, embedder: embedder}
}

// EnsureCollection creates the chunk index if it does not exist and verifies
// the stored dimensionality matches the embedder. On mismatch the index is
// dropped and recreated, losing all points; sources must be re-ingested.
func (g *Gateway) EnsureCollection(ctx context.Context) error {
	dims := g.embedder.Dimensions()
	if dims <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "embedder reports non-positive dimensions")
	}

	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin ensure collection: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, indexLockKey); err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chunk_index_meta (
			id         int PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			dimensions int NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("ensure index meta: %w", err)
	}

	var stored int
	err = tx.QueryRow(ctx, `SELECT dimensions FROM chunk_index_meta WHERE id = 1`).Scan(&stored)
	switch {
	case err == pgx.ErrNoRows:
		if err := createIndexTable(ctx, tx, dims); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("read index meta: %w", err)
	case stored != dims:
		log.Printf("chunk index dimension mismatch (stored %d, embedder %d): dropping and recreating, all points lost", stored, dims)
		if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS chunk_index`); err != nil {
			return fmt.Errorf("drop chunk index: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chunk_index_meta WHERE id = 1`); err != nil {
			return fmt.Errorf("clear index meta: %w", err)
		}
		if err := createIndexTable(ctx, tx, dims); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func createIndexTable(ctx context.Context, tx pgx.Tx, dims int) error {
	// Dimensions are part of the column type, so the DDL is built per run.
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunk_index (
			vector_id     uuid PRIMARY KEY,
			scope_id      text NOT NULL,
			source_id     text NOT NULL,
			source_type   text NOT NULL,
			document_name text NOT NULL,
			ordinal       int NOT NULL,
			content       text NOT NULL,
			start_ms      bigint,
			end_ms        bigint,
			block_type    text NOT NULL,
			embedding     vector(%d) NOT NULL
		)`, dims)
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create chunk index: %w", err)
	}
	if _, err := tx.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_chunk_index_scope ON chunk_index (scope_id)`); err != nil {
		return fmt.Errorf("create scope index: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO chunk_index_meta (id, dimensions) VALUES (1, $1)`, dims); err != nil {
		return fmt.Errorf("write index meta: %w", err)
	}
	return nil
}

// UpsertChunks embeds all chunk texts in one batch call and writes each
// point keyed by its deterministic vector id. Re-running for the same source
// overwrites the same points. Any failure is returned to the caller; write
// errors are never swallowed.
func (g *Gateway) UpsertChunks(ctx context.Context, scopeID string, src *domain.Source, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := g.EnsureCollection(ctx); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeTransport, "embedding batch failed", err)
	}

	for i, c := range chunks {
		pointID := PointID(string(src.Kind), src.ID, c.Ordinal)
		_, err := g.pool.Exec(ctx, `
			INSERT INTO chunk_index
				(vector_id, scope_id, source_id, source_type, document_name, ordinal, content, start_ms, end_ms, block_type, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (vector_id) DO UPDATE SET
				scope_id      = EXCLUDED.scope_id,
				source_id     = EXCLUDED.source_id,
				source_type   = EXCLUDED.source_type,
				document_name = EXCLUDED.document_name,
				ordinal       = EXCLUDED.ordinal,
				content       = EXCLUDED.content,
				start_ms      = EXCLUDED.start_ms,
				end_ms        = EXCLUDED.end_ms,
				block_type    = EXCLUDED.block_type,
				embedding     = EXCLUDED.embedding`,
			pointID,
			scopeID,
			src.ID,
			string(src.Kind),
			src.FileName,
			c.Ordinal,
			c.Text,
			c.StartMS,
			c.EndMS,
			string(c.BlockType),
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", pointID, err)
		}
	}

	return nil
}

// Search embeds the query and returns the topK most similar chunks, filtered
// to scopeID when non-nil. Retrieval is best-effort: any failure is logged
// and an empty result set is returned so the caller can still answer.
func (g *Gateway) Search(ctx context.Context, query string, scopeID *string, topK int) []SearchResult {
	if topK <= 0 {
		topK = 5
	}

	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("vector search degraded: embed query: %v", err)
		return []SearchResult{}
	}

	sql := `
		SELECT vector_id, scope_id, source_id, source_type, document_name, ordinal, content, start_ms, end_ms, block_type,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM chunk_index`
	args := []interface{}{pgvector.NewVector(vec)}

	if scopeID != nil {
		sql += ` WHERE scope_id = $2`
		args = append(args, *scopeID)
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, topK)

	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		log.Printf("vector search degraded: query: %v", err)
		return []SearchResult{}
	}
	defer rows.Close()

	results := make([]SearchResult, 0, topK)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.VectorID, &r.ScopeID, &r.SourceID, &r.SourceType, &r.DocumentName,
			&r.Ordinal, &r.Text, &r.StartMS, &r.EndMS, &r.BlockType, &r.Score); err != nil {
			log.Printf("vector search degraded: scan: %v", err)
			return []SearchResult{}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		log.Printf("vector search degraded: rows: %v", err)
		return []SearchResult{}
	}

	return results
}

// DeleteSource removes every point belonging to one source.
func (g *Gateway) DeleteSource(ctx context.Context, sourceID string) error {
	_, err := g.pool.Exec(ctx, `DELETE FROM chunk_index WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("delete source points: %w", err)
	}
	return nil
}

// DeleteScope removes every point belonging to one retrieval scope.
func (g *Gateway) DeleteScope(ctx context.Context, scopeID string) error {
	_, err := g.pool.Exec(ctx, `DELETE FROM chunk_index WHERE scope_id = $1`, scopeID)
	if err != nil {
		return fmt.Errorf("delete scope points: %w", err)
	}
	return nil
}
