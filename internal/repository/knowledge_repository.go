package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/usefiko/pilito-sub003/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// VectorHit pairs a chunk with its cosine distance to the query vector.
type VectorHit struct {
	Chunk    *models.KnowledgeChunk
	Distance float64
}

// KeywordHit pairs a chunk with its full-text relevance score. Title matches
// are weighted above content matches.
type KeywordHit struct {
	Chunk *models.KnowledgeChunk
	Score float64
}

type KnowledgeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewKnowledgeRepository(db *pgxpool.Pool, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

const weightedDocument = "setweight(to_tsvector('simple', title), 'A') || setweight(to_tsvector('simple', content), 'B')"

func (r *KnowledgeRepository) Create(ctx context.Context, chunk *models.KnowledgeChunk) error {
	var embedding interface{}
	if len(chunk.Embedding) > 0 {
		embedding = squirrel.Expr("?::vector", vectorLiteral(chunk.Embedding))
	}

	query := squirrel.Insert("knowledge_chunks").
		Columns("id", "tenant_id", "category", "title", "content", "word_count", "embedding", "source_id", "created_at", "updated_at").
		Values(chunk.ID, chunk.TenantID, chunk.Category, chunk.Title, chunk.Content, chunk.WordCount, embedding, chunk.SourceID, chunk.CreatedAt, chunk.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// SearchByVector returns up to limit chunks of one tenant category ordered by
// cosine distance to the query vector, nearest first. Chunks without an
// embedding are excluded.
func (r *KnowledgeRepository) SearchByVector(ctx context.Context, tenantID string, category models.Category, vector []float32, limit int) ([]VectorHit, error) {
	query := squirrel.Select("id", "tenant_id", "category", "title", "content", "word_count", "source_id", "created_at", "updated_at").
		Column(squirrel.Alias(squirrel.Expr("embedding <=> ?::vector", vectorLiteral(vector)), "distance")).
		From("knowledge_chunks").
		Where(squirrel.Eq{"tenant_id": tenantID, "category": category}).
		Where("embedding IS NOT NULL").
		OrderBy("distance ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var chunk models.KnowledgeChunk
		var distance float64

		if err := rows.Scan(
			&chunk.ID, &chunk.TenantID, &chunk.Category, &chunk.Title, &chunk.Content,
			&chunk.WordCount, &chunk.SourceID, &chunk.CreatedAt, &chunk.UpdatedAt, &distance,
		); err != nil {
			return nil, err
		}

		hits = append(hits, VectorHit{Chunk: &chunk, Distance: distance})
	}

	return hits, rows.Err()
}

// SearchByKeyword returns up to limit chunks of one tenant category ordered
// by ts_rank against the query, best first.
func (r *KnowledgeRepository) SearchByKeyword(ctx context.Context, tenantID string, category models.Category, queryText string, limit int) ([]KeywordHit, error) {
	query := squirrel.Select("id", "tenant_id", "category", "title", "content", "word_count", "source_id", "created_at", "updated_at").
		Column(squirrel.Alias(squirrel.Expr("ts_rank("+weightedDocument+", plainto_tsquery('simple', ?))", queryText), "score")).
		From("knowledge_chunks").
		Where(squirrel.Eq{"tenant_id": tenantID, "category": category}).
		Where(squirrel.Expr("("+weightedDocument+") @@ plainto_tsquery('simple', ?)", queryText)).
		OrderBy("score DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var chunk models.KnowledgeChunk
		var score float64

		if err := rows.Scan(
			&chunk.ID, &chunk.TenantID, &chunk.Category, &chunk.Title, &chunk.Content,
			&chunk.WordCount, &chunk.SourceID, &chunk.CreatedAt, &chunk.UpdatedAt, &score,
		); err != nil {
			return nil, err
		}

		hits = append(hits, KeywordHit{Chunk: &chunk, Score: score})
	}

	return hits, rows.Err()
}

// vectorLiteral renders a float32 slice in pgvector's input format.
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
