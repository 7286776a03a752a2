package models

import (
	"time"

	"github.com/google/uuid"
)

// Category identifies which knowledge source a chunk belongs to.
type Category string

const (
	CategoryFAQ     Category = "faq"
	CategoryProduct Category = "product"
	CategoryManual  Category = "manual"
	CategoryWebsite Category = "website"
)

// KnowledgeChunk is one retrievable passage of tenant knowledge. The
// embedding dimension is constant across all chunks in a tenant's index.
type KnowledgeChunk struct {
	ID        uuid.UUID `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Category  Category  `db:"category"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	WordCount int       `db:"word_count"`
	Embedding []float32 `db:"embedding"`
	SourceID  string    `db:"source_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
