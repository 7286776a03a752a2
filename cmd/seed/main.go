package main

import (
	"context"
	"log"
	"time"

	"github.com/usefiko/pilito-sub003/internal/models"
	"github.com/usefiko/pilito-sub003/internal/repository"
	"github.com/usefiko/pilito-sub003/internal/service"
	"github.com/usefiko/pilito-sub003/pkg/cache"
	"github.com/usefiko/pilito-sub003/pkg/config"
	"github.com/usefiko/pilito-sub003/pkg/logger"
	"github.com/usefiko/pilito-sub003/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const seedTenant = "demo-tenant"

type seedDocument struct {
	Category models.Category
	Title    string
	Content  string
	SourceID string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := createSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to create schema", zap.Error(err))
	}

	knowledgeRepo := repository.NewKnowledgeRepository(db, appLogger)
	provider := service.NewHTTPEmbeddingProvider(&cfg.Embedding, appLogger)
	embeddingService := service.NewEmbeddingService(provider, cache.NewMemoryCache(), appLogger)
	chunker := service.NewChunkerService(appLogger)

	appLogger.Info("Starting knowledge base seeding", zap.String("tenant_id", seedTenant))

	inserted := 0
	for _, doc := range seedDocuments() {
		passages := chunker.Split(doc.Content, 300, 50, models.PassageMeta{SourceID: doc.SourceID})
		for _, passage := range passages {
			embedding, ok := embeddingService.Embed(ctx, passage.Text, service.TaskTypeDocument)
			if !ok {
				appLogger.Warn("Embedding unavailable, storing chunk without vector",
					zap.String("title", doc.Title),
					zap.Int("chunk_index", passage.ChunkIndex),
				)
			}

			now := time.Now()
			chunk := &models.KnowledgeChunk{
				ID:        uuid.New(),
				TenantID:  seedTenant,
				Category:  doc.Category,
				Title:     doc.Title,
				Content:   passage.Text,
				WordCount: passage.WordCount,
				Embedding: embedding,
				SourceID:  doc.SourceID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := knowledgeRepo.Create(ctx, chunk); err != nil {
				appLogger.Fatal("Failed to insert chunk", zap.String("title", doc.Title), zap.Error(err))
			}
			inserted++
		}
	}

	appLogger.Info("Seeding completed", zap.Int("chunks", inserted))
}

func createSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			word_count INT NOT NULL DEFAULT 0,
			embedding vector,
			source_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_tenant_category
			ON knowledge_chunks (tenant_id, category)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_fts
			ON knowledge_chunks USING GIN (
				(setweight(to_tsvector('simple', title), 'A') || setweight(to_tsvector('simple', content), 'B'))
			)`,
		`CREATE TABLE IF NOT EXISTS tenant_intent_keywords (
			tenant_id TEXT NOT NULL,
			intent TEXT NOT NULL,
			language TEXT NOT NULL,
			keyword TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			PRIMARY KEY (tenant_id, intent, language, keyword)
		)`,
		`CREATE TABLE IF NOT EXISTS tenant_routing_rules (
			tenant_id TEXT NOT NULL,
			intent TEXT NOT NULL,
			primary_category TEXT NOT NULL,
			secondary_categories TEXT[] NOT NULL DEFAULT '{}',
			primary_budget INT NOT NULL,
			secondary_budget INT NOT NULL,
			PRIMARY KEY (tenant_id, intent)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedDocuments() []seedDocument {
	return []seedDocument{
		{
			Category: models.CategoryFAQ,
			Title:    "Pricing plans",
			SourceID: "faq-pricing",
			Content: `Our starter plan costs 29 dollars per month and includes one chat channel and up to one thousand conversations. ` +
				`The business plan costs 99 dollars per month with unlimited channels, priority support and workflow automation. ` +
				`Annual billing gives a twenty percent discount on every plan. You can cancel your subscription at any time from the billing page.`,
		},
		{
			Category: models.CategoryFAQ,
			Title:    "Getting started",
			SourceID: "faq-start",
			Content: `Sign up with your email address, connect a chat channel and upload your knowledge documents. ` +
				`The assistant starts answering customer questions as soon as the first document finishes indexing. ` +
				`Most workspaces are live within fifteen minutes.`,
		},
		{
			Category: models.CategoryProduct,
			Title:    "Assistant features",
			SourceID: "product-features",
			Content: `The assistant answers customer questions from your own knowledge base in more than four languages. ` +
				`It searches frequently asked questions, product catalogs, manuals and website content, ranks the most relevant passages ` +
				`and keeps every answer grounded in your documents. Conversation history is kept per customer so follow-up questions stay in context.`,
		},
		{
			Category: models.CategoryManual,
			Title:    "درباره مزون",
			SourceID: "manual-bio",
			Content: `مزون ما در سال ۱۳۹۵ در تهران تاسیس شد. ما با تمرکز بر طراحی و دوخت لباس‌های مجلسی زنانه کار خود را آغاز کردیم. ` +
				`تمام پارچه‌ها از بهترین تولیدکنندگان داخلی و خارجی تهیه می‌شود و هر سفارش به صورت اختصاصی برای مشتری دوخته می‌شود. ` +
				`تیم ما شامل ده طراح و خیاط باتجربه است و تاکنون بیش از دو هزار سفارش را تحویل داده‌ایم. ` +
				`افتخار ما رضایت مشتریان و کیفیت دوخت است.`,
		},
		{
			Category: models.CategoryManual,
			Title:    "Channel setup guide",
			SourceID: "manual-channels",
			Content: `To connect a new chat channel open the integrations page, choose the platform and follow the authorization steps. ` +
				`After authorization the channel appears in your workspace within a minute. If messages do not arrive, check that the ` +
				`webhook status shows connected and that the channel is not paused. Reconnecting the channel resets the webhook.`,
		},
		{
			Category: models.CategoryWebsite,
			Title:    "Contact us",
			SourceID: "website-contact",
			Content: `You can reach our support team by email at support@example.com or by phone during business hours. ` +
				`Our office is open Saturday through Thursday from nine to five. For sales questions use the contact form on the website.`,
		},
	}
}
