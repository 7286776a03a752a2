package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/usefiko/pilito-sub003/internal/models"
	"github.com/usefiko/pilito-sub003/internal/repository"

	"go.uber.org/zap"
)

// KnowledgeSearcher is the read-only knowledge store contract: both searches
// are pure reads and tolerate limits up to topK times the candidate
// multiplier.
type KnowledgeSearcher interface {
	SearchByVector(ctx context.Context, tenantID string, category models.Category, vector []float32, limit int) ([]repository.VectorHit, error)
	SearchByKeyword(ctx context.Context, tenantID string, category models.Category, query string, limit int) ([]repository.KeywordHit, error)
}

// RetrieverConfig lifts the ranking constants into one place so an operator
// can retune them without touching the algorithm.
type RetrieverConfig struct {
	VectorWeight        float64
	KeywordWeight       float64
	RRFWeight           float64
	RRFK                int
	MinVectorSimilarity float64
	MinKeywordScore     float64
	CandidateMultiplier int
	TruncateMinTokens   int
	TopK                int
	SearchTimeout       time.Duration
}

func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		VectorWeight:        0.6,
		KeywordWeight:       0.4,
		RRFWeight:           0.2,
		RRFK:                60,
		MinVectorSimilarity: 0.1,
		MinKeywordScore:     0.05,
		CandidateMultiplier: 3,
		TruncateMinTokens:   100,
		TopK:                5,
		SearchTimeout:       5 * time.Second,
	}
}

// RetrievalService orchestrates vector and lexical search per category,
// fuses the result sets with reciprocal rank fusion, and trims the ranked
// list to a token budget. It never returns an error to the caller: every
// failure degrades to the next-best method, down to an empty result.
type RetrievalService struct {
	store      KnowledgeSearcher
	embeddings *EmbeddingService
	router     *RouterService
	cfg        RetrieverConfig
	logger     *zap.Logger
}

func NewRetrievalService(store KnowledgeSearcher, embeddings *EmbeddingService, router *RouterService, cfg RetrieverConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		store:      store,
		embeddings: embeddings,
		router:     router,
		cfg:        cfg,
		logger:     logger,
	}
}

// RetrieveContext runs the full pipeline for one inbound message: route the
// query, embed it once, retrieve the primary and secondary categories with
// their budgets, and assemble the payload for the prompt builder.
func (s *RetrievalService) RetrieveContext(ctx context.Context, tenantID, query string) (models.RetrievalResult, models.QueryRouting) {
	routing := s.router.Route(ctx, query, tenantID)

	queryVec, _ := s.embeddings.Embed(ctx, query, TaskTypeQuery)

	primary, method := s.Retrieve(ctx, query, tenantID, routing.PrimaryCategory, queryVec, s.cfg.TopK, routing.PrimaryBudget)

	var secondary []*models.RetrievalCandidate
	for _, category := range routing.SecondaryCategories {
		candidates, _ := s.Retrieve(ctx, query, tenantID, category, queryVec, s.cfg.TopK, routing.SecondaryBudget)
		secondary = append(secondary, candidates...)
	}

	result := models.RetrievalResult{
		PrimaryContext:   primary,
		SecondaryContext: secondary,
		TotalChunks:      len(primary) + len(secondary),
		Method:           method,
	}

	s.logger.Info("Retrieval completed",
		zap.String("tenant_id", tenantID),
		zap.String("intent", routing.Intent),
		zap.String("method", string(method)),
		zap.Int("total_chunks", result.TotalChunks),
	)

	return result, routing
}

// Retrieve returns the top candidates of one category, ranked by the fused
// hybrid score and trimmed to tokenBudget. A nil query vector runs
// lexical-only; a mid-pipeline failure is retried once in vector-only mode
// before surfacing an empty list.
func (s *RetrievalService) Retrieve(ctx context.Context, query, tenantID string, category models.Category, queryVec []float32, topK, tokenBudget int) (candidates []*models.RetrievalCandidate, method models.RetrievalMethod) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Retrieval panic recovered", zap.Any("panic", r))
			candidates, method = nil, models.MethodKeywordOnly
		}
	}()

	if topK <= 0 {
		topK = s.cfg.TopK
	}
	fetchLimit := topK * s.cfg.CandidateMultiplier

	// A slow backend is treated like a failed one: degrade, don't hang.
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
	}

	// Vector and keyword search are independent; fusion only needs both
	// result sets, not their relative timing.
	var (
		wg          sync.WaitGroup
		vectorHits  []repository.VectorHit
		keywordHits []repository.KeywordHit
		vectorErr   error
		keywordErr  error
	)

	if queryVec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = s.store.SearchByVector(ctx, tenantID, category, queryVec, fetchLimit)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		keywordHits, keywordErr = s.store.SearchByKeyword(ctx, tenantID, category, query, fetchLimit)
	}()
	wg.Wait()

	vectorUsed := queryVec != nil && vectorErr == nil
	keywordUsed := keywordErr == nil

	if vectorErr != nil {
		s.logger.Warn("Vector search failed, degrading",
			zap.String("category", string(category)),
			zap.Error(vectorErr),
		)
	}
	if keywordErr != nil {
		s.logger.Warn("Keyword search failed, degrading",
			zap.String("category", string(category)),
			zap.Error(keywordErr),
		)
	}

	if !vectorUsed && !keywordUsed {
		// Single retry in vector-only mode before giving up.
		if queryVec != nil {
			retryHits, retryErr := s.store.SearchByVector(ctx, tenantID, category, queryVec, fetchLimit)
			if retryErr == nil {
				fused := s.fuse(retryHits, nil)
				return s.trimToBudget(s.topCandidates(fused, topK), tokenBudget), models.MethodVectorOnly
			}
			s.logger.Warn("Vector-only retry failed", zap.Error(retryErr))
		}
		return nil, models.MethodKeywordOnly
	}

	switch {
	case vectorUsed && keywordUsed:
		method = models.MethodHybrid
	case vectorUsed:
		method = models.MethodVectorOnly
	default:
		method = models.MethodKeywordOnly
	}

	fused := s.fuse(vectorHits, keywordHits)
	return s.trimToBudget(s.topCandidates(fused, topK), tokenBudget), method
}

// fuse merges both result sets into scored candidates. Each set contributes
// a reciprocal-rank term 1/(k+rank); candidates present in only one set keep
// a zero score on the missing axis.
func (s *RetrievalService) fuse(vectorHits []repository.VectorHit, keywordHits []repository.KeywordHit) map[string]*models.RetrievalCandidate {
	candidates := make(map[string]*models.RetrievalCandidate)

	rank := 0
	for _, hit := range vectorHits {
		similarity := clamp01(1 - hit.Distance)
		if similarity < s.cfg.MinVectorSimilarity {
			continue
		}
		rank++
		candidates[hit.Chunk.ID.String()] = &models.RetrievalCandidate{
			Chunk:       hit.Chunk,
			Text:        hit.Chunk.Content,
			VectorScore: similarity,
			VectorRank:  rank,
		}
	}

	rank = 0
	for _, hit := range keywordHits {
		score := clamp01(hit.Score)
		if score < s.cfg.MinKeywordScore {
			continue
		}
		rank++
		id := hit.Chunk.ID.String()
		if existing, ok := candidates[id]; ok {
			existing.KeywordScore = score
			existing.KeywordRank = rank
		} else {
			candidates[id] = &models.RetrievalCandidate{
				Chunk:        hit.Chunk,
				Text:         hit.Chunk.Content,
				KeywordScore: score,
				KeywordRank:  rank,
			}
		}
	}

	for _, c := range candidates {
		if c.VectorRank > 0 {
			c.RRFScore += 1.0 / float64(s.cfg.RRFK+c.VectorRank)
		}
		if c.KeywordRank > 0 {
			c.RRFScore += 1.0 / float64(s.cfg.RRFK+c.KeywordRank)
		}
		c.HybridScore = s.cfg.VectorWeight*c.VectorScore +
			s.cfg.KeywordWeight*c.KeywordScore +
			s.cfg.RRFWeight*c.RRFScore
	}

	return candidates
}

// topCandidates orders by hybrid score descending, ties broken by chunk ID
// so repeated calls over the same inputs return the same ordering.
func (s *RetrievalService) topCandidates(fused map[string]*models.RetrievalCandidate, topK int) []*models.RetrievalCandidate {
	ranked := make([]*models.RetrievalCandidate, 0, len(fused))
	for _, c := range fused {
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].HybridScore != ranked[j].HybridScore {
			return ranked[i].HybridScore > ranked[j].HybridScore
		}
		return ranked[i].Chunk.ID.String() < ranked[j].Chunk.ID.String()
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// trimToBudget walks the ranked list accumulating estimated token cost.
// Whole candidates are included while the running total fits; the first
// overflowing candidate is truncated to the remaining budget when at least
// TruncateMinTokens remain, otherwise processing stops. Unused budget is not
// re-allocated to later categories.
func (s *RetrievalService) trimToBudget(ranked []*models.RetrievalCandidate, tokenBudget int) []*models.RetrievalCandidate {
	if tokenBudget <= 0 {
		return nil
	}

	var kept []*models.RetrievalCandidate
	used := 0
	for _, c := range ranked {
		cost := estimateTokens(c.Chunk.WordCount)
		if c.Chunk.WordCount == 0 {
			cost = estimateTextTokens(c.Text)
		}

		if used+cost <= tokenBudget {
			c.EstimatedTokens = cost
			kept = append(kept, c)
			used += cost
			continue
		}

		remaining := tokenBudget - used
		if remaining >= s.cfg.TruncateMinTokens {
			text, tokens := truncateToTokens(c.Text, remaining)
			if tokens > 0 {
				c.Text = text
				c.EstimatedTokens = tokens
				c.Truncated = true
				kept = append(kept, c)
			}
		}
		break
	}

	return kept
}
