package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/usefiko/pilito-sub003/pkg/cache"
	"github.com/usefiko/pilito-sub003/pkg/config"

	"go.uber.org/zap"
)

const (
	// embeddingCacheVersion is baked into every cache key; bump it when the
	// key schema or normalization changes.
	embeddingCacheVersion = "v1"
	embeddingCacheTTL     = 30 * 24 * time.Hour

	TaskTypeQuery    = "query"
	TaskTypeDocument = "document"
)

// EmbeddingProvider turns text into fixed-dimension vectors. Exactly one
// provider serves a tenant index: once the index is built with dimension D,
// swapping in a provider with a different dimension breaks the downstream
// distance math, so mismatching vectors are rejected rather than substituted.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}

// HTTPEmbeddingProvider calls an OpenAI-compatible embeddings endpoint with a
// bounded timeout. A timeout is treated like any other provider failure.
type HTTPEmbeddingProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPEmbeddingProvider(cfg *config.EmbeddingConfig, logger *zap.Logger) *HTTPEmbeddingProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPEmbeddingProvider{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *HTTPEmbeddingProvider) Name() string { return p.model }

func (p *HTTPEmbeddingProvider) Dimension() int { return p.dimension }

func (p *HTTPEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	requestBody := map[string]interface{}{
		"model": p.model,
		"input": texts,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var embeddingResp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(embeddingResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range embeddingResp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}

// EmbeddingService is the cache-first client in front of the provider.
type EmbeddingService struct {
	provider EmbeddingProvider
	cache    cache.Cache
	logger   *zap.Logger
}

func NewEmbeddingService(provider EmbeddingProvider, cacheStore cache.Cache, logger *zap.Logger) *EmbeddingService {
	return &EmbeddingService{
		provider: provider,
		cache:    cacheStore,
		logger:   logger,
	}
}

// Embed returns the vector for (text, taskType), or ok=false when semantic
// search is unavailable for this call. Callers fall back to lexical-only
// retrieval on false; no secondary provider is ever substituted. The provider
// is called at most once and never retried here.
func (s *EmbeddingService) Embed(ctx context.Context, text, taskType string) ([]float32, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	key := embeddingCacheKey(taskType, text)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var vector []float32
		if err := json.Unmarshal([]byte(cached), &vector); err == nil && len(vector) > 0 {
			return vector, true
		}
		s.logger.Warn("Discarding malformed embedding cache entry", zap.String("key", key))
	}

	vectors, err := s.provider.Embed(ctx, []string{text})
	if err != nil {
		s.logger.Warn("Embedding provider failed",
			zap.String("provider", s.provider.Name()),
			zap.String("task_type", taskType),
			zap.Error(err),
		)
		return nil, false
	}

	vector := vectors[0]
	if len(vector) == 0 {
		s.logger.Warn("Embedding provider returned empty vector", zap.String("provider", s.provider.Name()))
		return nil, false
	}
	if dim := s.provider.Dimension(); dim > 0 && len(vector) != dim {
		s.logger.Warn("Embedding dimension mismatch",
			zap.String("provider", s.provider.Name()),
			zap.Int("expected", dim),
			zap.Int("got", len(vector)),
		)
		return nil, false
	}

	if encoded, err := json.Marshal(vector); err == nil {
		s.cache.Set(ctx, key, string(encoded), embeddingCacheTTL)
	}

	return vector, true
}

// RankedDocument is one entry of a document ranking, referencing the input
// slice by index.
type RankedDocument struct {
	Index int
	Score float64
}

// Rank embeds the query once and scores every document by cosine similarity,
// returning the top n descending. An unavailable query embedding yields an
// empty ranking.
func (s *EmbeddingService) Rank(ctx context.Context, query string, documents []string, topN int) []RankedDocument {
	queryVec, ok := s.Embed(ctx, query, TaskTypeQuery)
	if !ok {
		return nil
	}

	ranked := make([]RankedDocument, 0, len(documents))
	for i, doc := range documents {
		docVec, ok := s.Embed(ctx, doc, TaskTypeDocument)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedDocument{Index: i, Score: CosineSimilarity(queryVec, docVec)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Index < ranked[j].Index
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// CosineSimilarity returns dot(a,b)/(|a||b|) clamped to [0,1]. Dimension
// mismatch or a zero-magnitude vector yields 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return clamp01(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func embeddingCacheKey(taskType, text string) string {
	sum := sha256.Sum256([]byte(embeddingCacheVersion + "|" + taskType + "|" + normalizeQuery(text)))
	return "emb:" + hex.EncodeToString(sum[:])
}
