package service

import (
	"context"
	"errors"
	"testing"

	"github.com/usefiko/pilito-sub003/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	dim   int
	calls int
	err   error
	vec   func(text string) []float32
}

func (p *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vec(text)
	}
	return out, nil
}

func (p *fakeProvider) Dimension() int { return p.dim }
func (p *fakeProvider) Name() string   { return "fake" }

// hashVec is a deterministic stand-in for a real embedding.
func hashVec(dim int) func(string) []float32 {
	return func(text string) []float32 {
		vec := make([]float32, dim)
		var h uint32 = 2166136261
		for _, b := range []byte(text) {
			h = (h ^ uint32(b)) * 16777619
			vec[h%uint32(dim)] += 1
		}
		return vec
	}
}

func newTestEmbedding(provider EmbeddingProvider) *EmbeddingService {
	return NewEmbeddingService(provider, cache.NewMemoryCache(), zap.NewNop())
}

func TestEmbed_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{dim: 8, vec: hashVec(8)}
	svc := newTestEmbedding(provider)
	ctx := context.Background()

	first, ok := svc.Embed(ctx, "hello world", TaskTypeQuery)
	require.True(t, ok)

	second, ok := svc.Embed(ctx, "hello world", TaskTypeQuery)
	require.True(t, ok)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, first, second)
}

func TestEmbed_DistinctTaskTypesAreDistinctEntries(t *testing.T) {
	provider := &fakeProvider{dim: 8, vec: hashVec(8)}
	svc := newTestEmbedding(provider)
	ctx := context.Background()

	_, ok := svc.Embed(ctx, "hello", TaskTypeQuery)
	require.True(t, ok)
	_, ok = svc.Embed(ctx, "hello", TaskTypeDocument)
	require.True(t, ok)

	assert.Equal(t, 2, provider.calls)
}

func TestEmbed_EmptyTextSkipsProvider(t *testing.T) {
	provider := &fakeProvider{dim: 8, vec: hashVec(8)}
	svc := newTestEmbedding(provider)

	_, ok := svc.Embed(context.Background(), "   ", TaskTypeQuery)

	assert.False(t, ok)
	assert.Equal(t, 0, provider.calls)
}

func TestEmbed_ProviderFailureIsUnavailable(t *testing.T) {
	provider := &fakeProvider{dim: 8, err: errors.New("timeout")}
	svc := newTestEmbedding(provider)

	vec, ok := svc.Embed(context.Background(), "hello", TaskTypeQuery)

	assert.False(t, ok)
	assert.Nil(t, vec)
	assert.Equal(t, 1, provider.calls)
}

func TestEmbed_DimensionMismatchIsRejected(t *testing.T) {
	// Provider declares 16 but produces 8: accepting the vector would break
	// distance math against an index built at the declared dimension.
	provider := &fakeProvider{dim: 16, vec: hashVec(8)}
	svc := newTestEmbedding(provider)

	_, ok := svc.Embed(context.Background(), "hello", TaskTypeQuery)

	assert.False(t, ok)
}

func TestCosineSimilarity_Identity(t *testing.T) {
	v := []float32{0.3, 0.5, 0.1, 0.9}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	a := []float32{0.1, -0.4, 0.8, 0.2}
	b := []float32{-0.7, 0.3, 0.5, -0.1}
	got := CosineSimilarity(a, b)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestRank_OrdersBySimilarity(t *testing.T) {
	provider := &fakeProvider{dim: 3, vec: func(text string) []float32 {
		switch text {
		case "query":
			return []float32{1, 0, 0}
		case "near":
			return []float32{0.9, 0.1, 0}
		case "far":
			return []float32{0, 1, 0}
		default:
			return []float32{0, 0, 1}
		}
	}}
	svc := newTestEmbedding(provider)

	ranked := svc.Rank(context.Background(), "query", []string{"far", "near"}, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Index)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRank_QueryEmbeddingFailureReturnsEmpty(t *testing.T) {
	provider := &fakeProvider{dim: 3, err: errors.New("down")}
	svc := newTestEmbedding(provider)

	ranked := svc.Rank(context.Background(), "query", []string{"a", "b"}, 5)

	assert.Empty(t, ranked)
}
