package service

import (
	"context"
	"errors"
	"testing"

	"github.com/usefiko/pilito-sub003/internal/models"
	"github.com/usefiko/pilito-sub003/pkg/cache"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeOverrideStore struct {
	keywords    []models.IntentKeyword
	rules       map[string]models.RoutingRule
	keywordsErr error
	rulesErr    error
	calls       int
}

func (f *fakeOverrideStore) IntentKeywords(_ context.Context, _ string) ([]models.IntentKeyword, error) {
	f.calls++
	return f.keywords, f.keywordsErr
}

func (f *fakeOverrideStore) RoutingRules(_ context.Context, _ string) (map[string]models.RoutingRule, error) {
	f.calls++
	return f.rules, f.rulesErr
}

func newTestRouter(store RoutingOverrideStore) *RouterService {
	return NewRouterService(store, cache.NewMemoryCache(), zap.NewNop())
}

func TestRoute_EmptyQueryReturnsDefaults(t *testing.T) {
	router := newTestRouter(&fakeOverrideStore{})

	for _, query := range []string{"", "   ", "\t\n"} {
		routing := router.Route(context.Background(), query, "t1")
		assert.Equal(t, "general", routing.Intent)
		assert.Equal(t, 0.5, routing.Confidence)
		assert.Equal(t, models.CategoryFAQ, routing.PrimaryCategory)
		assert.Equal(t, 800, routing.PrimaryBudget)
		assert.Equal(t, 300, routing.SecondaryBudget)
	}
}

func TestRoute_PricingKeywords(t *testing.T) {
	router := newTestRouter(&fakeOverrideStore{})

	routing := router.Route(context.Background(), "what is your price plan cost", "t1")

	assert.Equal(t, "pricing", routing.Intent)
	assert.Greater(t, routing.Confidence, 0.0)
	assert.LessOrEqual(t, routing.Confidence, 1.0)
	assert.Contains(t, routing.MatchedKeywords, "price")
	assert.Equal(t, models.CategoryFAQ, routing.PrimaryCategory)
}

func TestRoute_PersianBiographyQuery(t *testing.T) {
	router := newTestRouter(&fakeOverrideStore{})

	routing := router.Route(context.Background(), "یک بیوگرافی از مزونتون میدی بهم کامل", "t1")

	assert.Equal(t, "product", routing.Intent)
	assert.Greater(t, routing.Confidence, 0.0)
	assert.Contains(t, routing.SecondaryCategories, models.CategoryManual)
}

func TestRoute_NoMatchFallsBackToGeneral(t *testing.T) {
	router := newTestRouter(&fakeOverrideStore{})

	routing := router.Route(context.Background(), "zzz qqq xyzzy", "t1")

	assert.Equal(t, "general", routing.Intent)
	assert.Equal(t, 0.5, routing.Confidence)
	assert.Equal(t, models.CategoryFAQ, routing.PrimaryCategory)
}

func TestRoute_OverrideStoreErrorDegradesToDefaults(t *testing.T) {
	store := &fakeOverrideStore{
		keywordsErr: errors.New("connection refused"),
		rulesErr:    errors.New("connection refused"),
	}
	router := newTestRouter(store)

	routing := router.Route(context.Background(), "how much does the plan cost", "t1")

	assert.Equal(t, "pricing", routing.Intent)
	assert.Greater(t, routing.Confidence, 0.0)
}

func TestRoute_NilOverrideStore(t *testing.T) {
	router := newTestRouter(nil)

	routing := router.Route(context.Background(), "contact phone number", "t1")
	assert.Equal(t, "contact", routing.Intent)
	assert.Equal(t, models.CategoryWebsite, routing.PrimaryCategory)
}

func TestRoute_TenantKeywordOverrides(t *testing.T) {
	store := &fakeOverrideStore{
		keywords: []models.IntentKeyword{
			{Intent: "support", Language: "en", Keyword: "onboarding", Weight: 3.0},
		},
	}
	router := newTestRouter(store)

	routing := router.Route(context.Background(), "onboarding question", "t1")

	assert.Equal(t, "support", routing.Intent)
	assert.Equal(t, models.CategoryManual, routing.PrimaryCategory)
}

func TestRoute_TenantRuleOverrides(t *testing.T) {
	store := &fakeOverrideStore{
		rules: map[string]models.RoutingRule{
			"pricing": {
				PrimaryCategory: models.CategoryWebsite,
				PrimaryBudget:   500,
				SecondaryBudget: 100,
			},
		},
	}
	router := newTestRouter(store)

	routing := router.Route(context.Background(), "pricing please", "t1")

	assert.Equal(t, "pricing", routing.Intent)
	assert.Equal(t, models.CategoryWebsite, routing.PrimaryCategory)
	assert.Equal(t, 500, routing.PrimaryBudget)
}

func TestRoute_OverridesCachedBetweenCalls(t *testing.T) {
	store := &fakeOverrideStore{}
	router := newTestRouter(store)

	router.Route(context.Background(), "price", "t1")
	callsAfterFirst := store.calls
	router.Route(context.Background(), "price", "t1")

	assert.Equal(t, callsAfterFirst, store.calls)
}

func TestRoute_SingleIntentConfidenceIsOne(t *testing.T) {
	router := newTestRouter(&fakeOverrideStore{})

	routing := router.Route(context.Background(), "discount", "t1")

	assert.Equal(t, "pricing", routing.Intent)
	assert.InDelta(t, 1.0, routing.Confidence, 1e-9)
}
