package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/usefiko/pilito-sub003/internal/models"
	"github.com/usefiko/pilito-sub003/pkg/cache"

	"go.uber.org/zap"
)

const (
	routingCacheTTL = time.Hour

	intentGeneral = "general"
	intentPricing = "pricing"
	intentProduct = "product"
	intentSupport = "support"
	intentContact = "contact"

	defaultConfidence = 0.5
)

// RoutingOverrideStore reads per-tenant routing configuration. Lookups are
// best-effort: any error degrades the router to its built-in tables.
type RoutingOverrideStore interface {
	IntentKeywords(ctx context.Context, tenantID string) ([]models.IntentKeyword, error)
	RoutingRules(ctx context.Context, tenantID string) (map[string]models.RoutingRule, error)
}

// RouterService classifies query intent and resolves which knowledge
// categories to search and with what token budgets. Route never fails; every
// error path lands on the built-in defaults.
type RouterService struct {
	overrides RoutingOverrideStore
	cache     cache.Cache
	logger    *zap.Logger
}

func NewRouterService(overrides RoutingOverrideStore, cacheStore cache.Cache, logger *zap.Logger) *RouterService {
	return &RouterService{
		overrides: overrides,
		cache:     cacheStore,
		logger:    logger,
	}
}

func (s *RouterService) Route(ctx context.Context, query, tenantID string) models.QueryRouting {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return s.defaultRouting()
	}

	keywords := s.tenantKeywords(ctx, tenantID)
	rules := s.tenantRules(ctx, tenantID)

	scores := make(map[string]float64)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(normalized, strings.ToLower(kw.Keyword)) {
			weight := kw.Weight
			if weight == 0 {
				weight = 1.0
			}
			scores[kw.Intent] += weight
			matched = append(matched, kw.Keyword)
		}
	}

	intent := intentGeneral
	confidence := defaultConfidence
	var total, best float64
	for _, v := range scores {
		total += v
	}
	if total > 0 {
		// Deterministic winner on equal scores: first intent in sorted order.
		intents := make([]string, 0, len(scores))
		for k := range scores {
			intents = append(intents, k)
		}
		sort.Strings(intents)
		for _, k := range intents {
			if scores[k] > best {
				best = scores[k]
				intent = k
			}
		}
		confidence = clamp01(best / total)
	}

	rule, ok := rules[intent]
	if !ok {
		rule = defaultRoutingRules()[intentGeneral]
	}

	return models.QueryRouting{
		Intent:              intent,
		Confidence:          confidence,
		PrimaryCategory:     rule.PrimaryCategory,
		SecondaryCategories: rule.SecondaryCategories,
		PrimaryBudget:       rule.PrimaryBudget,
		SecondaryBudget:     rule.SecondaryBudget,
		MatchedKeywords:     matched,
	}
}

func (s *RouterService) defaultRouting() models.QueryRouting {
	rule := defaultRoutingRules()[intentGeneral]
	return models.QueryRouting{
		Intent:              intentGeneral,
		Confidence:          defaultConfidence,
		PrimaryCategory:     rule.PrimaryCategory,
		SecondaryCategories: rule.SecondaryCategories,
		PrimaryBudget:       rule.PrimaryBudget,
		SecondaryBudget:     rule.SecondaryBudget,
	}
}

// tenantKeywords merges tenant overrides over the built-in keyword tables.
// Overrides replace the weight of a matching (intent, language, keyword)
// entry or add a new one.
func (s *RouterService) tenantKeywords(ctx context.Context, tenantID string) []models.IntentKeyword {
	merged := defaultIntentKeywords()

	overrides := loadRoutingConfig(ctx, s, tenantID, "routing:kw:", func(ctx context.Context) ([]models.IntentKeyword, error) {
		if s.overrides == nil {
			return nil, nil
		}
		return s.overrides.IntentKeywords(ctx, tenantID)
	})
	if len(overrides) == 0 {
		return merged
	}

	index := make(map[string]int, len(merged))
	for i, kw := range merged {
		index[kw.Intent+"|"+kw.Language+"|"+kw.Keyword] = i
	}
	for _, kw := range overrides {
		if i, ok := index[kw.Intent+"|"+kw.Language+"|"+kw.Keyword]; ok {
			merged[i].Weight = kw.Weight
		} else {
			merged = append(merged, kw)
		}
	}
	return merged
}

func (s *RouterService) tenantRules(ctx context.Context, tenantID string) map[string]models.RoutingRule {
	rules := defaultRoutingRules()

	overrides := loadRoutingConfig(ctx, s, tenantID, "routing:rules:", func(ctx context.Context) (map[string]models.RoutingRule, error) {
		if s.overrides == nil {
			return nil, nil
		}
		return s.overrides.RoutingRules(ctx, tenantID)
	})
	for intent, rule := range overrides {
		rules[intent] = rule
	}
	return rules
}

// loadRoutingConfig fetches one tenant config table through the cache,
// falling back to the zero value when the override store errors.
func loadRoutingConfig[T any](ctx context.Context, s *RouterService, tenantID, prefix string, fetch func(context.Context) (T, error)) T {
	var zero T

	key := prefix + tenantID
	if cached, ok := s.cache.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal([]byte(cached), &value); err == nil {
			return value
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		s.logger.Warn("Routing override lookup failed, using defaults",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return zero
	}

	if encoded, err := json.Marshal(value); err == nil {
		s.cache.Set(ctx, key, string(encoded), routingCacheTTL)
	}
	return value
}

func defaultRoutingRules() map[string]models.RoutingRule {
	return map[string]models.RoutingRule{
		intentPricing: {
			PrimaryCategory:     models.CategoryFAQ,
			SecondaryCategories: []models.Category{models.CategoryWebsite},
			PrimaryBudget:       800,
			SecondaryBudget:     300,
		},
		intentProduct: {
			PrimaryCategory:     models.CategoryProduct,
			SecondaryCategories: []models.Category{models.CategoryManual, models.CategoryFAQ},
			PrimaryBudget:       1000,
			SecondaryBudget:     400,
		},
		intentSupport: {
			PrimaryCategory:     models.CategoryManual,
			SecondaryCategories: []models.Category{models.CategoryFAQ},
			PrimaryBudget:       1200,
			SecondaryBudget:     400,
		},
		intentContact: {
			PrimaryCategory:     models.CategoryWebsite,
			SecondaryCategories: []models.Category{models.CategoryFAQ},
			PrimaryBudget:       600,
			SecondaryBudget:     200,
		},
		intentGeneral: {
			PrimaryCategory:     models.CategoryFAQ,
			SecondaryCategories: []models.Category{models.CategoryProduct, models.CategoryManual, models.CategoryWebsite},
			PrimaryBudget:       800,
			SecondaryBudget:     300,
		},
	}
}

// defaultIntentKeywords is the built-in classification table: English,
// Persian, Arabic and Turkish keywords per intent, weight 1.0 each.
func defaultIntentKeywords() []models.IntentKeyword {
	table := map[string]map[string][]string{
		intentPricing: {
			"en": {"price", "pricing", "cost", "plan", "subscription", "fee", "how much", "discount"},
			"fa": {"قیمت", "هزینه", "تعرفه", "اشتراک", "پلن", "تخفیف"},
			"ar": {"سعر", "تكلفة", "اشتراك", "خطة", "خصم"},
			"tr": {"fiyat", "ücret", "abonelik", "indirim"},
		},
		intentProduct: {
			"en": {"product", "feature", "service", "catalog", "about", "biography", "offer"},
			"fa": {"محصول", "خدمات", "بیوگرافی", "درباره", "معرفی", "کاتالوگ"},
			"ar": {"منتج", "ميزة", "خدمة", "حول", "كتالوج"},
			"tr": {"ürün", "özellik", "hizmet", "hakkında", "katalog"},
		},
		intentSupport: {
			"en": {"how to", "how do", "setup", "install", "configure", "guide", "tutorial", "error", "problem", "not working"},
			"fa": {"چطور", "چگونه", "راهنما", "آموزش", "نصب", "مشکل", "خطا"},
			"ar": {"كيف", "دليل", "تثبيت", "مشكلة", "مساعدة"},
			"tr": {"nasıl", "kurulum", "kılavuz", "sorun", "yardım"},
		},
		intentContact: {
			"en": {"contact", "email", "phone", "address", "call", "reach you"},
			"fa": {"تماس", "آدرس", "تلفن", "ایمیل"},
			"ar": {"اتصال", "هاتف", "عنوان", "بريد"},
			"tr": {"iletişim", "telefon", "adres", "eposta"},
		},
	}

	var keywords []models.IntentKeyword
	intents := make([]string, 0, len(table))
	for intent := range table {
		intents = append(intents, intent)
	}
	sort.Strings(intents)
	for _, intent := range intents {
		languages := make([]string, 0, len(table[intent]))
		for lang := range table[intent] {
			languages = append(languages, lang)
		}
		sort.Strings(languages)
		for _, lang := range languages {
			for _, kw := range table[intent][lang] {
				keywords = append(keywords, models.IntentKeyword{
					Intent:   intent,
					Language: lang,
					Keyword:  kw,
					Weight:   1.0,
				})
			}
		}
	}
	return keywords
}
