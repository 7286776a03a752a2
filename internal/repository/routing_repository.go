package repository

import (
	"context"

	"github.com/usefiko/pilito-sub003/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RoutingRepository reads per-tenant overrides for the router's keyword and
// routing tables. Both tables are optional; an empty result means the tenant
// runs on the built-in defaults.
type RoutingRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRoutingRepository(db *pgxpool.Pool, logger *zap.Logger) *RoutingRepository {
	return &RoutingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RoutingRepository) IntentKeywords(ctx context.Context, tenantID string) ([]models.IntentKeyword, error) {
	query := squirrel.Select("intent", "language", "keyword", "weight").
		From("tenant_intent_keywords").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("intent", "language", "keyword").
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

	var keywords []models.IntentKeyword
	for rows.Next() {
		var kw models.IntentKeyword
		if err := rows.Scan(&kw.Intent, &kw.Language, &kw.Keyword, &kw.Weight); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}

	return keywords, rows.Err()
}

func (r *RoutingRepository) RoutingRules(ctx context.Context, tenantID string) (map[string]models.RoutingRule, error) {
	query := squirrel.Select("intent", "primary_category", "secondary_categories", "primary_budget", "secondary_budget").
		From("tenant_routing_rules").
		Where(squirrel.Eq{"tenant_id": tenantID}).
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

	rules := make(map[string]models.RoutingRule)
	for rows.Next() {
		var intent string
		var rule models.RoutingRule
		var secondaries []string

		if err := rows.Scan(&intent, &rule.PrimaryCategory, &secondaries, &rule.PrimaryBudget, &rule.SecondaryBudget); err != nil {
			return nil, err
		}
		for _, s := range secondaries {
			rule.SecondaryCategories = append(rule.SecondaryCategories, models.Category(s))
		}
		rules[intent] = rule
	}

	return rules, rows.Err()
}
