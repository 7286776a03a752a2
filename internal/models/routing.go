package models

// QueryRouting is the outcome of intent classification for one query.
// Confidence is in [0,1]; budgets are non-negative token counts.
type QueryRouting struct {
	Intent              string
	Confidence          float64
	PrimaryCategory     Category
	SecondaryCategories []Category
	PrimaryBudget       int
	SecondaryBudget     int
	MatchedKeywords     []string
}

// RoutingRule maps an intent to the knowledge categories to query and the
// token budget for each slot.
type RoutingRule struct {
	PrimaryCategory     Category   `json:"primary_category"`
	SecondaryCategories []Category `json:"secondary_categories"`
	PrimaryBudget       int        `json:"primary_budget"`
	SecondaryBudget     int        `json:"secondary_budget"`
}

// IntentKeyword is one weighted keyword in the per-intent, per-language
// classification table. Weight defaults to 1.0.
type IntentKeyword struct {
	Intent   string  `json:"intent"`
	Language string  `json:"language"`
	Keyword  string  `json:"keyword"`
	Weight   float64 `json:"weight"`
}
