package dto

type RetrieveRequest struct {
	TenantID string `json:"tenant_id"`
	Query    string `json:"query"`
}

type RouteRequest struct {
	TenantID string `json:"tenant_id"`
	Query    string `json:"query"`
}

type RoutingResponse struct {
	Intent              string   `json:"intent"`
	Confidence          float64  `json:"confidence"`
	PrimaryCategory     string   `json:"primary_category"`
	SecondaryCategories []string `json:"secondary_categories"`
	PrimaryBudget       int      `json:"primary_budget"`
	SecondaryBudget     int      `json:"secondary_budget"`
	MatchedKeywords     []string `json:"matched_keywords,omitempty"`
}

type CandidateResponse struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"`
	Title           string  `json:"title"`
	Text            string  `json:"text"`
	VectorScore     float64 `json:"vector_score,omitempty"`
	KeywordScore    float64 `json:"keyword_score,omitempty"`
	HybridScore     float64 `json:"hybrid_score"`
	EstimatedTokens int     `json:"estimated_tokens"`
	Truncated       bool    `json:"truncated,omitempty"`
}

type RetrieveResponse struct {
	Routing          RoutingResponse     `json:"routing"`
	PrimaryContext   []CandidateResponse `json:"primary_context"`
	SecondaryContext []CandidateResponse `json:"secondary_context"`
	TotalChunks      int                 `json:"total_chunks"`
	Method           string              `json:"method"`
}
