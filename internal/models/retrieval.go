package models

// RetrievalMethod tags which search path produced a result set.
type RetrievalMethod string

const (
	MethodHybrid      RetrievalMethod = "hybrid"
	MethodKeywordOnly RetrievalMethod = "keyword_only"
	MethodVectorOnly  RetrievalMethod = "vector_only"
)

// RetrievalCandidate is a scored chunk during ranking. A rank of 0 means the
// chunk did not appear in that result set; scores default to 0 on the
// missing axis. Text starts as the chunk content and may be truncated during
// budget trimming.
type RetrievalCandidate struct {
	Chunk           *KnowledgeChunk
	Text            string
	VectorScore     float64
	VectorRank      int
	KeywordScore    float64
	KeywordRank     int
	RRFScore        float64
	HybridScore     float64
	EstimatedTokens int
	Truncated       bool
}

// RetrievalResult is the payload handed to the prompt builder.
type RetrievalResult struct {
	PrimaryContext   []*RetrievalCandidate
	SecondaryContext []*RetrievalCandidate
	TotalChunks      int
	Method           RetrievalMethod
}
