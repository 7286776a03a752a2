package models

// PassageMeta carries source metadata attached to every passage produced
// from one document.
type PassageMeta struct {
	SourceID string
	Page     int
}

// Passage is one unit of split source text ready for indexing. ChunkIndex is
// monotonically increasing; TotalChunks is back-filled once splitting
// completes.
type Passage struct {
	Text        string
	ChunkIndex  int
	TotalChunks int
	WordCount   int
	Language    string
	Keywords    []string
	SourceID    string
	Page        int
}
