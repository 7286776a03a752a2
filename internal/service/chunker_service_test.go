package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/usefiko/pilito-sub003/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestSplit_ShortTextSinglePassage(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	passages := chunker.Split(numberedWords(50), 512, 50, models.PassageMeta{SourceID: "doc-1"})

	require.Len(t, passages, 1)
	assert.Equal(t, 0, passages[0].ChunkIndex)
	assert.Equal(t, 1, passages[0].TotalChunks)
	assert.Equal(t, 50, passages[0].WordCount)
	assert.Equal(t, "doc-1", passages[0].SourceID)
}

func TestSplit_OverlappingWindows(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	// No punctuation, so no boundary snapping shifts the windows.
	passages := chunker.Split(numberedWords(180), 100, 20, models.PassageMeta{})

	require.Len(t, passages, 2)
	assert.Equal(t, 100, passages[0].WordCount)

	// Second window starts at chunk_size - overlap.
	secondWords := strings.Fields(passages[1].Text)
	assert.Equal(t, "w80", secondWords[0])
	assert.Equal(t, "w179", secondWords[len(secondWords)-1])

	for i, p := range passages {
		assert.Equal(t, i, p.ChunkIndex)
		assert.Equal(t, 2, p.TotalChunks)
	}
}

func TestSplit_SnapsToSentenceEnd(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	words := strings.Fields(numberedWords(160))
	words[94] += "." // sentence end just before the raw boundary at 100
	text := strings.Join(words, " ")

	passages := chunker.Split(text, 100, 20, models.PassageMeta{})

	require.GreaterOrEqual(t, len(passages), 2)
	first := strings.Fields(passages[0].Text)
	assert.Equal(t, "w94.", first[len(first)-1])

	second := strings.Fields(passages[1].Text)
	assert.Equal(t, "w75", second[0]) // cut at 95, minus overlap 20
}

func TestSplit_EmptyText(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())
	assert.Empty(t, chunker.Split("   ", 100, 10, models.PassageMeta{}))
}

func TestSplit_ExtractsKeywords(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	text := "The billing page shows billing history and billing settings for the account owner."
	passages := chunker.Split(text, 512, 0, models.PassageMeta{})

	require.Len(t, passages, 1)
	require.NotEmpty(t, passages[0].Keywords)
	assert.Equal(t, "billing", passages[0].Keywords[0])
	assert.NotContains(t, passages[0].Keywords, "the")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "hello how are you today", "en"},
		{"persian", "سلام حال شما چطور است", "fa"},
		{"mostly latin with a few persian words", "the product name is مزون and it ships worldwide from our warehouse", "en"},
		{"empty", "", "en"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectLanguage(tc.text))
		})
	}
}

func TestSplit_PersianTextTagged(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	passages := chunker.Split("مزون ما در تهران است و لباس مجلسی می‌دوزد", 512, 0, models.PassageMeta{})

	require.Len(t, passages, 1)
	assert.Equal(t, "fa", passages[0].Language)
}

func TestSummarize_ShortTextUnchanged(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	text := "One short sentence."
	assert.Equal(t, text, chunker.Summarize(text, 100))
}

func TestSummarize_KeepsFirstSentenceAndBudget(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	var b strings.Builder
	b.WriteString("First sentence opens the document. ")
	for i := 0; i < 30; i++ {
		b.WriteString(fmt.Sprintf("Middle sentence number %d adds detail. ", i))
	}
	b.WriteString("Last sentence closes the document.")

	summary := chunker.Summarize(b.String(), 40)

	assert.LessOrEqual(t, len(strings.Fields(summary)), 40)
	assert.True(t, strings.HasPrefix(summary, "First sentence opens the document."))
	assert.Contains(t, summary, "Last sentence closes the document.")
}

func TestSummarize_PreservesSentenceOrder(t *testing.T) {
	chunker := NewChunkerService(zap.NewNop())

	text := "Alpha one. Beta two. Gamma three. Delta four. Epsilon five. Zeta six. Eta seven. Theta eight."
	summary := chunker.Summarize(text, 10)

	alpha := strings.Index(summary, "Alpha")
	theta := strings.Index(summary, "Theta")
	require.GreaterOrEqual(t, alpha, 0)
	if theta >= 0 {
		assert.Less(t, alpha, theta)
	}
}

func TestCustomLanguageDetector(t *testing.T) {
	chunker := NewChunkerServiceWithDetector(func(string) string { return "fa" }, zap.NewNop())

	passages := chunker.Split("plain latin text here", 512, 0, models.PassageMeta{})

	require.Len(t, passages, 1)
	assert.Equal(t, "fa", passages[0].Language)
}
