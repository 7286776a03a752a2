package service

import (
	"math"
	"strings"
	"unicode/utf8"
)

// wordToTokenRatio converts whitespace word counts into estimated LLM token
// counts. This is an approximation of true sub-word tokenization; for
// Perso-Arabic scripts a word can expand to roughly 4.3 tokens, so callers
// sizing chunk budgets for those languages should pick smaller word targets.
const wordToTokenRatio = 1.3

// estimateTokens converts a word count into an estimated token count. The
// same estimator is used by retrieval budget trimming and the prompt budget
// allocator so their totals are comparable.
func estimateTokens(wordCount int) int {
	return int(math.Round(float64(wordCount) * wordToTokenRatio))
}

func estimateTextTokens(text string) int {
	return estimateTokens(len(strings.Fields(text)))
}

// truncateToTokens cuts text down to at most maxTokens estimated tokens,
// keeping whole words and marking the cut with an ellipsis. Returns the
// truncated text and its estimated token count.
func truncateToTokens(text string, maxTokens int) (string, int) {
	words := strings.Fields(text)
	allowed := int(float64(maxTokens) / wordToTokenRatio)
	if allowed >= len(words) {
		return text, estimateTokens(len(words))
	}
	if allowed <= 0 {
		return "", 0
	}
	// The ellipsis attaches to the last word so the word count is unchanged.
	return strings.Join(words[:allowed], " ") + "…", estimateTokens(allowed)
}

// normalizeQuery lowercases and collapses whitespace for keyword matching.
func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// sanitizeUTF8 removes invalid UTF-8 sequences from a string. This prevents
// PostgreSQL encoding errors when persisting ingested text.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
