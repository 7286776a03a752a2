package service

import (
	"sort"
	"strings"
	"unicode"

	"github.com/usefiko/pilito-sub003/internal/models"

	"go.uber.org/zap"
)

const (
	// Window scanned backward from a raw chunk boundary for a sentence end.
	sentenceScanWindow = 50
	// Share of non-space runes that must be Perso-Arabic before the text is
	// treated as such. Short mixed-script strings can misdetect; the ratio
	// heuristic is approximate and the detector is pluggable for that reason.
	arabicScriptThreshold = 0.30

	languageEnglish = "en"
	languagePersian = "fa"

	chunkKeywordCount = 8
)

// LanguageDetector maps raw text to a language tag used for boundary rules.
type LanguageDetector func(text string) string

// DetectLanguage classifies text by the ratio of Perso-Arabic script runes
// to all non-space runes.
func DetectLanguage(text string) string {
	var total, arabic int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	if total > 0 && float64(arabic)/float64(total) > arabicScriptThreshold {
		return languagePersian
	}
	return languageEnglish
}

var sentenceTerminators = map[string][]rune{
	languageEnglish: {'.', '!', '?'},
	languagePersian: {'.', '!', '?', '؟', '؛', '۔'},
}

// ChunkerService splits long source text into overlapping passages with
// language-aware sentence boundaries, and produces extractive summaries.
// Counting is whitespace word-level, not sub-word tokens; see
// wordToTokenRatio for how callers should size chunk budgets.
type ChunkerService struct {
	detect LanguageDetector
	logger *zap.Logger
}

func NewChunkerService(logger *zap.Logger) *ChunkerService {
	return &ChunkerService{
		detect: DetectLanguage,
		logger: logger,
	}
}

// NewChunkerServiceWithDetector allows swapping the language heuristic.
func NewChunkerServiceWithDetector(detect LanguageDetector, logger *zap.Logger) *ChunkerService {
	return &ChunkerService{
		detect: detect,
		logger: logger,
	}
}

// Split cuts text into passages of at most chunkSize words, each window
// advancing by chunkSize-overlap words. Cuts snap backward to the nearest
// sentence end within the scan window. TotalChunks is back-filled once all
// passages are produced.
func (s *ChunkerService) Split(text string, chunkSize, overlap int, meta models.PassageMeta) []models.Passage {
	text = normalizeSourceText(sanitizeUTF8(text))
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	language := s.detect(text)
	tokens := strings.Fields(text)

	var passages []models.Passage
	if len(tokens) <= chunkSize {
		passages = append(passages, s.newPassage(tokens, 0, language, meta))
	} else {
		step := chunkSize - overlap
		start := 0
		for start < len(tokens) {
			end := start + chunkSize
			if end >= len(tokens) {
				end = len(tokens)
			} else {
				end = snapToSentenceEnd(tokens, start, end, language)
			}

			passages = append(passages, s.newPassage(tokens[start:end], len(passages), language, meta))
			if end == len(tokens) {
				break
			}

			next := end - overlap
			if next <= start {
				next = start + step
			}
			start = next
		}
	}

	for i := range passages {
		passages[i].TotalChunks = len(passages)
	}
	return passages
}

func (s *ChunkerService) newPassage(tokens []string, index int, language string, meta models.PassageMeta) models.Passage {
	text := strings.Join(tokens, " ")
	return models.Passage{
		Text:       text,
		ChunkIndex: index,
		WordCount:  len(tokens),
		Language:   language,
		Keywords:   extractKeywords(tokens, language, chunkKeywordCount),
		SourceID:   meta.SourceID,
		Page:       meta.Page,
	}
}

// snapToSentenceEnd scans backward from the raw boundary looking for a token
// that ends a sentence, cutting there when found within the window.
func snapToSentenceEnd(tokens []string, start, end int, language string) int {
	terminators := sentenceTerminators[language]
	if terminators == nil {
		terminators = sentenceTerminators[languageEnglish]
	}

	lowest := end - sentenceScanWindow
	if lowest < start+1 {
		lowest = start + 1
	}
	for i := end - 1; i >= lowest; i-- {
		if endsSentence(tokens[i], terminators) {
			return i + 1
		}
	}
	return end
}

func endsSentence(token string, terminators []rune) bool {
	runes := []rune(token)
	if len(runes) == 0 {
		return false
	}
	last := runes[len(runes)-1]
	for _, t := range terminators {
		if last == t {
			return true
		}
	}
	return false
}

// Summarize produces an extractive summary of at most maxWords words: the
// first and last sentences when they jointly fit under 70% of the budget,
// plus as many middle sentences as fit, in original order.
func (s *ChunkerService) Summarize(text string, maxWords int) string {
	text = normalizeSourceText(sanitizeUTF8(text))
	if maxWords <= 0 {
		return ""
	}
	if len(strings.Fields(text)) <= maxWords {
		return text
	}

	language := s.detect(text)
	sentences := splitSentences(text, language)
	if len(sentences) == 0 {
		truncated, _ := truncateToTokens(text, estimateTokens(maxWords))
		return truncated
	}

	selected := make([]bool, len(sentences))
	selected[0] = true
	budget := maxWords - sentenceWords(sentences[0])

	last := len(sentences) - 1
	if last > 0 {
		combined := sentenceWords(sentences[0]) + sentenceWords(sentences[last])
		if float64(combined) < 0.7*float64(maxWords) {
			selected[last] = true
			budget -= sentenceWords(sentences[last])
		}
	}

	for i := 1; i < last; i++ {
		words := sentenceWords(sentences[i])
		if words <= budget {
			selected[i] = true
			budget -= words
		}
	}

	var parts []string
	for i, sentence := range sentences {
		if selected[i] {
			parts = append(parts, sentence)
		}
	}
	summary := strings.Join(parts, " ")

	words := strings.Fields(summary)
	if len(words) > maxWords {
		summary = strings.Join(words[:maxWords], " ")
	}
	return summary
}

// splitSentences keeps each sentence's terminator attached to it.
func splitSentences(text, language string) []string {
	terminators := sentenceTerminators[language]
	if terminators == nil {
		terminators = sentenceTerminators[languageEnglish]
	}
	isTerminator := func(r rune) bool {
		for _, t := range terminators {
			if r == t {
				return true
			}
		}
		return false
	}

	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if isTerminator(r) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func sentenceWords(sentence string) int {
	return len(strings.Fields(sentence))
}

// normalizeSourceText collapses duplicate zero-width joiners and whitespace
// runs before word-level tokenization.
func normalizeSourceText(s string) string {
	for strings.Contains(s, "‌‌") {
		s = strings.ReplaceAll(s, "‌‌", "‌")
	}
	return strings.Join(strings.Fields(s), " ")
}

var englishStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "can": true, "our": true, "your": true, "with": true,
	"this": true, "that": true, "from": true, "have": true, "has": true, "was": true,
	"were": true, "will": true, "what": true, "when": true, "where": true, "how": true,
	"which": true, "their": true, "there": true, "about": true, "into": true, "also": true,
}

var persianStopwords = map[string]bool{
	"و": true, "در": true, "به": true, "از": true, "که": true, "این": true,
	"را": true, "با": true, "است": true, "برای": true, "آن": true, "یک": true,
	"خود": true, "تا": true, "بر": true, "هم": true, "ما": true, "یا": true,
	"شما": true, "های": true, "می": true, "شود": true, "کرد": true, "شد": true,
}

// extractKeywords returns the topN most frequent non-stopword tokens,
// most frequent first, alphabetical on ties.
func extractKeywords(tokens []string, language string, topN int) []string {
	stopwords := englishStopwords
	minLen := 3
	if language == languagePersian {
		stopwords = persianStopwords
		minLen = 2
	}

	freq := make(map[string]int)
	for _, token := range tokens {
		word := strings.ToLower(strings.TrimFunc(token, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if len([]rune(word)) < minLen || stopwords[word] {
			continue
		}
		freq[word]++
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > topN {
		words = words[:topN]
	}
	return words
}
