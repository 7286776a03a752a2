package service

import (
	"go.uber.org/zap"
)

// PromptComponents are the pieces that make up one LLM prompt.
type PromptComponents struct {
	SystemPrompt     string
	Conversation     string
	PrimaryContext   string
	SecondaryContext string
	UserQuery        string
}

// BudgetAllocation is the trimmed prompt plus per-component token estimates.
type BudgetAllocation struct {
	Components PromptComponents
	Tokens     map[string]int
	Total      int
}

// BudgetService apportions a hard token ceiling across the prompt
// components. When over the ceiling it trims secondary context first, then
// primary context, then conversation history; the system prompt and the live
// user query are never trimmed. Allocation is idempotent on compliant input.
type BudgetService struct {
	logger *zap.Logger
}

func NewBudgetService(logger *zap.Logger) *BudgetService {
	return &BudgetService{logger: logger}
}

func (s *BudgetService) Allocate(components PromptComponents, hardLimit int) BudgetAllocation {
	trimmable := []struct {
		name string
		text *string
	}{
		{"secondary_context", &components.SecondaryContext},
		{"primary_context", &components.PrimaryContext},
		{"conversation", &components.Conversation},
	}

	total := s.total(components)
	for _, field := range trimmable {
		if total <= hardLimit {
			break
		}
		over := total - hardLimit
		current := estimateTextTokens(*field.text)
		allowed := current - over
		if allowed < 0 {
			allowed = 0
		}

		trimmed, tokens := truncateToTokens(*field.text, allowed)
		if tokens < current {
			s.logger.Debug("Trimmed prompt component",
				zap.String("component", field.name),
				zap.Int("before", current),
				zap.Int("after", tokens),
			)
		}
		*field.text = trimmed
		total = s.total(components)
	}

	if total > hardLimit {
		s.logger.Warn("Prompt exceeds hard limit after trimming",
			zap.Int("total", total),
			zap.Int("hard_limit", hardLimit),
		)
	}

	tokens := map[string]int{
		"system_prompt":     estimateTextTokens(components.SystemPrompt),
		"conversation":      estimateTextTokens(components.Conversation),
		"primary_context":   estimateTextTokens(components.PrimaryContext),
		"secondary_context": estimateTextTokens(components.SecondaryContext),
		"user_query":        estimateTextTokens(components.UserQuery),
	}

	return BudgetAllocation{
		Components: components,
		Tokens:     tokens,
		Total:      total,
	}
}

func (s *BudgetService) total(components PromptComponents) int {
	return estimateTextTokens(components.SystemPrompt) +
		estimateTextTokens(components.Conversation) +
		estimateTextTokens(components.PrimaryContext) +
		estimateTextTokens(components.SecondaryContext) +
		estimateTextTokens(components.UserQuery)
}
