package handlers

import (
	"strings"

	"github.com/usefiko/pilito-sub003/internal/dto"
	"github.com/usefiko/pilito-sub003/internal/models"
	"github.com/usefiko/pilito-sub003/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RetrievalHandler struct {
	retrieval *service.RetrievalService
	router    *service.RouterService
	logger    *zap.Logger
}

func NewRetrievalHandler(retrieval *service.RetrievalService, router *service.RouterService, logger *zap.Logger) *RetrievalHandler {
	return &RetrievalHandler{
		retrieval: retrieval,
		router:    router,
		logger:    logger,
	}
}

// Retrieve runs the full routing and retrieval pipeline for one query.
func (h *RetrievalHandler) Retrieve(c *fiber.Ctx) error {
	var req dto.RetrieveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "tenant_id is required")
	}

	result, routing := h.retrieval.RetrieveContext(c.UserContext(), req.TenantID, req.Query)

	return c.JSON(dto.RetrieveResponse{
		Routing:          toRoutingResponse(routing),
		PrimaryContext:   toCandidateResponses(result.PrimaryContext),
		SecondaryContext: toCandidateResponses(result.SecondaryContext),
		TotalChunks:      result.TotalChunks,
		Method:           string(result.Method),
	})
}

// Route classifies a query without running retrieval.
func (h *RetrievalHandler) Route(c *fiber.Ctx) error {
	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "tenant_id is required")
	}

	routing := h.router.Route(c.UserContext(), req.Query, req.TenantID)
	return c.JSON(toRoutingResponse(routing))
}

func toRoutingResponse(routing models.QueryRouting) dto.RoutingResponse {
	secondaries := make([]string, 0, len(routing.SecondaryCategories))
	for _, category := range routing.SecondaryCategories {
		secondaries = append(secondaries, string(category))
	}
	return dto.RoutingResponse{
		Intent:              routing.Intent,
		Confidence:          routing.Confidence,
		PrimaryCategory:     string(routing.PrimaryCategory),
		SecondaryCategories: secondaries,
		PrimaryBudget:       routing.PrimaryBudget,
		SecondaryBudget:     routing.SecondaryBudget,
		MatchedKeywords:     routing.MatchedKeywords,
	}
}

func toCandidateResponses(candidates []*models.RetrievalCandidate) []dto.CandidateResponse {
	out := make([]dto.CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, dto.CandidateResponse{
			ID:              c.Chunk.ID.String(),
			Category:        string(c.Chunk.Category),
			Title:           c.Chunk.Title,
			Text:            c.Text,
			VectorScore:     c.VectorScore,
			KeywordScore:    c.KeywordScore,
			HybridScore:     c.HybridScore,
			EstimatedTokens: c.EstimatedTokens,
			Truncated:       c.Truncated,
		})
	}
	return out
}
