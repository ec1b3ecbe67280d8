package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blendwise/backend/internal/domain"
	"github.com/blendwise/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver *usecase.Resolver
	log      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver *usecase.Resolver, log *zap.Logger) *Handler {
	return &Handler{resolver: resolver, log: log}
}

// SearchRequest is the body of POST /api/v1/nutrition/search
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	TopK     int    `json:"topK"`
	Category string `json:"category"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "blendwise-backend",
		"version": "1.0.0",
	})
}

// SearchNutrition runs the full resolution pipeline: embed, retrieve,
// rerank, apply customization rules, and compose an explanation.
func (h *Handler) SearchNutrition(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
		return
	}

	answer, err := h.resolver.Resolve(c.Request.Context(), usecase.ResolveRequest{
		Query:    req.Query,
		TopK:     req.TopK,
		Category: category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// BasicSearch returns raw retrieval matches without reranking, rule
// application, or a composed explanation.
func (h *Handler) BasicSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	answer, err := h.resolver.ResolveBasic(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// respondError maps pipeline errors onto HTTP statuses. Upstream detail
// stays in the log; clients get a stable generic body.
func (h *Handler) respondError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.log.Error("nutrition search failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
