// Package api exposes the analysis pipeline over REST: one-shot analysis,
// classification-only and parse-only calls, the rule registry listing, and
// stored analysis history.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/checkoutlens/checkout-lens/internal/cache"
	"github.com/checkoutlens/checkout-lens/internal/models"
	"github.com/checkoutlens/checkout-lens/internal/repo"
	"github.com/checkoutlens/checkout-lens/internal/services"
	"github.com/checkoutlens/checkout-lens/internal/utils"
)

// Handlers binds the service facade to gin routes.
type Handlers struct {
	svc    *services.AnalysisService
	cache  cache.Provider
	logger *slog.Logger
}

// NewHandlers constructs the handler set. cache may be nil when no external
// cache is deployed; readiness then only reflects the process itself.
func NewHandlers(svc *services.AnalysisService, cacheProvider cache.Provider, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, cache: cacheProvider, logger: logger}
}

// Analyze handles POST /api/v1/analysis.
func (h *Handlers) Analyze(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validateAnalysisRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	result, err := h.svc.Analyze(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Classify handles POST /api/v1/classify.
func (h *Handlers) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Interactions) == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "interactions are required"})
		return
	}
	if err := validateInteractions(req.Interactions); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interactions": h.svc.ClassifyOnly(req.Interactions)})
}

// ParseDiagnostics handles POST /api/v1/diagnostics/parse.
func (h *Handlers) ParseDiagnostics(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Diagnostics) == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "diagnostics are required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"diagnostics": h.svc.ParseOnly(req.Diagnostics)})
}

// ListRules handles GET /api/v1/rules.
func (h *Handlers) ListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": toRuleSummaries(h.svc.Rules())})
}

// ListAnalyses handles GET /api/v1/analyses.
func (h *Handlers) ListAnalyses(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	analyses, err := h.svc.ListAnalyses(c.Request.Context(), limit)
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

// GetAnalysis handles GET /api/v1/analyses/:id.
func (h *Handlers) GetAnalysis(c *gin.Context) {
	result, feedback, err := h.svc.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondHistoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysisDetail{AnalysisResult: result, Feedback: feedback})
}

// SubmitFeedback handles POST /api/v1/analyses/:id/feedback.
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var body feedbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	feedback := models.Feedback{
		AnalysisID:     c.Param("id"),
		CorrelationKey: body.CorrelationKey,
		Correct:        body.Correct,
		Notes:          body.Notes,
		SubmittedAt:    utils.NowMs(),
	}
	if err := h.svc.SubmitFeedback(c.Request.Context(), feedback); err != nil {
		h.respondHistoryError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "checkout-lens",
		"latency":   h.svc.LatencySummary(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. Readiness reflects the external cache when one
// is deployed; without one the process is ready as soon as it serves.
func (h *Handlers) Ready(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "cache": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "cache": "ok"})
}

func (h *Handlers) respondHistoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, repo.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		h.logger.Error("history operation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "history operation failed"})
	}
}
