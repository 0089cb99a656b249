package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/migralog/backend/internal/service"
	"go.uber.org/zap"
)

// AnalyticsHandler exposes the analytics engine over HTTP. All heatmap or
// grid layout is left to the presentation layer; these endpoints return
// ranked lists only.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(service *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// GetCorrelations returns trigger, treatment and symptom rankings
func (h *AnalyticsHandler) GetCorrelations(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	from, err := parseTimeParam(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}
	to, err := parseTimeParam(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	report, err := h.service.Correlations(c.Request.Context(), userID, from, to)
	if err != nil {
		h.respondAnalysisError(c, userID, "correlation", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetMedicationOveruse returns the medication-overuse assessment
func (h *AnalyticsHandler) GetMedicationOveruse(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	report, err := h.service.MedicationOveruse(c.Request.Context(), userID)
	if err != nil {
		h.respondAnalysisError(c, userID, "medication overuse", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetTrends returns the month-binned trend comparison
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	report, err := h.service.Trends(c.Request.Context(), userID)
	if err != nil {
		h.respondAnalysisError(c, userID, "trend", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) respondAnalysisError(c *gin.Context, userID, analysis string, err error) {
	if errors.Is(err, service.ErrAnalysisDisabled) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "ANALYSIS_DISABLED",
			Message: "This analysis is disabled by configuration",
		})
		return
	}
	h.logger.Error("analysis failed",
		zap.Error(err),
		zap.String("user_id", userID),
		zap.String("analysis", analysis),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "Failed to compute " + analysis + " analysis",
		Details: stringPtr(err.Error()),
	})
}
