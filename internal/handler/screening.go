package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/migralog/backend/internal/audit"
	"github.com/migralog/backend/internal/service"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// ScreeningHandler handles red-flag screening HTTP requests
type ScreeningHandler struct {
	service *service.ScreeningService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewScreeningHandler creates a new ScreeningHandler
func NewScreeningHandler(service *service.ScreeningService, auditLogger *audit.Logger, logger *zap.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

func (h *ScreeningHandler) auditScreening(c *gin.Context, op audit.OperationType, resource audit.ResourceType, userID, resourceID string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(c.Request.Context(), audit.Entry{
		UserID:       userID,
		Operation:    op,
		ResourceType: resource,
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
}

// ScreeningRequest is the body for POST /screening
type ScreeningRequest struct {
	UserID    string                   `json:"user_id"`
	EpisodeID *string                  `json:"episode_id,omitempty"`
	Responses model.ScreeningResponses `json:"responses"`
}

// FirstOnsetRequest is the body for the one-shot first-onset answer
type FirstOnsetRequest struct {
	UserID    string `json:"user_id"`
	FirstEver bool   `json:"first_ever"`
}

// SubmitScreening evaluates a set of screening responses and persists the
// outcome when any warning sign fired
func (h *ScreeningHandler) SubmitScreening(c *gin.Context) {
	var req ScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "user_id is required"})
		return
	}

	eval, err := h.service.Screen(c.Request.Context(), req.UserID, req.EpisodeID, req.Responses)
	if err != nil {
		h.logger.Error("screening failed",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to run screening",
			Details: stringPtr(err.Error()),
		})
		return
	}
	h.auditScreening(c, audit.OperationCreate, audit.ResourceScreening, req.UserID, "")
	c.JSON(http.StatusOK, eval)
}

// GetFirstOnsetPrompt reports whether the one-shot first-onset question should
// be shown to this user
func (h *ScreeningHandler) GetFirstOnsetPrompt(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	ask, err := h.service.ShouldAskFirstOnset(c.Request.Context(), userID, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: "USER_NOT_FOUND", Message: "User not found"})
			return
		}
		h.logger.Error("first-onset gate check failed",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to evaluate first-onset prompt",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"should_ask": ask})
}

// SubmitFirstOnsetAnswer records the answer to the one-shot first-onset
// question so it is never asked again
func (h *ScreeningHandler) SubmitFirstOnsetAnswer(c *gin.Context) {
	var req FirstOnsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "user_id is required"})
		return
	}

	eval, err := h.service.RecordFirstOnsetAnswer(c.Request.Context(), req.UserID, req.FirstEver)
	if err != nil {
		h.logger.Error("failed to record first-onset answer",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to record first-onset answer",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, eval)
}

// ListRedFlags returns the persisted screening history for a user
func (h *ScreeningHandler) ListRedFlags(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
		return
	}

	records, err := h.service.ListRedFlags(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to list red flags",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if records == nil {
		records = []model.RedFlagRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// AcknowledgeRedFlag marks a red-flag record as seen
func (h *ScreeningHandler) AcknowledgeRedFlag(c *gin.Context) {
	recordID := c.Param("id")

	if err := h.service.AcknowledgeRedFlag(c.Request.Context(), recordID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: "RECORD_NOT_FOUND", Message: "Red-flag record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to acknowledge red flag",
			Details: stringPtr(err.Error()),
		})
		return
	}
	h.auditScreening(c, audit.OperationUpdate, audit.ResourceRedFlagRecord, "", recordID)
	c.JSON(http.StatusNoContent, nil)
}
