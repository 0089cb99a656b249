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

// EpisodeHandler implements the headache logging endpoints
type EpisodeHandler struct {
	service *service.EpisodeService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewEpisodeHandler creates a new EpisodeHandler
func NewEpisodeHandler(service *service.EpisodeService, auditLogger *audit.Logger, logger *zap.Logger) *EpisodeHandler {
	return &EpisodeHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

// Audit writes are best effort; the audit logger records its own failures.
func (h *EpisodeHandler) auditEpisode(c *gin.Context, op audit.OperationType, userID, episodeID string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(c.Request.Context(), audit.Entry{
		UserID:       userID,
		Operation:    op,
		ResourceType: audit.ResourceEpisode,
		ResourceID:   episodeID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
}

// CreateEpisode starts a new active episode
func (h *EpisodeHandler) CreateEpisode(c *gin.Context) {
	var episode model.Episode
	if err := c.ShouldBindJSON(&episode); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid episode payload",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if episode.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "user_id is required",
		})
		return
	}

	if err := h.service.LogEpisode(c.Request.Context(), episode.UserID, &episode); err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if isValidationError(err) {
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		}
		c.JSON(status, ErrorResponse{
			Code:    code,
			Message: "Failed to log episode",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.auditEpisode(c, audit.OperationCreate, episode.UserID, episode.ID)
	c.JSON(http.StatusCreated, episode)
}

// GetEpisode retrieves a single episode
func (h *EpisodeHandler) GetEpisode(c *gin.Context) {
	episode, err := h.service.GetEpisode(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Episode not found",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, episode)
}

// ListEpisodes lists a user's episodes, optionally date-filtered
func (h *EpisodeHandler) ListEpisodes(c *gin.Context) {
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

	episodes, err := h.service.ListEpisodes(c.Request.Context(), userID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to list episodes",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if episodes == nil {
		episodes = []model.Episode{}
	}
	c.JSON(http.StatusOK, episodes)
}

// UpdateEpisode applies field updates to an active episode
func (h *EpisodeHandler) UpdateEpisode(c *gin.Context) {
	var updates model.Episode
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid episode payload",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.UpdateEpisode(c.Request.Context(), c.Param("id"), &updates); err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		switch {
		case strings.Contains(err.Error(), "not found"):
			status, code = http.StatusNotFound, "NOT_FOUND"
		case strings.Contains(err.Error(), "no longer be modified"):
			status, code = http.StatusConflict, "EPISODE_COMPLETED"
		case isValidationError(err):
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		}
		c.JSON(status, ErrorResponse{
			Code:    code,
			Message: "Failed to update episode",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.auditEpisode(c, audit.OperationUpdate, updates.UserID, updates.ID)
	c.JSON(http.StatusOK, updates)
}

// CompleteEpisode ends an active episode
func (h *EpisodeHandler) CompleteEpisode(c *gin.Context) {
	var body struct {
		EndTime *time.Time `json:"end_time"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid completion payload",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.CompleteEpisode(c.Request.Context(), c.Param("id"), body.EndTime); err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		switch {
		case strings.Contains(err.Error(), "not found"):
			status, code = http.StatusNotFound, "NOT_FOUND"
		case strings.Contains(err.Error(), "already completed"):
			status, code = http.StatusConflict, "EPISODE_COMPLETED"
		case strings.Contains(err.Error(), "end time"):
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		}
		c.JSON(status, ErrorResponse{
			Code:    code,
			Message: "Failed to complete episode",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.auditEpisode(c, audit.OperationUpdate, "", c.Param("id"))
	c.Status(http.StatusNoContent)
}

// DeleteEpisode removes an episode
func (h *EpisodeHandler) DeleteEpisode(c *gin.Context) {
	if err := h.service.DeleteEpisode(c.Request.Context(), c.Param("id")); err != nil {
		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if strings.Contains(err.Error(), "not found") {
			status, code = http.StatusNotFound, "NOT_FOUND"
		}
		c.JSON(status, ErrorResponse{
			Code:    code,
			Message: "Failed to delete episode",
			Details: stringPtr(err.Error()),
		})
		return
	}
	h.auditEpisode(c, audit.OperationDelete, "", c.Param("id"))
	c.Status(http.StatusNoContent)
}

func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "required") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "must not")
}
