package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// StatusHandler serves the service health check
type StatusHandler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(pool *pgxpool.Pool, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		pool:   pool,
		logger: logger,
	}
}

// GetHealth reports service and database health
func (h *StatusHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.pool.Ping(ctx); err != nil {
		h.logger.Error("health check failed: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"service":  "migralog-backend",
		"version":  "1.0.0",
	})
}
