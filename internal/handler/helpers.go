package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the uniform error body returned by every endpoint
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// requireUserID reads the mandatory user_id query parameter
func requireUserID(c *gin.Context) (string, error) {
	userID := c.Query("user_id")
	if userID == "" {
		return "", fmt.Errorf("user_id query parameter is required")
	}
	return userID, nil
}

// parseTimeParam parses an optional RFC 3339 query parameter
func parseTimeParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept a bare date as well
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
		}
	}
	return &t, nil
}
