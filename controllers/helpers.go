package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"occupancy-backend/middleware"
	"occupancy-backend/utils"
)

func actorFrom(c *gin.Context) string {
	return c.GetString(middleware.ActorIDKey)
}

func respondBindError(c *gin.Context, err error) {
	utils.Logger.WithField("path", c.Request.URL.Path).Debugf("binding error: %v", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": utils.ErrorBody{
			Code:    utils.ErrCodeInvalidPayload,
			Message: "Invalid request payload",
			Details: err.Error(),
		},
	})
}

// parseDateParam accepts RFC3339 or YYYY-MM-DD. A bare date used as an
// upper bound covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		u := t.UTC()
		return &u, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", utils.ErrValidation, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
