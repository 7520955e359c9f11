package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/interfaces/http/middleware"
	"github.com/your-org/coating-shop/internal/pkg/apperr"
)

// respondError writes the status matching the error kind
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	body := gin.H{"error": err.Error()}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
		body["retryable"] = true
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		body["error"] = "Internal server error"
		_ = c.Error(err)
	}

	c.JSON(status, body)
}

// respondBindError reports a request body that failed to decode or validate
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// paramID parses a numeric path parameter
func paramID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + label,
		})
		return 0, false
	}
	return uint(id), true
}

// actorID returns the authenticated user or writes a 401
func actorID(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return 0, false
	}
	return userID, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
