package handlers

import (
	"net/http"

	"study-habit-api/internal/cache"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Root handles GET /
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Study Habit Tracker API!",
		"version": Version,
	})
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "The server is operating normally.",
	})
}

// CacheStats handles GET /api/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	s, ok := h.cache.(interface{ Stats() cache.Stats })
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Cache does not report stats"})
		return
	}
	c.JSON(http.StatusOK, s.Stats())
}
