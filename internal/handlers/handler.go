package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"study-habit-api/internal/auth"
	"study-habit-api/internal/cache"
	"study-habit-api/internal/middleware"
	"study-habit-api/internal/realtime"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler carries the collaborators shared by every endpoint.
type Handler struct {
	db     *gorm.DB
	cache  cache.Cache
	hub    *realtime.Hub
	tokens *auth.TokenManager

	// now is replaceable so tests can pin "today".
	now func() time.Time
}

// New builds a Handler. The cache and hub are owned by the caller and must
// outlive the Handler.
func New(db *gorm.DB, c cache.Cache, hub *realtime.Hub, tokens *auth.TokenManager) *Handler {
	return &Handler{
		db:     db,
		cache:  c,
		hub:    hub,
		tokens: tokens,
		now:    time.Now,
	}
}

// currentUser returns the authenticated user id, replying 401 when absent.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
		})
		return "", false
	}
	return userID, true
}

// pathID parses a numeric path parameter, replying 400 when malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// dbError replies 404 for missing records and 500 for everything else.
func dbError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	log.WithError(err).WithField("path", c.FullPath()).Error(failed)
	c.JSON(http.StatusInternalServerError, gin.H{"error": failed})
}

// invalidate drops the user's cached results for the given endpoints.
func (h *Handler) invalidate(userID string, endpoints ...string) {
	if n := cache.InvalidateEndpoints(h.cache, userID, endpoints...); n > 0 {
		log.WithFields(log.Fields{"user": userID, "removed": n}).Debug("cache invalidated")
	}
}

// publish pushes a realtime event when a hub is configured.
func (h *Handler) publish(userID, eventType string, entityID uint) {
	if h.hub != nil {
		h.hub.Publish(userID, eventType, entityID)
	}
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseDateFlexible accepts the date formats the frontend sends and returns
// the time in loc.
func parseDateFlexible(dateStr string, loc *time.Location) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	// Stored times must share loc's offset so day windows compare correctly.
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.In(loc), true
	}
	layouts := []string{
		"2006-01-02T15:04:05", // ISO without zone
		"2006-01-02 15:04:05",
		"2006-01-02", // ISO date
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, dateStr, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
