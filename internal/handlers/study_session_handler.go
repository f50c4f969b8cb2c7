package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"
	"study-habit-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 200
)

// CreateStudySessionRequest represents the request payload for logging study time
type CreateStudySessionRequest struct {
	SubjectID       uint    `json:"subject_id" binding:"required"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,gt=0"`
	Notes           *string `json:"notes"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
}

// UpdateStudySessionRequest represents the request payload for editing a session
type UpdateStudySessionRequest struct {
	SubjectID       *uint   `json:"subject_id"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,gt=0"`
	Notes           *string `json:"notes"`
}

// sessionDependents are the cached results derived from study sessions.
var sessionDependents = []string{
	cache.StudySessions,
	cache.DashboardSummary,
	cache.DashboardWeekly,
	cache.AnalyticsStudyStats,
	cache.GroupLeaderboard,
}

/*
GetStudySessions handles GET /api/study-sessions
Optional query params: subject_id to filter, limit (default 50, max 200).
Results are newest first.
*/
func (h *Handler) GetStudySessions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params := map[string]any{}
	var subjectID uint64
	if s := c.Query("subject_id"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject_id"})
			return
		}
		subjectID = v
		params["subject_id"] = v
	}
	limit := defaultSessionLimit
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(v, maxSessionLimit)
		params["limit"] = limit
	}

	key := cache.MakeKey(userID, cache.StudySessions, params)
	sessions, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SessionTTL, func(ctx context.Context) ([]models.StudySession, error) {
		query := h.db.WithContext(ctx).Where("user_id = ?", userID)
		if subjectID != 0 {
			query = query.Where("subject_id = ?", subjectID)
		}
		sessions := []models.StudySession{}
		err := query.Order("created_at desc").Limit(limit).Find(&sessions).Error
		return sessions, err
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch study sessions")
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// CreateStudySession handles POST /api/study-sessions
func (h *Handler) CreateStudySession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateStudySessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var subject models.Subject
	if err := h.db.Where("id = ? AND user_id = ?", req.SubjectID, userID).First(&subject).Error; err != nil {
		dbError(c, err, "Subject not found", "Failed to validate subject")
		return
	}

	session := models.StudySession{
		SubjectID:       &subject.ID,
		SubjectName:     subject.Name,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		UserID:          userID,
	}
	loc := h.now().Location()
	if t, ok := parseDateFlexible(req.StartTime, loc); ok {
		session.StartTime = &t
	}
	if t, ok := parseDateFlexible(req.EndTime, loc); ok {
		session.EndTime = &t
	}
	if session.StartTime != nil && session.EndTime != nil && session.EndTime.Before(*session.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must not be before start_time"})
		return
	}
	session.CreatedAt = h.now().Local()

	if err := h.db.Create(&session).Error; err != nil {
		dbError(c, err, "", "Failed to create study session")
		return
	}

	h.invalidate(userID, sessionDependents...)
	h.publish(userID, realtime.StudySessionCreated, session.ID)
	c.JSON(http.StatusCreated, session)
}

// UpdateStudySession handles PUT /api/study-sessions/:id
func (h *Handler) UpdateStudySession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateStudySessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var session models.StudySession
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&session).Error; err != nil {
		dbError(c, err, "Study session not found", "Failed to fetch study session")
		return
	}

	if req.SubjectID != nil {
		var subject models.Subject
		if err := h.db.Where("id = ? AND user_id = ?", *req.SubjectID, userID).First(&subject).Error; err != nil {
			dbError(c, err, "Subject not found", "Failed to validate subject")
			return
		}
		session.SubjectID = &subject.ID
		session.SubjectName = subject.Name
	}
	if req.DurationMinutes != nil {
		session.DurationMinutes = *req.DurationMinutes
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}

	if err := h.db.Save(&session).Error; err != nil {
		dbError(c, err, "Study session not found", "Failed to update study session")
		return
	}

	h.invalidate(userID, sessionDependents...)
	h.publish(userID, realtime.StudySessionUpdated, session.ID)
	c.JSON(http.StatusOK, session)
}

// DeleteStudySession handles DELETE /api/study-sessions/:id
func (h *Handler) DeleteStudySession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.StudySession{})
	if result.Error != nil {
		dbError(c, result.Error, "", "Failed to delete study session")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Study session not found"})
		return
	}

	h.invalidate(userID, sessionDependents...)
	h.publish(userID, realtime.StudySessionDeleted, id)
	c.JSON(http.StatusOK, gin.H{
		"message": "Study session deleted successfully",
		"id":      id,
	})
}

// sumStudyMinutes totals a user's study minutes in [from, to).
func (h *Handler) sumStudyMinutes(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var total int64
	err := h.db.WithContext(ctx).Model(&models.StudySession{}).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Scan(&total).Error
	return total, err
}
