package handlers

import (
	"context"
	"net/http"
	"strings"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateSubjectRequest represents the request payload for creating a subject
type CreateSubjectRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color" binding:"required"`
}

// UpdateSubjectRequest represents the request payload for updating a subject
type UpdateSubjectRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// subjectDependents are the cached results that embed subject data.
var subjectDependents = []string{cache.Subjects, cache.StudySessions, cache.AnalyticsStudyStats}

// GetSubjects handles GET /api/subjects
func (h *Handler) GetSubjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.Subjects, nil)
	subjects, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.ListTTL, func(ctx context.Context) ([]models.Subject, error) {
		subjects := []models.Subject{}
		err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("name asc").Find(&subjects).Error
		return subjects, err
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch subjects")
		return
	}

	c.JSON(http.StatusOK, subjects)
}

// CreateSubject handles POST /api/subjects
func (h *Handler) CreateSubject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject := models.Subject{
		Name:   strings.TrimSpace(req.Name),
		Color:  req.Color,
		UserID: userID,
	}
	if err := h.db.Create(&subject).Error; err != nil {
		dbError(c, err, "", "Failed to create subject")
		return
	}

	h.invalidate(userID, cache.Subjects)
	c.JSON(http.StatusCreated, subject)
}

// UpdateSubject handles PUT /api/subjects/:id. Renames are copied onto the
// user's sessions so session lists stay consistent.
func (h *Handler) UpdateSubject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var subject models.Subject
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&subject).Error; err != nil {
			return err
		}
		if req.Name != nil {
			subject.Name = strings.TrimSpace(*req.Name)
		}
		if req.Color != nil {
			subject.Color = *req.Color
		}
		if err := tx.Save(&subject).Error; err != nil {
			return err
		}
		return tx.Model(&models.StudySession{}).
			Where("subject_id = ? AND user_id = ?", subject.ID, userID).
			Update("subject_name", subject.Name).Error
	})
	if err != nil {
		dbError(c, err, "Subject not found", "Failed to update subject")
		return
	}

	h.invalidate(userID, subjectDependents...)
	c.JSON(http.StatusOK, subject)
}

// DeleteSubject handles DELETE /api/subjects/:id. Sessions keep their
// subject name but lose the link.
func (h *Handler) DeleteSubject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var subject models.Subject
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&subject).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.StudySession{}).
			Where("subject_id = ? AND user_id = ?", id, userID).
			Update("subject_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&subject).Error
	})
	if err != nil {
		dbError(c, err, "Subject not found", "Failed to delete subject")
		return
	}

	h.invalidate(userID, subjectDependents...)
	c.JSON(http.StatusOK, gin.H{
		"message": "Subject deleted successfully",
		"id":      id,
	})
}
