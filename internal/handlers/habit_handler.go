package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"
	"study-habit-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateHabitRequest represents the request payload for creating a habit
type CreateHabitRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     *string `json:"description"`
	TargetFrequency *int    `json:"target_frequency" binding:"omitempty,gte=1,lte=7"`
	Color           string  `json:"color"`
}

// UpdateHabitRequest represents the request payload for updating a habit
type UpdateHabitRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	TargetFrequency *int    `json:"target_frequency" binding:"omitempty,gte=1,lte=7"`
	Color           *string `json:"color"`
}

// CreateHabitLogRequest marks a habit as done on a date (default: now)
type CreateHabitLogRequest struct {
	CompletedDate string  `json:"completed_date"`
	Notes         *string `json:"notes"`
}

// habitDependents are the cached results derived from habits and their logs.
var habitDependents = []string{
	cache.Habits,
	cache.HabitLogs,
	cache.DashboardSummary,
	cache.DashboardWeekly,
	cache.AnalyticsHabitCompletion,
	cache.GroupLeaderboard,
}

// GetHabits handles GET /api/habits
func (h *Handler) GetHabits(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.Habits, nil)
	habits, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.ListTTL, func(ctx context.Context) ([]models.Habit, error) {
		habits := []models.Habit{}
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&habits).Error; err != nil {
			return nil, err
		}
		for i := range habits {
			habits[i].ApplyDefaults()
		}
		return habits, nil
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch habits")
		return
	}

	c.JSON(http.StatusOK, habits)
}

// CreateHabit handles POST /api/habits
func (h *Handler) CreateHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit := models.Habit{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		TargetFrequency: req.TargetFrequency,
		Color:           req.Color,
		UserID:          userID,
	}
	habit.ApplyDefaults()
	if err := h.db.Create(&habit).Error; err != nil {
		dbError(c, err, "", "Failed to create habit")
		return
	}

	h.invalidate(userID, habitDependents...)
	c.JSON(http.StatusCreated, habit)
}

// GetHabit handles GET /api/habits/:id
func (h *Handler) GetHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(c, userID)
	if !ok {
		return
	}
	habit.ApplyDefaults()
	c.JSON(http.StatusOK, habit)
}

// UpdateHabit handles PUT /api/habits/:id
func (h *Handler) UpdateHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, ok := h.ownedHabit(c, userID)
	if !ok {
		return
	}
	if req.Name != nil {
		habit.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		habit.Description = req.Description
	}
	if req.TargetFrequency != nil {
		habit.TargetFrequency = req.TargetFrequency
	}
	if req.Color != nil {
		habit.Color = *req.Color
	}
	habit.ApplyDefaults()

	if err := h.db.Save(&habit).Error; err != nil {
		dbError(c, err, "Cannot find the habit", "Failed to update habit")
		return
	}

	h.invalidate(userID, habitDependents...)
	c.JSON(http.StatusOK, habit)
}

// DeleteHabit handles DELETE /api/habits/:id and removes its logs.
func (h *Handler) DeleteHabit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(c, userID)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.HabitLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&habit).Error
	})
	if err != nil {
		dbError(c, err, "Cannot find the habit", "Failed to delete habit")
		return
	}

	h.invalidate(userID, habitDependents...)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("'%s' habit has been deleted.", habit.Name),
		"id":      habit.ID,
	})
}

// CreateHabitLog handles POST /api/habits/:id/logs
func (h *Handler) CreateHabitLog(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateHabitLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, ok := h.ownedHabit(c, userID)
	if !ok {
		return
	}

	completed := h.now().Local()
	if req.CompletedDate != "" {
		t, ok := parseDateFlexible(req.CompletedDate, completed.Location())
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid completed_date"})
			return
		}
		completed = t
	}

	entry := models.HabitLog{
		HabitID:       habit.ID,
		CompletedDate: completed,
		Notes:         req.Notes,
	}
	if err := h.db.Create(&entry).Error; err != nil {
		dbError(c, err, "", "Failed to create habit log")
		return
	}

	h.invalidate(userID, habitDependents...)
	h.publish(userID, realtime.HabitLogged, entry.ID)
	c.JSON(http.StatusCreated, entry)
}

// GetHabitLogs handles GET /api/habits/:id/logs
func (h *Handler) GetHabitLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(c, userID)
	if !ok {
		return
	}

	logs := []models.HabitLog{}
	if err := h.db.Where("habit_id = ?", habit.ID).Order("completed_date desc").Find(&logs).Error; err != nil {
		dbError(c, err, "", "Failed to fetch habit logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetAllHabitLogs handles GET /api/habit-logs
func (h *Handler) GetAllHabitLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.HabitLogs, nil)
	logs, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SessionTTL, func(ctx context.Context) ([]models.HabitLog, error) {
		logs := []models.HabitLog{}
		err := h.db.WithContext(ctx).
			Joins("JOIN habits ON habits.id = habit_logs.habit_id").
			Where("habits.user_id = ?", userID).
			Order("habit_logs.completed_date desc").
			Find(&logs).Error
		return logs, err
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch habit logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// DeleteHabitLog handles DELETE /api/habit-logs/:id
func (h *Handler) DeleteHabitLog(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var entry models.HabitLog
	err := h.db.Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habit_logs.id = ? AND habits.user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		dbError(c, err, "Cannot find the habit log", "Failed to fetch habit log")
		return
	}
	if err := h.db.Delete(&entry).Error; err != nil {
		dbError(c, err, "Cannot find the habit log", "Failed to delete habit log")
		return
	}

	h.invalidate(userID, habitDependents...)
	h.publish(userID, realtime.HabitLogDeleted, entry.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Habit log %d has been deleted.", id),
		"id":      id,
	})
}

// ownedHabit loads the :id habit if it belongs to userID, replying on failure.
func (h *Handler) ownedHabit(c *gin.Context, userID string) (models.Habit, bool) {
	var habit models.Habit
	id, ok := pathID(c, "id")
	if !ok {
		return habit, false
	}
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&habit).Error; err != nil {
		dbError(c, err, "Cannot find the habit", "Failed to fetch habit")
		return habit, false
	}
	return habit, true
}

// countHabitLogs counts completions of the user's habits in [from, to).
func (h *Handler) countHabitLogs(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).Model(&models.HabitLog{}).
		Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habits.user_id = ? AND habit_logs.completed_date >= ? AND habit_logs.completed_date < ?", userID, from, to).
		Count(&count).Error
	return count, err
}
