package handlers

import (
	"context"
	"net/http"
	"strings"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"
	"study-habit-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// CreateGoalRequest represents the request payload for creating a goal
type CreateGoalRequest struct {
	GoalType    string            `json:"goal_type" binding:"required"`
	TargetValue int               `json:"target_value" binding:"required,gt=0"`
	TargetUnit  string            `json:"target_unit"`
	Period      models.GoalPeriod `json:"period" binding:"required,oneof=daily weekly monthly"`
	Description *string           `json:"description"`
	IsActive    *bool             `json:"is_active"`
}

// UpdateGoalRequest represents the request payload for updating a goal
type UpdateGoalRequest struct {
	GoalType    *string            `json:"goal_type"`
	TargetValue *int               `json:"target_value" binding:"omitempty,gt=0"`
	TargetUnit  *string            `json:"target_unit"`
	Period      *models.GoalPeriod `json:"period" binding:"omitempty,oneof=daily weekly monthly"`
	Description *string            `json:"description"`
	IsActive    *bool              `json:"is_active"`
}

// Goals feed the dashboard's daily study target.
var goalDependents = []string{cache.Goals, cache.DashboardSummary}

// GetGoals handles GET /api/goals
func (h *Handler) GetGoals(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.Goals, nil)
	goals, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.ListTTL, func(ctx context.Context) ([]models.Goal, error) {
		goals := []models.Goal{}
		err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&goals).Error
		return goals, err
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch goals")
		return
	}
	c.JSON(http.StatusOK, goals)
}

// CreateGoal handles POST /api/goals
func (h *Handler) CreateGoal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit := strings.TrimSpace(req.TargetUnit)
	if unit == "" {
		unit = "minutes"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	goal := models.Goal{
		GoalType:    strings.TrimSpace(req.GoalType),
		TargetValue: req.TargetValue,
		TargetUnit:  unit,
		Period:      req.Period,
		Description: req.Description,
		IsActive:    active,
		UserID:      userID,
	}
	if err := h.db.Create(&goal).Error; err != nil {
		dbError(c, err, "", "Failed to create goal")
		return
	}

	h.invalidate(userID, goalDependents...)
	h.publish(userID, realtime.GoalChanged, goal.ID)
	c.JSON(http.StatusCreated, goal)
}

// UpdateGoal handles PUT /api/goals/:id
func (h *Handler) UpdateGoal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var goal models.Goal
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		dbError(c, err, "Goal not found", "Failed to fetch goal")
		return
	}
	if req.GoalType != nil {
		goal.GoalType = strings.TrimSpace(*req.GoalType)
	}
	if req.TargetValue != nil {
		goal.TargetValue = *req.TargetValue
	}
	if req.TargetUnit != nil {
		goal.TargetUnit = *req.TargetUnit
	}
	if req.Period != nil {
		goal.Period = *req.Period
	}
	if req.Description != nil {
		goal.Description = req.Description
	}
	if req.IsActive != nil {
		goal.IsActive = *req.IsActive
	}

	if err := h.db.Save(&goal).Error; err != nil {
		dbError(c, err, "Goal not found", "Failed to update goal")
		return
	}

	h.invalidate(userID, goalDependents...)
	h.publish(userID, realtime.GoalChanged, goal.ID)
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal handles DELETE /api/goals/:id
func (h *Handler) DeleteGoal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Goal{})
	if result.Error != nil {
		dbError(c, result.Error, "", "Failed to delete goal")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
		return
	}

	h.invalidate(userID, goalDependents...)
	h.publish(userID, realtime.GoalChanged, id)
	c.JSON(http.StatusOK, gin.H{
		"message": "Goal deleted successfully",
		"id":      id,
	})
}
