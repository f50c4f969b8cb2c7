package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"
	"study-habit-api/internal/realtime"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateGroupRequest represents the request payload for creating a study group
type CreateGroupRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// UpdateGroupRequest represents the request payload for updating a study group
type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// LeaderboardEntry is one member's weekly standing.
type LeaderboardEntry struct {
	UserID              string  `json:"user_id"`
	Username            string  `json:"username"`
	TotalStudyMinutes   int64   `json:"total_study_minutes"`
	StudySessionsCount  int64   `json:"study_sessions_count"`
	HabitCompletionRate float64 `json:"habit_completion_rate"`
	TotalHabits         int     `json:"total_habits"`
	CompletedHabits     int     `json:"completed_habits"`
	Rank                int     `json:"rank"`
}

// Leaderboard ranks a group's members for the current week.
type Leaderboard struct {
	GroupID      uint               `json:"group_id"`
	GroupName    string             `json:"group_name"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	TotalMembers int                `json:"total_members"`
	WeekStart    string             `json:"week_start"`
	WeekEnd      string             `json:"week_end"`
}

// newInviteCode returns a random URL-safe code.
func newInviteCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateGroup handles POST /api/groups. The creator becomes the admin.
func (h *Handler) CreateGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := newInviteCode()
	if err != nil {
		dbError(c, err, "", "Failed to generate invite code")
		return
	}

	group := models.StudyGroup{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatedBy:   userID,
		InviteCode:  code,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMembership{
			GroupID: group.ID,
			UserID:  userID,
			Role:    models.RoleAdmin,
		}).Error
	})
	if err != nil {
		dbError(c, err, "", "Failed to create group")
		return
	}

	h.invalidate(userID, cache.Groups)
	c.JSON(http.StatusCreated, group)
}

// GetGroups handles GET /api/groups
func (h *Handler) GetGroups(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.Groups, nil)
	groups, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.ListTTL, func(ctx context.Context) ([]models.StudyGroup, error) {
		groups := []models.StudyGroup{}
		err := h.db.WithContext(ctx).
			Joins("JOIN group_memberships ON group_memberships.group_id = study_groups.id").
			Where("group_memberships.user_id = ?", userID).
			Order("study_groups.created_at asc").
			Find(&groups).Error
		return groups, err
	})
	if err != nil {
		dbError(c, err, "", "Failed to fetch groups")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetGroup handles GET /api/groups/:id
func (h *Handler) GetGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireMembership(c, id, userID, false); !ok {
		return
	}

	var group models.StudyGroup
	if err := h.db.First(&group, id).Error; err != nil {
		dbError(c, err, "Group not found", "Failed to fetch group")
		return
	}
	c.JSON(http.StatusOK, group)
}

// JoinGroup handles POST /api/groups/join/:invite_code
func (h *Handler) JoinGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var group models.StudyGroup
	if err := h.db.Where("invite_code = ?", c.Param("invite_code")).First(&group).Error; err != nil {
		dbError(c, err, "Invalid invite code", "Failed to fetch group")
		return
	}

	var existing int64
	if err := h.db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", group.ID, userID).
		Count(&existing).Error; err != nil {
		dbError(c, err, "", "Failed to check membership")
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already a member of this group"})
		return
	}

	err := h.db.Create(&models.GroupMembership{
		GroupID: group.ID,
		UserID:  userID,
		Role:    models.RoleMember,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already a member of this group"})
		return
	}
	if err != nil {
		dbError(c, err, "", "Failed to join group")
		return
	}

	h.invalidateGroup(group.ID, userID)
	h.publish(userID, realtime.GroupChanged, group.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Successfully joined group",
		"group_id":   group.ID,
		"group_name": group.Name,
	})
}

// GetLeaderboard handles GET /api/groups/:id/leaderboard
func (h *Handler) GetLeaderboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireMembership(c, id, userID, false); !ok {
		return
	}

	key := cache.MakeKey(userID, cache.GroupLeaderboard, map[string]any{"group_id": id})
	board, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SummaryTTL, func(ctx context.Context) (Leaderboard, error) {
		return h.buildLeaderboard(ctx, id)
	})
	if err != nil {
		dbError(c, err, "Group not found", "Failed to compute leaderboard")
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) buildLeaderboard(ctx context.Context, groupID uint) (Leaderboard, error) {
	db := h.db.WithContext(ctx)

	var group models.StudyGroup
	if err := db.First(&group, groupID).Error; err != nil {
		return Leaderboard{}, err
	}

	memberIDs, err := h.memberIDs(ctx, groupID)
	if err != nil {
		return Leaderboard{}, err
	}

	start := weekStart(h.now())
	end := start.AddDate(0, 0, 7)

	entries := make([]LeaderboardEntry, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		entry := LeaderboardEntry{UserID: memberID, Username: models.User{}.DisplayName()}

		var user models.User
		if err := db.Where("id = ?", memberID).First(&user).Error; err == nil {
			entry.Username = user.DisplayName()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Leaderboard{}, err
		}

		var study struct {
			Minutes  int64
			Sessions int64
		}
		err := db.Model(&models.StudySession{}).
			Select("COALESCE(SUM(duration_minutes), 0) AS minutes, COUNT(*) AS sessions").
			Where("user_id = ? AND created_at >= ? AND created_at < ?", memberID, start, end).
			Scan(&study).Error
		if err != nil {
			return Leaderboard{}, err
		}
		entry.TotalStudyMinutes = study.Minutes
		entry.StudySessionsCount = study.Sessions

		var habits []models.Habit
		if err := db.Where("user_id = ?", memberID).Find(&habits).Error; err != nil {
			return Leaderboard{}, err
		}
		counts, err := h.habitLogCounts(ctx, memberID, start, end)
		if err != nil {
			return Leaderboard{}, err
		}
		entry.TotalHabits = len(habits)
		for _, habit := range habits {
			if counts[habit.ID] >= int64(habit.WeeklyTarget()) {
				entry.CompletedHabits++
			}
		}
		if entry.TotalHabits > 0 {
			entry.HabitCompletionRate = float64(entry.CompletedHabits) / float64(entry.TotalHabits)
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalStudyMinutes > entries[j].TotalStudyMinutes
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return Leaderboard{
		GroupID:      group.ID,
		GroupName:    group.Name,
		Leaderboard:  entries,
		TotalMembers: len(memberIDs),
		WeekStart:    start.Format(time.DateOnly),
		WeekEnd:      end.AddDate(0, 0, -1).Format(time.DateOnly),
	}, nil
}

// LeaveGroup handles DELETE /api/groups/:id/leave. The only admin cannot leave.
func (h *Handler) LeaveGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	membership, ok := h.requireMembership(c, id, userID, false)
	if !ok {
		return
	}

	if membership.Role == models.RoleAdmin {
		var admins int64
		if err := h.db.Model(&models.GroupMembership{}).
			Where("group_id = ? AND role = ?", id, models.RoleAdmin).
			Count(&admins).Error; err != nil {
			dbError(c, err, "", "Failed to count admins")
			return
		}
		if admins == 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot leave group as the only admin. Transfer admin role first or delete the group.",
			})
			return
		}
	}

	if err := h.db.Delete(&membership).Error; err != nil {
		dbError(c, err, "", "Failed to leave group")
		return
	}

	h.invalidateGroup(id, userID)
	h.publish(userID, realtime.GroupChanged, id)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully left the group"})
}

// UpdateGroup handles PUT /api/groups/:id (admin only)
func (h *Handler) UpdateGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := h.requireMembership(c, id, userID, true); !ok {
		return
	}

	var group models.StudyGroup
	if err := h.db.First(&group, id).Error; err != nil {
		dbError(c, err, "Group not found", "Failed to fetch group")
		return
	}
	if req.Name != nil {
		group.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		group.Description = req.Description
	}
	if err := h.db.Save(&group).Error; err != nil {
		dbError(c, err, "Group not found", "Failed to update group")
		return
	}

	h.invalidateGroup(id, userID)
	c.JSON(http.StatusOK, group)
}

// DeleteGroup handles DELETE /api/groups/:id (admin only)
func (h *Handler) DeleteGroup(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireMembership(c, id, userID, true); !ok {
		return
	}

	// Collect members before the rows disappear so their caches can be dropped.
	members, err := h.memberIDs(c.Request.Context(), id)
	if err != nil {
		dbError(c, err, "", "Failed to fetch members")
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.StudyGroup{}, id).Error
	})
	if err != nil {
		dbError(c, err, "Group not found", "Failed to delete group")
		return
	}

	for _, m := range members {
		h.invalidate(m, cache.Groups, cache.GroupLeaderboard)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

// requireMembership loads the caller's membership, replying 403 when missing
// or, with adminOnly, when the caller is not an admin.
func (h *Handler) requireMembership(c *gin.Context, groupID uint, userID string, adminOnly bool) (models.GroupMembership, bool) {
	var m models.GroupMembership
	query := h.db.Where("group_id = ? AND user_id = ?", groupID, userID)
	if adminOnly {
		query = query.Where("role = ?", models.RoleAdmin)
	}
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			msg := "Not a member of this group"
			if adminOnly {
				msg = "Admin access required"
			}
			c.JSON(http.StatusForbidden, gin.H{"error": msg})
			return m, false
		}
		dbError(c, err, "", "Failed to check membership")
		return m, false
	}
	return m, true
}

func (h *Handler) memberIDs(ctx context.Context, groupID uint) ([]string, error) {
	var ids []string
	err := h.db.WithContext(ctx).Model(&models.GroupMembership{}).
		Where("group_id = ?", groupID).
		Order("joined_at asc").
		Pluck("user_id", &ids).Error
	return ids, err
}

// invalidateGroup drops the acting user's group list and every member's
// cached leaderboard for the group.
func (h *Handler) invalidateGroup(groupID uint, actingUser string) {
	h.invalidate(actingUser, cache.Groups, cache.GroupLeaderboard)

	members, err := h.memberIDs(context.Background(), groupID)
	if err != nil {
		log.WithError(err).WithField("group", groupID).Warn("list members for cache invalidation")
		return
	}
	for _, m := range members {
		h.cache.Delete(cache.MakeKey(m, cache.GroupLeaderboard, map[string]any{"group_id": groupID}))
		h.cache.Delete(cache.MakeKey(m, cache.Groups, nil))
	}
}
