package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DefaultStudyGoal is the daily target in minutes when the user has no
// active daily study_time goal.
const DefaultStudyGoal = 180

// DashboardSummary is today's progress for one user.
type DashboardSummary struct {
	StudyToday int64 `json:"study_today"`
	StudyGoal  int   `json:"study_goal"`
	HabitDone  int64 `json:"habit_done"`
	HabitTotal int64 `json:"habit_total"`
}

// WeeklyChart holds seven days of study minutes and habit completions, oldest
// day first.
type WeeklyChart struct {
	Labels    []string `json:"labels"`
	StudyData []int64  `json:"study_data"`
	HabitData []int64  `json:"habit_data"`
}

// GetDashboardSummary handles GET /api/dashboard/summary
func (h *Handler) GetDashboardSummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.DashboardSummary, nil)
	summary, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SummaryTTL, func(ctx context.Context) (DashboardSummary, error) {
		return h.buildSummary(ctx, userID)
	})
	if err != nil {
		dbError(c, err, "", "Failed to compute dashboard summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) buildSummary(ctx context.Context, userID string) (DashboardSummary, error) {
	var s DashboardSummary
	from := startOfDay(h.now())
	to := from.AddDate(0, 0, 1)

	var err error
	if s.StudyToday, err = h.sumStudyMinutes(ctx, userID, from, to); err != nil {
		return s, err
	}
	if s.HabitDone, err = h.countHabitLogs(ctx, userID, from, to); err != nil {
		return s, err
	}
	if err = h.db.WithContext(ctx).Model(&models.Habit{}).Where("user_id = ?", userID).Count(&s.HabitTotal).Error; err != nil {
		return s, err
	}
	if s.StudyGoal, err = h.dailyStudyGoal(ctx, userID); err != nil {
		return s, err
	}
	return s, nil
}

// dailyStudyGoal returns the newest active daily study_time goal, or the default.
func (h *Handler) dailyStudyGoal(ctx context.Context, userID string) (int, error) {
	var goal models.Goal
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND goal_type = ? AND period = ? AND is_active = ?", userID, models.GoalTypeStudyTime, models.PeriodDaily, true).
		Order("created_at desc").
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultStudyGoal, nil
	}
	if err != nil {
		return 0, err
	}
	return goal.TargetValue, nil
}

// GetDashboardWeekly handles GET /api/dashboard/weekly
func (h *Handler) GetDashboardWeekly(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.DashboardWeekly, nil)
	chart, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SummaryTTL, func(ctx context.Context) (WeeklyChart, error) {
		return h.buildWeekly(ctx, userID)
	})
	if err != nil {
		dbError(c, err, "", "Failed to compute weekly data")
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (h *Handler) buildWeekly(ctx context.Context, userID string) (WeeklyChart, error) {
	chart := WeeklyChart{
		Labels:    make([]string, 0, 7),
		StudyData: make([]int64, 0, 7),
		HabitData: make([]int64, 0, 7),
	}
	today := startOfDay(h.now())
	for i := 6; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)

		minutes, err := h.sumStudyMinutes(ctx, userID, from, to)
		if err != nil {
			return chart, err
		}
		habits, err := h.countHabitLogs(ctx, userID, from, to)
		if err != nil {
			return chart, err
		}
		chart.Labels = append(chart.Labels, from.Format("Mon"))
		chart.StudyData = append(chart.StudyData, minutes)
		chart.HabitData = append(chart.HabitData, habits)
	}
	return chart, nil
}

// weekStart returns Monday 00:00 of the week containing t.
func weekStart(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
