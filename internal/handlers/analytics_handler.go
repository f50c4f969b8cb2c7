package handlers

import (
	"context"
	"net/http"
	"time"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"

	"github.com/gin-gonic/gin"
)

// analyticsDays maps a period name to the number of days it covers,
// ending today.
var analyticsDays = map[string]int{
	"week":  7,
	"month": 30,
}

// SubjectStat is study time aggregated for one subject.
type SubjectStat struct {
	SubjectID   *uint  `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Minutes     int64  `json:"minutes"`
	Sessions    int64  `json:"sessions"`
}

// StudyStats summarises study sessions over a period.
type StudyStats struct {
	Period         string        `json:"period"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	TotalMinutes   int64         `json:"total_minutes"`
	SessionCount   int64         `json:"session_count"`
	AverageMinutes float64       `json:"average_minutes"`
	BySubject      []SubjectStat `json:"by_subject"`
}

// HabitStat is one habit's completions against its prorated target.
type HabitStat struct {
	HabitID     uint    `json:"habit_id"`
	Name        string  `json:"name"`
	Completions int64   `json:"completions"`
	Expected    int     `json:"expected"`
	Rate        float64 `json:"rate"`
}

// HabitCompletion summarises habit completions over a period.
type HabitCompletion struct {
	Period      string      `json:"period"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Habits      []HabitStat `json:"habits"`
	OverallRate float64     `json:"overall_rate"`
}

// periodRange resolves the ?period= query, replying 400 on an unknown value.
func (h *Handler) periodRange(c *gin.Context) (string, time.Time, time.Time, bool) {
	period := c.DefaultQuery("period", "week")
	days, ok := analyticsDays[period]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be week or month"})
		return "", time.Time{}, time.Time{}, false
	}
	to := startOfDay(h.now()).AddDate(0, 0, 1)
	return period, to.AddDate(0, 0, -days), to, true
}

// GetStudyStats handles GET /api/analytics/study-stats?period=week|month
func (h *Handler) GetStudyStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	period, from, to, ok := h.periodRange(c)
	if !ok {
		return
	}

	key := cache.MakeKey(userID, cache.AnalyticsStudyStats, map[string]any{"period": period})
	stats, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SummaryTTL, func(ctx context.Context) (StudyStats, error) {
		stats := StudyStats{
			Period:    period,
			From:      from.Format(time.DateOnly),
			To:        to.AddDate(0, 0, -1).Format(time.DateOnly),
			BySubject: []SubjectStat{},
		}
		err := h.db.WithContext(ctx).Model(&models.StudySession{}).
			Select("subject_id, subject_name, COALESCE(SUM(duration_minutes), 0) AS minutes, COUNT(*) AS sessions").
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
			Group("subject_id, subject_name").
			Order("minutes desc").
			Scan(&stats.BySubject).Error
		if err != nil {
			return stats, err
		}
		for _, s := range stats.BySubject {
			stats.TotalMinutes += s.Minutes
			stats.SessionCount += s.Sessions
		}
		if stats.SessionCount > 0 {
			stats.AverageMinutes = float64(stats.TotalMinutes) / float64(stats.SessionCount)
		}
		return stats, nil
	})
	if err != nil {
		dbError(c, err, "", "Failed to compute study stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHabitCompletion handles GET /api/analytics/habit-completion?period=week|month
func (h *Handler) GetHabitCompletion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	period, from, to, ok := h.periodRange(c)
	if !ok {
		return
	}
	days := analyticsDays[period]

	key := cache.MakeKey(userID, cache.AnalyticsHabitCompletion, map[string]any{"period": period})
	report, err := cache.Fetch(c.Request.Context(), h.cache, key, cache.SummaryTTL, func(ctx context.Context) (HabitCompletion, error) {
		report := HabitCompletion{
			Period: period,
			From:   from.Format(time.DateOnly),
			To:     to.AddDate(0, 0, -1).Format(time.DateOnly),
			Habits: []HabitStat{},
		}

		var habits []models.Habit
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&habits).Error; err != nil {
			return report, err
		}
		counts, err := h.habitLogCounts(ctx, userID, from, to)
		if err != nil {
			return report, err
		}

		var rateSum float64
		for _, habit := range habits {
			expected := proratedTarget(habit.WeeklyTarget(), days)
			done := counts[habit.ID]
			rate := min(float64(done)/float64(expected), 1)
			report.Habits = append(report.Habits, HabitStat{
				HabitID:     habit.ID,
				Name:        habit.Name,
				Completions: done,
				Expected:    expected,
				Rate:        rate,
			})
			rateSum += rate
		}
		if len(habits) > 0 {
			report.OverallRate = rateSum / float64(len(habits))
		}
		return report, nil
	})
	if err != nil {
		dbError(c, err, "", "Failed to compute habit completion")
		return
	}
	c.JSON(http.StatusOK, report)
}

// proratedTarget scales a weekly target to a window of days, rounding up,
// never below one.
func proratedTarget(weekly, days int) int {
	expected := (weekly*days + 6) / 7
	return max(expected, 1)
}

// habitLogCounts returns completions per habit for a user's habits in [from, to).
func (h *Handler) habitLogCounts(ctx context.Context, userID string, from, to time.Time) (map[uint]int64, error) {
	type row struct {
		HabitID uint
		Count   int64
	}
	var rows []row
	err := h.db.WithContext(ctx).Model(&models.HabitLog{}).
		Select("habit_logs.habit_id AS habit_id, COUNT(*) AS count").
		Joins("JOIN habits ON habits.id = habit_logs.habit_id").
		Where("habits.user_id = ? AND habit_logs.completed_date >= ? AND habit_logs.completed_date < ?", userID, from, to).
		Group("habit_logs.habit_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.HabitID] = r.Count
	}
	return counts, nil
}
