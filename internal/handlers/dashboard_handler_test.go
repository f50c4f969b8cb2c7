package handlers

import (
	"net/http"
	"testing"
	"time"

	"study-habit-api/internal/cache"

	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser("u1", "Alice")
	subject := createSubject(t, env, token, "Math")
	habit := createHabit(t, env, token, map[string]any{"name": "Read"})
	createHabit(t, env, token, map[string]any{"name": "Run"})

	summary := decode[DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", token, nil))
	require.Equal(t, DashboardSummary{StudyToday: 0, StudyGoal: DefaultStudyGoal, HabitDone: 0, HabitTotal: 2}, summary)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/study-sessions", token,
		map[string]any{"subject_id": subject.ID, "duration_minutes": 30}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/study-sessions", token,
		map[string]any{"subject_id": subject.ID, "duration_minutes": 45}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/habits/"+itoa(habit.ID)+"/logs", token, map[string]any{}).Code)
	// Yesterday's completion does not count toward today.
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/habits/"+itoa(habit.ID)+"/logs", token,
		map[string]any{"completed_date": "2026-03-10"}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/goals", token,
		map[string]any{"goal_type": "study_time", "target_value": 120, "period": "daily"}).Code)

	summary = decode[DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", token, nil))
	require.Equal(t, DashboardSummary{StudyToday: 75, StudyGoal: 120, HabitDone: 1, HabitTotal: 2}, summary)
}

func TestDashboardSummary_ServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser("u1", "Alice")

	key := cache.MakeKey("u1", cache.DashboardSummary, nil)
	env.store.Set(key, DashboardSummary{StudyToday: 30, StudyGoal: DefaultStudyGoal}, 300*time.Second)

	summary := decode[DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", token, nil))
	require.Equal(t, int64(30), summary.StudyToday)

	require.True(t, env.store.Delete(key))
	summary = decode[DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", token, nil))
	require.Zero(t, summary.StudyToday)
}

func TestDashboardWeekly(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser("u1", "Alice")
	subject := createSubject(t, env, token, "Math")
	habit := createHabit(t, env, token, map[string]any{"name": "Read"})

	env.h.now = func() time.Time { return pinnedNow.AddDate(0, 0, -2) }
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/study-sessions", token,
		map[string]any{"subject_id": subject.ID, "duration_minutes": 20}).Code)
	env.h.now = func() time.Time { return pinnedNow }
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/study-sessions", token,
		map[string]any{"subject_id": subject.ID, "duration_minutes": 50}).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/habits/"+itoa(habit.ID)+"/logs", token, map[string]any{}).Code)

	chart := decode[WeeklyChart](t, env.do(http.MethodGet, "/api/dashboard/weekly", token, nil))
	require.Equal(t, []string{"Thu", "Fri", "Sat", "Sun", "Mon", "Tue", "Wed"}, chart.Labels)
	require.Equal(t, []int64{0, 0, 0, 0, 20, 0, 50}, chart.StudyData)
	require.Equal(t, []int64{0, 0, 0, 0, 0, 0, 1}, chart.HabitData)
}

func TestWeekStart(t *testing.T) {
	require.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local), weekStart(pinnedNow))
	sunday := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local), weekStart(sunday))
}

func TestDashboardSummary_ClientOffsetCountsOnLocalDay(t *testing.T) {
	env := newTestEnv(t)
	late := time.Date(2026, time.March, 11, 22, 0, 0, 0, time.Local)
	env.h.now = func() time.Time { return late }
	token := env.seedUser("u1", "Alice")
	habit := createHabit(t, env, token, map[string]any{"name": "Read"})

	// 22:30 local, written in a zone five hours ahead, where it is already the next day.
	_, offset := late.Zone()
	ahead := time.FixedZone("ahead", offset+5*60*60)
	completed := late.Add(30 * time.Minute).In(ahead).Format(time.RFC3339)

	w := env.do(http.MethodPost, "/api/habits/"+itoa(habit.ID)+"/logs", token, map[string]any{"completed_date": completed})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	summary := decode[DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", token, nil))
	require.Equal(t, int64(1), summary.HabitDone)

	chart := decode[WeeklyChart](t, env.do(http.MethodGet, "/api/dashboard/weekly", token, nil))
	require.Equal(t, int64(1), chart.HabitData[6])
}
