package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"study-habit-api/internal/cache"
	"study-habit-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateGoal_Defaults(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser("u1", "Alice")

	w := env.do(http.MethodPost, "/api/goals", token, map[string]any{
		"goal_type":    models.GoalTypeStudyTime,
		"target_value": 120,
		"period":       "daily",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goal := decode[models.Goal](t, w)
	require.Equal(t, "minutes", goal.TargetUnit)
	require.True(t, goal.IsActive)
	require.Equal(t, "u1", goal.UserID)

	w = env.do(http.MethodPost, "/api/goals", token, map[string]any{
		"goal_type":    "habit_count",
		"target_value": 5,
		"period":       "weekly",
		"is_active":    false,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.False(t, decode[models.Goal](t, w).IsActive)

	goals := decode[[]models.Goal](t, env.do(http.MethodGet, "/api/goals", token, nil))
	require.Len(t, goals, 2)
}

func TestCreateGoal_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedUser("u1", "Alice")

	w := env.do(http.MethodPost, "/api/goals", token, map[string]any{"goal_type": "study_time", "target_value": 30, "period": "yearly"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/goals", token, map[string]any{"goal_type": "study_time", "target_value": -1, "period": "daily"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoals_UpdateDeleteAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser("u1", "Alice")
	bob := env.seedUser("u2", "Bob")

	w := env.do(http.MethodPost, "/api/goals", alice, map[string]any{"goal_type": "study_time", "target_value": 60, "period": "daily"})
	goal := decode[models.Goal](t, w)
	path := fmt.Sprintf("/api/goals/%d", goal.ID)

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/goals", alice, nil).Code)
	require.True(t, env.cached("u1", cache.Goals, nil))

	w = env.do(http.MethodPut, path, alice, map[string]any{"target_value": 90, "is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Goal](t, w)
	require.Equal(t, 90, updated.TargetValue)
	require.False(t, updated.IsActive)
	require.False(t, env.cached("u1", cache.Goals, nil))

	require.Equal(t, http.StatusNotFound, env.do(http.MethodPut, path, bob, map[string]any{"target_value": 1}).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, bob, nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, path, alice, nil).Code)
	require.Empty(t, decode[[]models.Goal](t, env.do(http.MethodGet, "/api/goals", alice, nil)))
}
