package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"study-habit-api/internal/auth"
	"study-habit-api/internal/cache"
	"study-habit-api/internal/middleware"
	"study-habit-api/internal/models"
	"study-habit-api/internal/realtime"
	"study-habit-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// pinnedNow is a Wednesday, so the current week started two days earlier.
var pinnedNow = time.Date(2026, time.March, 11, 10, 30, 0, 0, time.Local)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	store  *cache.Store
	hub    *realtime.Hub
	tokens *auth.TokenManager
	h      *Handler
	r      *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	env := &testEnv{
		t:      t,
		db:     db,
		store:  cache.NewStore(),
		hub:    realtime.NewHub(),
		tokens: auth.NewTokenManager("test-secret", "study-habit-api", "authenticated", time.Hour),
	}
	env.h = New(db, env.store, env.hub, env.tokens)
	env.h.now = func() time.Time { return pinnedNow }

	r := gin.New()
	r.POST("/api/register", env.h.Register)
	r.POST("/api/login", env.h.Login)

	p := r.Group("/api")
	p.Use(middleware.JWTAuthMiddleware(env.tokens))
	p.GET("/profile", env.h.GetProfile)
	p.PUT("/profile", env.h.UpdateProfile)
	p.GET("/subjects", env.h.GetSubjects)
	p.POST("/subjects", env.h.CreateSubject)
	p.PUT("/subjects/:id", env.h.UpdateSubject)
	p.DELETE("/subjects/:id", env.h.DeleteSubject)
	p.GET("/study-sessions", env.h.GetStudySessions)
	p.POST("/study-sessions", env.h.CreateStudySession)
	p.PUT("/study-sessions/:id", env.h.UpdateStudySession)
	p.DELETE("/study-sessions/:id", env.h.DeleteStudySession)
	p.GET("/habits", env.h.GetHabits)
	p.POST("/habits", env.h.CreateHabit)
	p.GET("/habits/:id", env.h.GetHabit)
	p.PUT("/habits/:id", env.h.UpdateHabit)
	p.DELETE("/habits/:id", env.h.DeleteHabit)
	p.POST("/habits/:id/logs", env.h.CreateHabitLog)
	p.GET("/habits/:id/logs", env.h.GetHabitLogs)
	p.GET("/habit-logs", env.h.GetAllHabitLogs)
	p.DELETE("/habit-logs/:id", env.h.DeleteHabitLog)
	p.GET("/goals", env.h.GetGoals)
	p.POST("/goals", env.h.CreateGoal)
	p.PUT("/goals/:id", env.h.UpdateGoal)
	p.DELETE("/goals/:id", env.h.DeleteGoal)
	p.GET("/dashboard/summary", env.h.GetDashboardSummary)
	p.GET("/dashboard/weekly", env.h.GetDashboardWeekly)
	p.GET("/analytics/study-stats", env.h.GetStudyStats)
	p.GET("/analytics/habit-completion", env.h.GetHabitCompletion)
	p.POST("/groups", env.h.CreateGroup)
	p.GET("/groups", env.h.GetGroups)
	p.POST("/groups/join/:invite_code", env.h.JoinGroup)
	p.GET("/groups/:id", env.h.GetGroup)
	p.PUT("/groups/:id", env.h.UpdateGroup)
	p.DELETE("/groups/:id", env.h.DeleteGroup)
	p.GET("/groups/:id/leaderboard", env.h.GetLeaderboard)
	p.DELETE("/groups/:id/leave", env.h.LeaveGroup)
	p.GET("/cache/stats", env.h.CacheStats)
	p.GET("/ws", env.h.WebSocket)
	env.r = r

	return env
}

// seedUser stores a user row and returns a bearer token for it.
func (e *testEnv) seedUser(id, name string) string {
	e.t.Helper()
	user := models.User{ID: id, Email: id + "@example.com", PasswordHash: "x", FullName: name}
	require.NoError(e.t, e.db.Create(&user).Error)
	token, err := e.tokens.GenerateToken(user.ID, user.Email)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, token string, payload any) *httptest.ResponseRecorder {
	e.t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) cached(userID, endpoint string, params map[string]any) bool {
	_, ok := e.store.Get(cache.MakeKey(userID, endpoint, params))
	return ok
}
