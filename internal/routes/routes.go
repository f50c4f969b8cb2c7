package routes

import (
	"study-habit-api/internal/handlers"
	"study-habit-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Options configures the router.
type Options struct {
	CORSOrigin string
}

// SetupRoutes registers public and protected routes on a new engine.
func SetupRoutes(h *handlers.Handler, auth gin.HandlerFunc, opts Options) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger())

	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	ginRouter.Use(middleware.CORS(origin))

	ginRouter.GET("/", handlers.Root)
	ginRouter.GET("/health", handlers.Health)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(auth)
	{
		protected.GET("/profile", h.GetProfile)
		protected.PUT("/profile", h.UpdateProfile)

		protected.GET("/subjects", h.GetSubjects)
		protected.POST("/subjects", h.CreateSubject)
		protected.PUT("/subjects/:id", h.UpdateSubject)
		protected.DELETE("/subjects/:id", h.DeleteSubject)

		protected.GET("/study-sessions", h.GetStudySessions)
		protected.POST("/study-sessions", h.CreateStudySession)
		protected.PUT("/study-sessions/:id", h.UpdateStudySession)
		protected.DELETE("/study-sessions/:id", h.DeleteStudySession)

		protected.GET("/habits", h.GetHabits)
		protected.POST("/habits", h.CreateHabit)
		protected.GET("/habits/:id", h.GetHabit)
		protected.PUT("/habits/:id", h.UpdateHabit)
		protected.DELETE("/habits/:id", h.DeleteHabit)
		protected.POST("/habits/:id/logs", h.CreateHabitLog)
		protected.GET("/habits/:id/logs", h.GetHabitLogs)
		protected.GET("/habit-logs", h.GetAllHabitLogs)
		protected.DELETE("/habit-logs/:id", h.DeleteHabitLog)

		protected.GET("/goals", h.GetGoals)
		protected.POST("/goals", h.CreateGoal)
		protected.PUT("/goals/:id", h.UpdateGoal)
		protected.DELETE("/goals/:id", h.DeleteGoal)

		protected.GET("/dashboard/summary", h.GetDashboardSummary)
		protected.GET("/dashboard/weekly", h.GetDashboardWeekly)

		protected.GET("/analytics/study-stats", h.GetStudyStats)
		protected.GET("/analytics/habit-completion", h.GetHabitCompletion)

		protected.POST("/groups", h.CreateGroup)
		protected.GET("/groups", h.GetGroups)
		protected.POST("/groups/join/:invite_code", h.JoinGroup)
		protected.GET("/groups/:id", h.GetGroup)
		protected.PUT("/groups/:id", h.UpdateGroup)
		protected.DELETE("/groups/:id", h.DeleteGroup)
		protected.GET("/groups/:id/leaderboard", h.GetLeaderboard)
		protected.DELETE("/groups/:id/leave", h.LeaveGroup)

		protected.GET("/cache/stats", h.CacheStats)
		protected.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
