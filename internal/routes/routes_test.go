package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"study-habit-api/internal/auth"
	"study-habit-api/internal/cache"
	"study-habit-api/internal/handlers"
	"study-habit-api/internal/middleware"
	"study-habit-api/internal/realtime"
	"study-habit-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", "study-habit-api", "authenticated", time.Hour)
	h := handlers.New(db, cache.NewStore(), realtime.NewHub(), tokens)
	return SetupRoutes(h, middleware.JWTAuthMiddleware(tokens), Options{}), tokens
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRoot(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), handlers.Version)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, tokens := newRouter(t)

	for _, path := range []string{"/api/subjects", "/api/dashboard/summary", "/api/groups", "/api/cache/stats"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	token, err := tokens.GenerateToken("u1", "u1@example.com")
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/subjects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
