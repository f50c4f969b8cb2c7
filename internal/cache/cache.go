package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cache defines the response cache API shared by request handlers.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value and whether it was present and not expired.
	Get(key string) (any, bool)

	// Set stores the value for ttl. It reports false on an internal fault;
	// callers treat that exactly like a miss.
	Set(key string, value any, ttl time.Duration) bool

	// Delete removes a key and reports whether it was present.
	Delete(key string) bool

	// ClearForPrefix removes every key starting with prefix + ":".
	ClearForPrefix(prefix string) int
}

// Endpoint names used as the second key segment.
const (
	DashboardSummary         = "dashboard_summary"
	DashboardWeekly          = "dashboard_weekly"
	Subjects                 = "subjects"
	StudySessions            = "study_sessions"
	Habits                   = "habits"
	HabitLogs                = "habit_logs"
	Goals                    = "goals"
	Groups                   = "groups"
	GroupLeaderboard         = "group_leaderboard"
	AnalyticsStudyStats      = "analytics_study_stats"
	AnalyticsHabitCompletion = "analytics_habit_completion"
	Profile                  = "profile"
)

// TTLs for the different kinds of cached results.
const (
	SummaryTTL = 5 * time.Minute
	SessionTTL = 10 * time.Minute
	ListTTL    = 15 * time.Minute
)

const separator = ":"

// MakeKey builds "userID:endpoint", followed by ":k1=v1&k2=v2" when params is
// non-empty. Params are sorted by name so the key does not depend on map order.
func MakeKey(userID, endpoint string, params map[string]any) string {
	key := userID + separator + endpoint
	if len(params) == 0 {
		return key
	}

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return key + separator + strings.Join(pairs, "&")
}

// InvalidateEndpoints drops the plain key and every parameterised variant of
// each endpoint for one user.
func InvalidateEndpoints(c Cache, userID string, endpoints ...string) int {
	removed := 0
	for _, ep := range endpoints {
		base := MakeKey(userID, ep, nil)
		if c.Delete(base) {
			removed++
		}
		removed += c.ClearForPrefix(base)
	}
	return removed
}
