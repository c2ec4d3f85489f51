package handler

import (
	"net/http"
	"time"

	"github.com/rajvir-app/mining-server/internal/httputil"
	"github.com/rajvir-app/mining-server/internal/mining"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// stateResponse is the user API's view of one account: accrual state,
// profile, and the computed display counter.
func stateResponse(session *mining.Session) map[string]any {
	snap := session.Snapshot()
	name, avatar, language := session.Profile()

	return map[string]any{
		"totalPoints":          snap.TotalPoints,
		"miningActive":         snap.Active,
		"miningSecondsToday":   snap.SecondsToday,
		"pointsAwardedToday":   snap.PointsToday,
		"lastResetDate":        snap.LastReset,
		"miningStartTimestamp": formatTime(snap.StartedAt),
		"daysActive":           snap.DaysActive,
		"firstUseDate":         snap.FirstUseDate,
		"displaySeconds":       session.DisplaySeconds(),
		"profile": map[string]any{
			"name":   name,
			"avatar": avatar,
		},
		"language": language,
	}
}
