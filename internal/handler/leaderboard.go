package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/monitor"
)

// Monitor is the engine surface the HTTP API reads.
type Monitor interface {
	LastView() *monitor.LeaderboardView
	TrendView(ctx context.Context, metricKey string, window time.Duration) (*monitor.TrendView, error)
	Status(ctx context.Context) (monitor.Status, error)
	SetTracking(enabled bool)
	TrackingEnabled() bool
}

// Leaderboard serves the most recent poll cycle's display boards.
func Leaderboard(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := m.LastView()
		if view == nil {
			http.Error(w, `{"error":"no data available yet"}`, http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}
