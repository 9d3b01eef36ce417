package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
)

// Status reports the tracking switch, watch counts, and poll progress.
func Status(m Monitor, registry *rusticated.Registry) http.HandlerFunc {
	type response struct {
		Tracking       bool       `json:"tracking"`
		WatchedClans   int        `json:"watched_clans"`
		WatchedPlayers int        `json:"watched_players"`
		LastCycle      *time.Time `json:"last_cycle,omitempty"`
		Metrics        int        `json:"metrics"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		st, err := m.Status(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to read status"}`, http.StatusInternalServerError)
			return
		}

		resp := response{
			Tracking:       st.Tracking,
			WatchedClans:   len(st.Clans),
			WatchedPlayers: len(st.Players),
			Metrics:        registry.Len(),
		}
		if !st.LastCycle.IsZero() {
			t := st.LastCycle
			resp.LastCycle = &t
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// SetTracking flips the engine's tracking switch.
func SetTracking(m Monitor) http.HandlerFunc {
	type request struct {
		Enabled *bool `json:"enabled"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if req.Enabled == nil {
			http.Error(w, `{"error":"enabled required"}`, http.StatusBadRequest)
			return
		}

		m.SetTracking(*req.Enabled)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"enabled": m.TrackingEnabled()})
	}
}
