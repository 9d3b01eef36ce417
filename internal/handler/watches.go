package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

func ListWatchedClans(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clans, err := s.WatchClans(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to list watched clans"}`, http.StatusInternalServerError)
			return
		}
		if clans == nil {
			clans = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"clans": clans})
	}
}

func AddWatchedClan(s *store.Store) http.HandlerFunc {
	type request struct {
		Name string `json:"name"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
			return
		}

		if err := s.AddWatchClan(r.Context(), name); err != nil {
			http.Error(w, `{"error":"failed to add watched clan"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"name": strings.ToLower(name)})
	}
}

// RemoveWatchedClan is idempotent: removing an absent clan still returns 204.
func RemoveWatchedClan(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(chi.URLParam(r, "name"))
		if name == "" {
			http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
			return
		}

		if err := s.RemoveWatchClan(r.Context(), name); err != nil {
			http.Error(w, `{"error":"failed to remove watched clan"}`, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListWatchedPlayers(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.WatchPlayers(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to list watched players"}`, http.StatusInternalServerError)
			return
		}
		if players == nil {
			players = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"players": players})
	}
}

func AddWatchedPlayer(s *store.Store) http.HandlerFunc {
	type request struct {
		SteamID string `json:"steam_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		steamID := strings.TrimSpace(req.SteamID)
		if !rusticated.ValidSteamID(steamID) {
			http.Error(w, `{"error":"steam_id must be a 17-digit SteamID64"}`, http.StatusBadRequest)
			return
		}

		if err := s.AddWatchPlayer(r.Context(), steamID); err != nil {
			http.Error(w, `{"error":"failed to add watched player"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"steam_id": steamID})
	}
}

// RemoveWatchedPlayer is idempotent like RemoveWatchedClan.
func RemoveWatchedPlayer(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		steamID := strings.TrimSpace(chi.URLParam(r, "steamID"))
		if !rusticated.ValidSteamID(steamID) {
			http.Error(w, `{"error":"steam_id must be a 17-digit SteamID64"}`, http.StatusBadRequest)
			return
		}

		if err := s.RemoveWatchPlayer(r.Context(), steamID); err != nil {
			http.Error(w, `{"error":"failed to remove watched player"}`, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
