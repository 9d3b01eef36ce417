package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/monitor"
)

const defaultTrendHours = 12

// Trends serves a windowed top-movers view for one metric. The metric
// defaults to the first configured display metric and the window to 12 hours.
func Trends(m Monitor, defaultMetric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metric := r.URL.Query().Get("metric")
		if metric == "" {
			metric = defaultMetric
		}

		hours := defaultTrendHours
		if v := r.URL.Query().Get("hours"); v != "" {
			h, err := strconv.Atoi(v)
			if err != nil || h <= 0 || h > 720 {
				http.Error(w, `{"error":"hours must be between 1 and 720"}`, http.StatusBadRequest)
				return
			}
			hours = h
		}

		view, err := m.TrendView(r.Context(), metric, time.Duration(hours)*time.Hour)
		if errors.Is(err, monitor.ErrUnknownMetric) {
			http.Error(w, `{"error":"unknown metric"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"failed to compute trend"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}
