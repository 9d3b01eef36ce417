package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

// trendTopN caps how many movers a trend view reports.
const trendTopN = 5

// ErrUnknownMetric is returned when a trend is requested for a metric key
// that is not in the registry.
var ErrUnknownMetric = errors.New("unknown metric")

// TrendEntry is one clan's movement inside a trend window.
type TrendEntry struct {
	Clan  string  `json:"clan"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Delta float64 `json:"delta"`
	Rank  int     `json:"rank"`
}

// TrendView is the aggregated positive movement for one metric over a
// window. Observed counts every clan seen in the window before filtering:
// empty Entries with Observed > 0 means nothing moved up, while Observed == 0
// means the window holds no data at all.
type TrendView struct {
	Metric      string       `json:"metric"`
	Label       string       `json:"label"`
	WindowHours int          `json:"window_hours"`
	Entries     []TrendEntry `json:"entries"`
	Observed    int          `json:"observed"`
}

// TrendView computes the top positive movers for a metric over the window.
func (e *Engine) TrendView(ctx context.Context, metricKey string, window time.Duration) (*TrendView, error) {
	def, ok := e.registry.Get(metricKey)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownMetric, metricKey)
	}

	changes, err := e.store.WindowedChanges(ctx, metricKey, window)
	if err != nil {
		return nil, fmt.Errorf("windowed changes for %s: %w", metricKey, err)
	}

	return &TrendView{
		Metric:      def.Key,
		Label:       def.Label,
		WindowHours: int(window.Hours()),
		Entries:     topMovers(changes, trendTopN),
		Observed:    len(changes),
	}, nil
}

// topMovers sorts clans by delta descending (ties by name), truncates to
// limit, then drops non-positive movement. Truncation happens before the
// positivity filter.
func topMovers(changes map[string]store.MetricChange, limit int) []TrendEntry {
	entries := make([]TrendEntry, 0, len(changes))
	for clan, c := range changes {
		entries = append(entries, TrendEntry{
			Clan:  clan,
			Start: c.Start,
			End:   c.End,
			Delta: c.End - c.Start,
			Rank:  c.Rank,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Delta != entries[j].Delta {
			return entries[i].Delta > entries[j].Delta
		}
		return entries[i].Clan < entries[j].Clan
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	var out []TrendEntry
	for _, en := range entries {
		if en.Delta > 0 {
			out = append(out, en)
		}
	}
	return out
}
