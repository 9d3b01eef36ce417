package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/metrics"
	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

// spikeTopN restricts spike detection to the head of each board.
const spikeTopN = 5

// detectSpikes snapshots the top rows of one metric and alerts on per-cycle
// gains at or above the metric's threshold. A row whose sort stat is missing
// is skipped without a snapshot. The own clan is exempt from alerting but not
// from snapshotting.
func (e *Engine) detectSpikes(ctx context.Context, log *slog.Logger, def rusticated.MetricDef, rows []rusticated.ClanRow, now time.Time, cycleUnix int64) {
	if len(rows) > spikeTopN {
		rows = rows[:spikeTopN]
	}

	for _, row := range rows {
		value, ok := row.Stats[def.SortBy]
		if !ok {
			continue
		}

		snap := store.Snapshot{
			MetricKey: def.Key,
			ClanName:  row.Name,
			Rank:      row.Rank,
			Value:     value,
			TS:        now,
		}
		if err := e.store.AppendSnapshot(ctx, snap); err != nil {
			log.Error("append snapshot failed", "metric", def.Key, "clan", row.Name, "error", err)
		} else {
			metrics.SnapshotsInsertedTotal.Inc()
		}

		delta, seen := e.spikes.Observe(def.Key+"|"+row.Name, value)
		if !seen {
			continue
		}

		threshold, ok := e.thresholds[def.Key]
		if !ok || delta < threshold {
			continue
		}
		if strings.EqualFold(row.Name, e.ownClan) {
			continue
		}

		msg := fmt.Sprintf("🚨 SPIKE — %s gained +%s %s in the last poll%s",
			row.Name, formatStat(delta), def.Label, rankSuffix(row.Rank))
		if e.mention != "" {
			msg = e.mention + " " + msg
		}

		dedupKey := fmt.Sprintf("alert:%d:spike:%s:%s", cycleUnix, row.Name, def.Key)
		e.sendAlert(ctx, "spike", dedupKey, msg)
	}
}

// watchClanStats alerts on any stat increase for watched clans. The delta
// cache is keyed by group, so a board refetched under a different sort stat
// observes no movement.
func (e *Engine) watchClanStats(ctx context.Context, def rusticated.MetricDef, rows []rusticated.ClanRow, watch map[string]bool, now time.Time, cycleUnix int64) {
	for _, row := range rows {
		lowered := strings.ToLower(row.Name)
		if !watch[lowered] {
			continue
		}

		for stat, value := range row.Stats {
			delta, seen := e.clanWatch.Observe(def.Group+"|"+lowered+"|"+stat, value)
			if !seen || delta <= 0 {
				continue
			}

			msg := fmt.Sprintf("📊 CLAN WATCH — %s\n%s +%s\nTime: %s%s",
				row.Name, stat, formatStat(delta),
				now.UTC().Format("15:04:05 MST"), rankSuffix(row.Rank))

			dedupKey := fmt.Sprintf("alert:%d:clan:%s:%s", cycleUnix, lowered, stat)
			e.sendAlert(ctx, "clan_watch", dedupKey, msg)
		}
	}
}

// watchPlayerStats alerts on stat increases for watched players and for
// players carrying a clan label override.
func (e *Engine) watchPlayerStats(ctx context.Context, def rusticated.MetricDef, rows []rusticated.PlayerRow, watch map[string]bool, now time.Time, cycleUnix int64) {
	for _, row := range rows {
		_, overridden := e.overrides[row.SteamID]
		if !watch[row.SteamID] && !overridden {
			continue
		}

		username := row.Username
		if username == "" {
			username = "Unknown"
		}
		label := e.overrides[row.SteamID]
		if label == "" {
			label = row.ClanName
		}
		if label == "" {
			label = "Unknown"
		}

		for stat, value := range row.Stats {
			delta, seen := e.playerWatch.Observe(def.Group+"|"+row.SteamID+"|"+stat, value)
			if !seen || delta <= 0 {
				continue
			}

			msg := fmt.Sprintf("🎯 PLAYER WATCH — %s (%s)\n%s +%s\nTime: %s%s",
				username, label, stat, formatStat(delta),
				now.UTC().Format("15:04:05 MST"), rankSuffix(row.Rank))

			dedupKey := fmt.Sprintf("alert:%d:player:%s:%s", cycleUnix, row.SteamID, stat)
			e.sendAlert(ctx, "player_watch", dedupKey, msg)
		}
	}
}

// sendAlert delivers one alert through the sink unless the dedup layer has
// already seen its key. The key is recorded only after a successful send.
func (e *Engine) sendAlert(ctx context.Context, kind, dedupKey, msg string) {
	if e.dedup.AlreadySent(ctx, dedupKey) {
		metrics.AlertsDeduplicatedTotal.WithLabelValues(kind).Inc()
		return
	}

	if _, err := e.sink.SendMessage(e.chatID, msg); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(kind).Inc()
		e.logger.Error("send alert failed", "kind", kind, "error", err)
		return
	}
	metrics.AlertsSentTotal.WithLabelValues(kind).Inc()
	e.dedup.Record(ctx, dedupKey)
}

func rankSuffix(rank *int) string {
	if rank == nil {
		return ""
	}
	return fmt.Sprintf(" • Rank #%d", *rank)
}
