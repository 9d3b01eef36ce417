package monitor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
)

func killsRow(name string, rank int, kills float64) rusticated.ClanRow {
	return rusticated.ClanRow{
		Name:  name,
		Rank:  iptr(rank),
		Stats: map[string]float64{"kill_player": kills},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func spikeDef(t *testing.T, e *Engine, key string) rusticated.MetricDef {
	t.Helper()
	def, ok := e.registry.Get(key)
	if !ok {
		t.Fatalf("metric %s not registered", key)
	}
	return def
}

func TestDetectSpikesThresholdFlow(t *testing.T) {
	sink := &mockSink{}
	st := &mockStore{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: st,
		Thresholds: map[string]float64{"pvp_kills": 100},
	})
	def := spikeDef(t, e, "pvp_kills")

	ctx := context.Background()
	log := discardLogger()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// First observation seeds the cache without alerting.
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 50)}, base, base.Unix())
	if len(sink.sent) != 0 {
		t.Fatalf("first observation should not alert, got %v", sink.texts())
	}

	// +150 crosses the 100 threshold.
	t1 := base.Add(3 * time.Minute)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 200)}, t1, t1.Unix())
	alerts := sink.containing("SPIKE")
	if len(alerts) != 1 {
		t.Fatalf("want 1 spike alert, got %d: %v", len(alerts), sink.texts())
	}
	if !strings.Contains(alerts[0], "Enemy gained +150 PvP Kills") {
		t.Errorf("unexpected alert text:\n%s", alerts[0])
	}
	if !strings.Contains(alerts[0], "Rank #1") {
		t.Errorf("alert missing rank suffix:\n%s", alerts[0])
	}

	// A decrease still overwrites the cache but never alerts.
	t2 := base.Add(6 * time.Minute)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 190)}, t2, t2.Unix())

	// +5 from the overwritten baseline stays under the threshold.
	t3 := base.Add(9 * time.Minute)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 195)}, t3, t3.Unix())

	if got := len(sink.containing("SPIKE")); got != 1 {
		t.Errorf("want 1 spike alert total, got %d", got)
	}

	// Every cycle snapshots the row regardless of alerting.
	if st.snapshotCount() != 4 {
		t.Fatalf("want 4 snapshots, got %d", st.snapshotCount())
	}
	wantValues := []float64{50, 200, 190, 195}
	for i, snap := range st.snapshots {
		if snap.Value != wantValues[i] {
			t.Errorf("snapshot[%d].Value = %v, want %v", i, snap.Value, wantValues[i])
		}
		if snap.MetricKey != "pvp_kills" || snap.ClanName != "Enemy" {
			t.Errorf("snapshot[%d] identity = %s/%s", i, snap.MetricKey, snap.ClanName)
		}
	}
}

func TestDetectSpikesMentionPrefix(t *testing.T) {
	sink := &mockSink{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: &mockStore{},
		Thresholds:   map[string]float64{"pvp_kills": 100},
		AlertMention: "@walo",
	})
	def := spikeDef(t, e, "pvp_kills")

	ctx := context.Background()
	log := discardLogger()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 0)}, base, base.Unix())
	t1 := base.Add(3 * time.Minute)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 500)}, t1, t1.Unix())

	alerts := sink.containing("SPIKE")
	if len(alerts) != 1 {
		t.Fatalf("want 1 alert, got %d", len(alerts))
	}
	if !strings.HasPrefix(alerts[0], "@walo 🚨") {
		t.Errorf("mention should prefix the alert: %q", alerts[0])
	}
}

func TestDetectSpikesOwnClanExempt(t *testing.T) {
	sink := &mockSink{}
	st := &mockStore{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: st,
		Thresholds: map[string]float64{"pvp_kills": 100},
		OwnClan:    "Walobots",
	})
	def := spikeDef(t, e, "pvp_kills")

	ctx := context.Background()
	log := discardLogger()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// Matching is case-insensitive.
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("WALOBOTS", 1, 0)}, base, base.Unix())
	t1 := base.Add(3 * time.Minute)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("WALOBOTS", 1, 900)}, t1, t1.Unix())

	if len(sink.sent) != 0 {
		t.Errorf("own clan must not trigger spike alerts: %v", sink.texts())
	}
	if st.snapshotCount() != 2 {
		t.Errorf("own clan rows are still snapshotted, got %d", st.snapshotCount())
	}
}

func TestDetectSpikesTopFiveOnly(t *testing.T) {
	sink := &mockSink{}
	st := &mockStore{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: st,
		Thresholds: map[string]float64{"pvp_kills": 100},
	})
	def := spikeDef(t, e, "pvp_kills")

	rowsAt := func(sixthKills float64) []rusticated.ClanRow {
		return []rusticated.ClanRow{
			killsRow("A", 1, 500), killsRow("B", 2, 400), killsRow("C", 3, 300),
			killsRow("D", 4, 200), killsRow("E", 5, 100), killsRow("F", 6, sixthKills),
		}
	}

	ctx := context.Background()
	log := discardLogger()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	e.detectSpikes(ctx, log, def, rowsAt(0), base, base.Unix())
	t1 := base.Add(3 * time.Minute)
	e.detectSpikes(ctx, log, def, rowsAt(5000), t1, t1.Unix())

	if len(sink.sent) != 0 {
		t.Errorf("rank 6 must be outside spike detection: %v", sink.texts())
	}
	if st.snapshotCount() != 10 {
		t.Errorf("want 5 snapshots per cycle, got %d total", st.snapshotCount())
	}
}

func TestDetectSpikesSkipsRowsWithoutSortStat(t *testing.T) {
	st := &mockStore{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: &mockSink{}, Store: st,
		Thresholds: map[string]float64{"pvp_kills": 100},
	})
	def := spikeDef(t, e, "pvp_kills")

	rows := []rusticated.ClanRow{
		{Name: "NoStats", Rank: iptr(1), Stats: map[string]float64{}},
		killsRow("HasStats", 2, 40),
	}
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	e.detectSpikes(context.Background(), discardLogger(), def, rows, base, base.Unix())

	if st.snapshotCount() != 1 {
		t.Fatalf("want 1 snapshot, got %d", st.snapshotCount())
	}
	if st.snapshots[0].ClanName != "HasStats" {
		t.Errorf("snapshotted %s, want HasStats", st.snapshots[0].ClanName)
	}
	if e.spikes.Len() != 1 {
		t.Errorf("tracker should hold 1 key, got %d", e.spikes.Len())
	}
}

func TestRunCycleSnapshotsOnlyThresholdedMetrics(t *testing.T) {
	src := &mockSource{
		clanRows: map[string][]rusticated.ClanRow{
			"pvp|kill_player": {killsRow("Goons", 1, 100)},
			"gathered|gathered_sulfur.ore": {{
				Name:  "Goons",
				Rank:  iptr(1),
				Stats: map[string]float64{"gathered_sulfur.ore": 2500},
			}},
		},
	}
	st := &mockStore{}
	e := newTestEngine(t, Options{
		Source: src, Sink: &mockSink{}, Store: st,
		Thresholds: map[string]float64{"gathered_sulfur_ore": 5000},
	})

	e.runCycle(context.Background())

	if st.snapshotCount() != 1 {
		t.Fatalf("want 1 snapshot, got %d", st.snapshotCount())
	}
	if st.snapshots[0].MetricKey != "gathered_sulfur_ore" {
		t.Errorf("snapshotted %s, want gathered_sulfur_ore only", st.snapshots[0].MetricKey)
	}
}

func TestDetectSpikesDedupWithinCycle(t *testing.T) {
	sink := &mockSink{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: &mockStore{},
		Thresholds: map[string]float64{"pvp_kills": 100},
	})
	def := spikeDef(t, e, "pvp_kills")

	ctx := context.Background()
	log := discardLogger()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	cycleUnix := base.Unix()

	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 50)}, base, cycleUnix)
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 200)}, base, cycleUnix)
	// Same cycle key, same subject: the second qualifying delta is suppressed.
	e.detectSpikes(ctx, log, def, []rusticated.ClanRow{killsRow("Enemy", 1, 350)}, base, cycleUnix)

	if got := len(sink.containing("SPIKE")); got != 1 {
		t.Errorf("want 1 alert after dedup, got %d", got)
	}
}

func TestWatchClanStats(t *testing.T) {
	sink := &mockSink{}
	e := newTestEngine(t, Options{Source: &mockSource{}, Sink: sink, Store: &mockStore{}})
	def := spikeDef(t, e, "gathered_sulfur_ore")

	watch := map[string]bool{"goons": true}
	sulfur := func(name string, rank int, v float64) []rusticated.ClanRow {
		return []rusticated.ClanRow{{
			Name:  name,
			Rank:  iptr(rank),
			Stats: map[string]float64{"gathered_sulfur.ore": v},
		}}
	}

	ctx := context.Background()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	e.watchClanStats(ctx, def, sulfur("Goons", 3, 1000), watch, base, base.Unix())
	if len(sink.sent) != 0 {
		t.Fatalf("first observation should not alert: %v", sink.texts())
	}

	t1 := base.Add(3 * time.Minute)
	e.watchClanStats(ctx, def, sulfur("Goons", 3, 6000), watch, t1, t1.Unix())
	alerts := sink.containing("CLAN WATCH")
	if len(alerts) != 1 {
		t.Fatalf("want 1 alert, got %d: %v", len(alerts), sink.texts())
	}
	if !strings.Contains(alerts[0], "CLAN WATCH — Goons") {
		t.Errorf("alert missing clan header:\n%s", alerts[0])
	}
	if !strings.Contains(alerts[0], "gathered_sulfur.ore +5,000") {
		t.Errorf("alert missing stat line:\n%s", alerts[0])
	}
	if !strings.Contains(alerts[0], "• Rank #3") {
		t.Errorf("alert missing rank suffix:\n%s", alerts[0])
	}

	// A decrease overwrites the cache silently.
	t2 := base.Add(6 * time.Minute)
	e.watchClanStats(ctx, def, sulfur("Goons", 3, 5900), watch, t2, t2.Unix())
	if got := len(sink.containing("CLAN WATCH")); got != 1 {
		t.Errorf("decrease should not alert, got %d alerts", got)
	}

	// Unwatched clans never alert.
	t3 := base.Add(9 * time.Minute)
	e.watchClanStats(ctx, def, sulfur("Zerg", 1, 1), watch, t3, t3.Unix())
	t4 := base.Add(12 * time.Minute)
	e.watchClanStats(ctx, def, sulfur("Zerg", 1, 99999), watch, t4, t4.Unix())
	if got := len(sink.containing("CLAN WATCH")); got != 1 {
		t.Errorf("unwatched clan alerted, total %d", got)
	}
}

func TestWatchPlayerStats(t *testing.T) {
	sink := &mockSink{}
	e := newTestEngine(t, Options{
		Source: &mockSource{}, Sink: sink, Store: &mockStore{},
		PlayerOverrides: map[string]string{"76561198000000002": "Allies"},
	})
	def := spikeDef(t, e, "pvp_kills")

	watch := map[string]bool{"76561198000000001": true}
	rowsAt := func(k1, k2 float64) []rusticated.PlayerRow {
		return []rusticated.PlayerRow{
			{SteamID: "76561198000000001", Username: "alpha", Rank: iptr(8), Stats: map[string]float64{"kill_player": k1}},
			{SteamID: "76561198000000002", Username: "", Rank: iptr(20), Stats: map[string]float64{"kill_player": k2}},
			{SteamID: "76561198000000003", Username: "ghost", Stats: map[string]float64{"kill_player": 99999}},
		}
	}

	ctx := context.Background()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	e.watchPlayerStats(ctx, def, rowsAt(10, 100), watch, base, base.Unix())
	if len(sink.sent) != 0 {
		t.Fatalf("first observation should not alert: %v", sink.texts())
	}

	t1 := base.Add(3 * time.Minute)
	e.watchPlayerStats(ctx, def, rowsAt(25, 140), watch, t1, t1.Unix())

	alerts := sink.containing("PLAYER WATCH")
	if len(alerts) != 2 {
		t.Fatalf("want 2 alerts, got %d: %v", len(alerts), sink.texts())
	}

	var sawWatched, sawOverride bool
	for _, alert := range alerts {
		if strings.Contains(alert, "PLAYER WATCH — alpha (Unknown)") && strings.Contains(alert, "kill_player +15") {
			sawWatched = true
		}
		// Empty username falls back, override supplies the clan label.
		if strings.Contains(alert, "PLAYER WATCH — Unknown (Allies)") && strings.Contains(alert, "kill_player +40") {
			sawOverride = true
		}
		if strings.Contains(alert, "ghost") {
			t.Errorf("unwatched player alerted:\n%s", alert)
		}
	}
	if !sawWatched || !sawOverride {
		t.Errorf("missing expected alerts, watched=%v override=%v: %v", sawWatched, sawOverride, alerts)
	}
}

func TestRunCycleTrackingGatesWatchAlerts(t *testing.T) {
	src := &mockSource{
		clanRows: map[string][]rusticated.ClanRow{
			"pvp|kill_player": {killsRow("Goons", 1, 10)},
		},
	}
	sink := &mockSink{}
	st := &mockStore{clans: []string{"Goons"}}
	e := newTestEngine(t, Options{Source: src, Sink: sink, Store: st})

	setKills := func(v float64) {
		src.mu.Lock()
		src.clanRows["pvp|kill_player"] = []rusticated.ClanRow{killsRow("Goons", 1, v)}
		src.mu.Unlock()
	}

	ctx := context.Background()

	e.SetTracking(false)
	e.runCycle(ctx)
	setKills(20)
	e.runCycle(ctx)
	if got := len(sink.containing("CLAN WATCH")); got != 0 {
		t.Fatalf("tracking off must gate watch alerts, got %d", got)
	}

	// Re-enabling starts from a fresh baseline: the first cycle observes,
	// the second alerts.
	e.SetTracking(true)
	setKills(30)
	e.runCycle(ctx)
	if got := len(sink.containing("CLAN WATCH")); got != 0 {
		t.Fatalf("first tracked cycle only seeds the cache, got %d alerts", got)
	}

	setKills(45)
	e.runCycle(ctx)
	if got := len(sink.containing("CLAN WATCH")); got != 1 {
		t.Errorf("want 1 watch alert after re-enable, got %d: %v", got, sink.texts())
	}
}
