package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/walo-labs/leaderboard-monitor/internal/dedup"
	"github.com/walo-labs/leaderboard-monitor/internal/metrics"
	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
)

const (
	fetchLimit      = 50
	boardTopN       = 2
	snapshotMaxAge  = 14 * 24 * time.Hour
	cleanupInterval = time.Hour

	kindLeaderboard = "leaderboard"
	kindTrend       = "trend"

	playerCardGroup  = "pvp"
	playerCardSortBy = "kill_player"
)

// ErrPlayerNotFound is returned when a SteamID is absent from the current
// PvP leaderboard.
var ErrPlayerNotFound = errors.New("player not on leaderboard")

// BoardEntry is one rendered leaderboard position. Value is nil when the row
// was returned without the board's sort stat.
type BoardEntry struct {
	Name  string   `json:"name"`
	Rank  *int     `json:"rank"`
	Value *float64 `json:"value"`
}

// MetricBoard is the top of one display metric's leaderboard.
type MetricBoard struct {
	Metric string       `json:"metric"`
	Label  string       `json:"label"`
	Top    []BoardEntry `json:"top"`
}

// LeaderboardView is the published snapshot of all display boards from the
// most recent poll cycle.
type LeaderboardView struct {
	UpdatedAt   time.Time     `json:"updated_at"`
	Boards      []MetricBoard `json:"boards"`
	FetchErrors int           `json:"fetch_errors"`
}

// Status reports the tracking switch and watch lists.
type Status struct {
	Tracking  bool      `json:"tracking"`
	Clans     []string  `json:"clans"`
	Players   []string  `json:"players"`
	LastCycle time.Time `json:"last_cycle"`
}

// WinsSummary lists every metric where the own clan currently holds rank 1.
type WinsSummary struct {
	Clan   string   `json:"clan"`
	Labels []string `json:"labels"`
	Boards int      `json:"boards"`
}

// PlayerCard holds the personal stats shown by /me.
type PlayerCard struct {
	Username        string
	SteamID         string
	ClanName        string
	Rank            *int
	Kills           float64
	Deaths          float64
	KDR             float64
	PlaytimeSeconds float64
}

// MemberCard pairs a roster member's stats with their chat mention. Card is
// nil when the member is missing from the current board.
type MemberCard struct {
	SteamID string
	Mention string
	Card    *PlayerCard
}

// Options configures a monitoring engine.
type Options struct {
	Source   Source
	Sink     Sink
	Store    Store
	Dedup    *dedup.Deduplicator
	Logger   *slog.Logger
	Registry *rusticated.Registry

	ChatID          int64
	OwnClan         string
	AlertMention    string
	ServerID        string
	Thresholds      map[string]float64
	PlayerOverrides map[string]string
	ClanRoster      map[string]string
	DisplayMetrics  []string
	PollInterval    time.Duration
	TrendWindow     time.Duration
	DigestHour      int
}

// Engine polls every registered metric, persists snapshots, raises spike and
// watch alerts, and keeps the pinned leaderboard and trend messages current.
type Engine struct {
	source   Source
	sink     Sink
	store    Store
	dedup    *dedup.Deduplicator
	logger   *slog.Logger
	registry *rusticated.Registry

	chatID       int64
	ownClan      string
	mention      string
	serverID     string
	thresholds   map[string]float64
	overrides    map[string]string
	roster       map[string]string
	display      []rusticated.MetricDef
	displayKeys  map[string]bool
	pollInterval time.Duration
	trendWindow  time.Duration
	digestHour   int

	spikes      *DeltaTracker
	clanWatch   *DeltaTracker
	playerWatch *DeltaTracker

	mu        sync.RWMutex
	tracking  bool
	lastView  *LeaderboardView
	lastCycle time.Time
}

// NewEngine validates the options against the metric registry and returns a
// ready engine. Unknown threshold or display keys are configuration errors.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: source is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("engine: sink is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for key := range opts.Thresholds {
		if _, ok := opts.Registry.Get(key); !ok {
			return nil, fmt.Errorf("engine: spike threshold for unknown metric %q", key)
		}
	}

	display := make([]rusticated.MetricDef, 0, len(opts.DisplayMetrics))
	displayKeys := make(map[string]bool, len(opts.DisplayMetrics))
	for _, key := range opts.DisplayMetrics {
		def, ok := opts.Registry.Get(key)
		if !ok {
			return nil, fmt.Errorf("engine: display metric %q is not registered", key)
		}
		display = append(display, def)
		displayKeys[key] = true
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Minute
	}
	trendWindow := opts.TrendWindow
	if trendWindow <= 0 {
		trendWindow = 12 * time.Hour
	}
	digestHour := opts.DigestHour
	if digestHour < 0 || digestHour > 23 {
		digestHour = 8
	}

	e := &Engine{
		source:       opts.Source,
		sink:         opts.Sink,
		store:        opts.Store,
		dedup:        opts.Dedup,
		logger:       logger,
		registry:     opts.Registry,
		chatID:       opts.ChatID,
		ownClan:      opts.OwnClan,
		mention:      opts.AlertMention,
		serverID:     opts.ServerID,
		thresholds:   opts.Thresholds,
		overrides:    opts.PlayerOverrides,
		roster:       opts.ClanRoster,
		display:      display,
		displayKeys:  displayKeys,
		pollInterval: pollInterval,
		trendWindow:  trendWindow,
		digestHour:   digestHour,
		spikes:       NewDeltaTracker(),
		clanWatch:    NewDeltaTracker(),
		playerWatch:  NewDeltaTracker(),
	}
	// Watch alerting starts off and is not persisted; a restart always
	// comes back disarmed until someone toggles it.
	metrics.TrackingEnabled.Set(0)
	return e, nil
}

// Run starts the polling loop, the snapshot retention sweep, and the daily
// digest scheduler. It blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("engine started",
		"interval", e.pollInterval,
		"metrics", e.registry.Len(),
		"display", len(e.display))

	// Initial poll
	e.runCycle(ctx)

	pollTicker := time.NewTicker(e.pollInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	digestTimer := e.nextDigestTimer()
	defer digestTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return
		case <-pollTicker.C:
			e.runCycle(ctx)
		case <-cleanupTicker.C:
			e.cleanupSnapshots(ctx)
		case <-digestTimer.C:
			e.sendDailyDigest(ctx)
			digestTimer = e.nextDigestTimer()
		}
	}
}

// runCycle walks every metric once: fetch, snapshot, spike detection, watch
// alerts, then republishes the pinned messages.
func (e *Engine) runCycle(ctx context.Context) {
	start := time.Now()
	log := e.logger.With("cycle_id", uuid.New().String())

	tracking := e.TrackingEnabled()

	clanList, err := e.store.WatchClans(ctx)
	if err != nil {
		log.Error("load watch clans failed", "error", err)
	}
	playerList, err := e.store.WatchPlayers(ctx)
	if err != nil {
		log.Error("load watch players failed", "error", err)
	}
	metrics.WatchedClans.Set(float64(len(clanList)))
	metrics.WatchedPlayers.Set(float64(len(playerList)))

	clanSet := make(map[string]bool, len(clanList))
	for _, c := range clanList {
		clanSet[strings.ToLower(c)] = true
	}
	playerSet := make(map[string]bool, len(playerList))
	for _, p := range playerList {
		playerSet[p] = true
	}

	watchClans := tracking && len(clanSet) > 0
	watchPlayers := tracking && (len(playerSet) > 0 || len(e.overrides) > 0)

	now := time.Now()
	cycleUnix := now.Unix()
	displayTop := make(map[string][]rusticated.ClanRow, len(e.display))
	playerRows := make(map[string][]rusticated.PlayerRow)
	fetchErrors := 0

	for _, def := range e.registry.All() {
		rows, err := e.fetchClanBoard(def.Group, def.SortBy)
		if err != nil {
			fetchErrors++
			log.Error("fetch leaderboard failed", "metric", def.Key, "error", err)
			continue
		}

		// Snapshot history is only kept for metrics with an alert
		// threshold; the rest are fetched for display and watches.
		if _, ok := e.thresholds[def.Key]; ok {
			e.detectSpikes(ctx, log, def, rows, now, cycleUnix)
		}

		if watchClans {
			e.watchClanStats(ctx, def, rows, clanSet, now, cycleUnix)
		}
		if watchPlayers {
			pRows, fetched := playerRows[def.Group]
			if !fetched {
				pRows, err = e.fetchPlayerBoard(def.Group, def.SortBy)
				if err != nil {
					log.Error("fetch player leaderboard failed", "group", def.Group, "error", err)
					pRows = nil
				}
				playerRows[def.Group] = pRows
			}
			e.watchPlayerStats(ctx, def, pRows, playerSet, now, cycleUnix)
		}

		if e.displayKeys[def.Key] {
			displayTop[def.Key] = rows
		}
	}

	view := e.buildView(now, displayTop, fetchErrors)

	e.mu.Lock()
	e.lastView = view
	e.lastCycle = now
	e.mu.Unlock()

	e.publishLeaderboard(ctx, log, view)
	e.publishTrend(ctx, log)

	elapsed := time.Since(start)
	metrics.CycleDuration.Observe(elapsed.Seconds())
	metrics.CycleLastSuccess.Set(float64(time.Now().Unix()))
	log.Info("cycle complete",
		"duration", elapsed.Round(time.Millisecond),
		"fetch_errors", fetchErrors)
}

func (e *Engine) fetchClanBoard(group, sortBy string) ([]rusticated.ClanRow, error) {
	start := time.Now()
	rows, err := e.source.ClanLeaderboard(group, sortBy, fetchLimit)
	metrics.FetchDuration.WithLabelValues(group).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(group, "error").Inc()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues(group, "ok").Inc()
	return rows, nil
}

func (e *Engine) fetchPlayerBoard(group, sortBy string) ([]rusticated.PlayerRow, error) {
	start := time.Now()
	rows, err := e.source.PlayerLeaderboard(group, sortBy, fetchLimit)
	metrics.FetchDuration.WithLabelValues(group).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(group, "error").Inc()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues(group, "ok").Inc()
	return rows, nil
}

// buildView assembles the display boards in registry order. A board whose
// fetch failed this cycle is present with an empty Top.
func (e *Engine) buildView(now time.Time, displayTop map[string][]rusticated.ClanRow, fetchErrors int) *LeaderboardView {
	view := &LeaderboardView{UpdatedAt: now, FetchErrors: fetchErrors}

	for _, def := range e.display {
		board := MetricBoard{Metric: def.Key, Label: def.Label}
		for _, row := range displayTop[def.Key] {
			if len(board.Top) == boardTopN {
				break
			}
			entry := BoardEntry{Name: row.Name, Rank: row.Rank}
			if v, ok := row.Stats[def.SortBy]; ok {
				entry.Value = &v
			}
			board.Top = append(board.Top, entry)
		}
		view.Boards = append(view.Boards, board)
	}
	return view
}

func (e *Engine) publishLeaderboard(ctx context.Context, log *slog.Logger, view *LeaderboardView) {
	e.publishPinned(ctx, log, kindLeaderboard, renderLeaderboard(view, e.serverID))
}

func (e *Engine) publishTrend(ctx context.Context, log *slog.Logger) {
	sections := make([]string, 0, len(e.display))
	for _, def := range e.display {
		view, err := e.TrendView(ctx, def.Key, e.trendWindow)
		if err != nil {
			log.Error("trend view failed", "metric", def.Key, "error", err)
			continue
		}
		sections = append(sections, renderTrend(view))
	}
	if len(sections) == 0 {
		return
	}
	e.publishPinned(ctx, log, kindTrend, strings.Join(sections, "\n\n"))
}

// publishPinned edits the stored channel message for kind, falling back to
// sending a fresh one when the edit fails or no message exists yet.
func (e *Engine) publishPinned(ctx context.Context, log *slog.Logger, kind, text string) {
	ref, err := e.store.MessageRef(ctx, kind)
	if err != nil {
		log.Error("load message ref failed", "kind", kind, "error", err)
	}

	if ref != nil {
		err := e.sink.EditMessage(ref.ChatID, ref.MessageID, text)
		if err == nil {
			return
		}
		log.Warn("edit message failed, sending new", "kind", kind, "error", err)
	}

	msgID, err := e.sink.SendMessage(e.chatID, text)
	if err != nil {
		log.Error("send message failed", "kind", kind, "error", err)
		return
	}
	if err := e.store.SaveMessageRef(ctx, kind, e.chatID, msgID); err != nil {
		log.Error("save message ref failed", "kind", kind, "error", err)
	}
}

func (e *Engine) cleanupSnapshots(ctx context.Context) {
	pruned, err := e.store.CleanupOldSnapshots(ctx, snapshotMaxAge)
	if err != nil {
		e.logger.Error("snapshot cleanup failed", "error", err)
		return
	}
	if pruned > 0 {
		metrics.SnapshotsPrunedTotal.Add(float64(pruned))
		e.logger.Info("snapshots pruned", "rows", pruned)
	}
}

// SetTracking flips the global watch-alert switch.
func (e *Engine) SetTracking(enabled bool) {
	e.mu.Lock()
	e.tracking = enabled
	e.mu.Unlock()

	if enabled {
		metrics.TrackingEnabled.Set(1)
	} else {
		metrics.TrackingEnabled.Set(0)
	}
	e.logger.Info("tracking toggled", "enabled", enabled)
}

// TrackingEnabled reports the current state of the watch-alert switch.
func (e *Engine) TrackingEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tracking
}

// LastView returns the most recently published leaderboard view, or nil
// before the first cycle completes.
func (e *Engine) LastView() *LeaderboardView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastView
}

// Status reads the watch lists and tracking switch.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	clans, err := e.store.WatchClans(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("watch clans: %w", err)
	}
	players, err := e.store.WatchPlayers(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("watch players: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		Tracking:  e.tracking,
		Clans:     clans,
		Players:   players,
		LastCycle: e.lastCycle,
	}, nil
}

// WinsSummary fetches every registered board and collects the metrics whose
// top row belongs to the own clan, matched by clan name or tag.
func (e *Engine) WinsSummary(ctx context.Context) (*WinsSummary, error) {
	defs := e.registry.All()
	tops := make([]*rusticated.ClanRow, len(defs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, def := range defs {
		g.Go(func() error {
			rows, err := e.fetchClanBoard(def.Group, def.SortBy)
			if err != nil {
				e.logger.Error("fetch wins board failed", "metric", def.Key, "error", err)
				return nil
			}
			if len(rows) > 0 {
				tops[i] = &rows[0]
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &WinsSummary{Clan: e.ownClan, Boards: len(defs)}
	for i, def := range defs {
		top := tops[i]
		if top == nil {
			continue
		}
		if strings.EqualFold(top.Name, e.ownClan) || (top.Tag != "" && strings.EqualFold(top.Tag, e.ownClan)) {
			summary.Labels = append(summary.Labels, def.Label)
		}
	}
	return summary, nil
}

// PlayerCard looks a SteamID up on the PvP kills board.
func (e *Engine) PlayerCard(ctx context.Context, steamID string) (*PlayerCard, error) {
	rows, err := e.fetchPlayerBoard(playerCardGroup, playerCardSortBy)
	if err != nil {
		return nil, fmt.Errorf("fetch player board: %w", err)
	}

	row := rusticated.FindPlayer(rows, steamID)
	if row == nil {
		return nil, ErrPlayerNotFound
	}
	return playerCardFromRow(*row), nil
}

// RosterCards builds a stats card for every configured clan member, in
// SteamID order. Members absent from the board get a nil Card.
func (e *Engine) RosterCards(ctx context.Context) ([]MemberCard, error) {
	if len(e.roster) == 0 {
		return nil, nil
	}

	rows, err := e.fetchPlayerBoard(playerCardGroup, playerCardSortBy)
	if err != nil {
		return nil, fmt.Errorf("fetch player board: %w", err)
	}

	bySteam := make(map[string]rusticated.PlayerRow, len(rows))
	for _, row := range rows {
		bySteam[row.SteamID] = row
	}

	steamIDs := make([]string, 0, len(e.roster))
	for id := range e.roster {
		steamIDs = append(steamIDs, id)
	}
	sort.Strings(steamIDs)

	cards := make([]MemberCard, 0, len(steamIDs))
	for _, id := range steamIDs {
		mc := MemberCard{SteamID: id, Mention: e.roster[id]}
		if row, ok := bySteam[id]; ok {
			mc.Card = playerCardFromRow(row)
		}
		cards = append(cards, mc)
	}
	return cards, nil
}

func playerCardFromRow(row rusticated.PlayerRow) *PlayerCard {
	card := &PlayerCard{
		Username:        row.Username,
		SteamID:         row.SteamID,
		ClanName:        row.ClanName,
		Rank:            row.Rank,
		Kills:           row.Stats["kill_player"],
		Deaths:          row.Stats["death_player"],
		KDR:             row.Stats["kdr"],
		PlaytimeSeconds: row.Stats["playtime"],
	}
	if card.Username == "" {
		card.Username = "Unknown"
	}
	if card.ClanName == "" {
		card.ClanName = "Unknown"
	}
	return card
}
