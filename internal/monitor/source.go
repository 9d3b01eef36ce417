package monitor

import (
	"context"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

// Source fetches leaderboards from the upstream stats API. Implemented by
// *rusticated.Client; tests substitute a fake.
type Source interface {
	ClanLeaderboard(group, sortBy string, limit int) ([]rusticated.ClanRow, error)
	PlayerLeaderboard(group, sortBy string, limit int) ([]rusticated.PlayerRow, error)
}

// Sink delivers messages to the alert channel. SendMessage returns the
// identity of the new message so the engine can edit it in place later.
type Sink interface {
	SendMessage(chatID int64, text string) (int64, error)
	EditMessage(chatID, messageID int64, text string) error
}

// Store is the slice of persistence the engine needs.
type Store interface {
	AppendSnapshot(ctx context.Context, snap store.Snapshot) error
	WindowedChanges(ctx context.Context, metricKey string, window time.Duration) (map[string]store.MetricChange, error)
	CleanupOldSnapshots(ctx context.Context, maxAge time.Duration) (int64, error)
	WatchClans(ctx context.Context) ([]string, error)
	WatchPlayers(ctx context.Context) ([]string, error)
	MessageRef(ctx context.Context, kind string) (*store.MessageRef, error)
	SaveMessageRef(ctx context.Context, kind string, chatID, messageID int64) error
}
