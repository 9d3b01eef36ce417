package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotLinked is returned when a chat user has no stored steam ID.
var ErrNotLinked = errors.New("user not linked")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- Snapshots ---

// Snapshot is one observed leaderboard value for a clan and metric.
type Snapshot struct {
	MetricKey string
	ClanName  string
	Rank      *int
	Value     float64
	TS        time.Time
}

// MetricChange describes one clan's movement across a time window: its value
// at the earliest snapshot inside the window, and its value and rank at the
// latest one.
type MetricChange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Rank  int     `json:"rank"`
}

// AppendSnapshot stores one observation. The history is append-only; there is
// no dedup and no upsert.
func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clan_metric_snapshots (metric_key, clan_name, ts, rank, value)
		VALUES ($1, $2, $3, $4, $5)`,
		snap.MetricKey, snap.ClanName, snap.TS, snap.Rank, snap.Value)
	return err
}

// WindowedChanges returns per-clan movement for a metric over the trailing
// window. Clans with no snapshot inside the window are omitted. Snapshots
// sharing a timestamp resolve by insertion id: lowest id is the window start,
// highest id the window end.
func (s *Store) WindowedChanges(ctx context.Context, metricKey string, window time.Duration) (map[string]MetricChange, error) {
	since := time.Now().UTC().Add(-window)

	rows, err := s.pool.Query(ctx, `
		WITH spans AS (
			SELECT clan_name, MIN(ts) AS start_ts, MAX(ts) AS end_ts
			FROM clan_metric_snapshots
			WHERE metric_key = $1 AND ts >= $2
			GROUP BY clan_name
		),
		starts AS (
			SELECT DISTINCT ON (m.clan_name) m.clan_name, m.value
			FROM clan_metric_snapshots m
			JOIN spans sp ON sp.clan_name = m.clan_name AND m.ts = sp.start_ts
			WHERE m.metric_key = $1
			ORDER BY m.clan_name, m.ts, m.id
		),
		ends AS (
			SELECT DISTINCT ON (m.clan_name) m.clan_name, m.value, m.rank
			FROM clan_metric_snapshots m
			JOIN spans sp ON sp.clan_name = m.clan_name AND m.ts = sp.end_ts
			WHERE m.metric_key = $1
			ORDER BY m.clan_name, m.ts DESC, m.id DESC
		)
		SELECT st.clan_name, st.value, e.value, COALESCE(e.rank, 0)
		FROM starts st
		JOIN ends e ON e.clan_name = st.clan_name`,
		metricKey, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := map[string]MetricChange{}
	for rows.Next() {
		var clan string
		var c MetricChange
		if err := rows.Scan(&clan, &c.Start, &c.End, &c.Rank); err != nil {
			return nil, err
		}
		changes[clan] = c
	}
	return changes, rows.Err()
}

// CleanupOldSnapshots deletes snapshots older than the given duration.
func (s *Store) CleanupOldSnapshots(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM clan_metric_snapshots WHERE ts < $1`, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Watch registry ---

// AddWatchClan registers a clan for stat watching. Names are stored
// lowercased so matching stays case-insensitive; adding twice is a no-op.
func (s *Store) AddWatchClan(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watch_clans (clan_name) VALUES ($1)
		ON CONFLICT (clan_name) DO NOTHING`, strings.ToLower(name))
	return err
}

// RemoveWatchClan unregisters a clan. Removing an absent clan is a no-op.
func (s *Store) RemoveWatchClan(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM watch_clans WHERE clan_name = $1`, strings.ToLower(name))
	return err
}

func (s *Store) WatchClans(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT clan_name FROM watch_clans ORDER BY clan_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clans []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		clans = append(clans, name)
	}
	return clans, rows.Err()
}

func (s *Store) AddWatchPlayer(ctx context.Context, steamID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watch_players (steam_id) VALUES ($1)
		ON CONFLICT (steam_id) DO NOTHING`, steamID)
	return err
}

func (s *Store) RemoveWatchPlayer(ctx context.Context, steamID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM watch_players WHERE steam_id = $1`, steamID)
	return err
}

func (s *Store) WatchPlayers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT steam_id FROM watch_players ORDER BY steam_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- User links ---

// LinkUser ties a chat user to a steam ID, replacing any previous link.
func (s *Store) LinkUser(ctx context.Context, chatUserID int64, steamID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_links (chat_user_id, steam_id)
		VALUES ($1, $2)
		ON CONFLICT (chat_user_id) DO UPDATE
			SET steam_id = $2, linked_at = now()`, chatUserID, steamID)
	return err
}

// LinkedSteamID returns the steam ID linked to a chat user, or ErrNotLinked.
func (s *Store) LinkedSteamID(ctx context.Context, chatUserID int64) (string, error) {
	var steamID string
	err := s.pool.QueryRow(ctx, `
		SELECT steam_id FROM user_links WHERE chat_user_id = $1`, chatUserID).Scan(&steamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotLinked
	}
	if err != nil {
		return "", err
	}
	return steamID, nil
}

// --- Channel messages ---

// MessageRef identifies a channel message the engine edits in place.
type MessageRef struct {
	Kind      string
	ChatID    int64
	MessageID int64
}

// MessageRef returns the stored identity for a message kind, or nil when none
// has been published yet.
func (s *Store) MessageRef(ctx context.Context, kind string) (*MessageRef, error) {
	var ref MessageRef
	err := s.pool.QueryRow(ctx, `
		SELECT kind, chat_id, message_id FROM channel_messages WHERE kind = $1`, kind).
		Scan(&ref.Kind, &ref.ChatID, &ref.MessageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Store) SaveMessageRef(ctx context.Context, kind string, chatID, messageID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO channel_messages (kind, chat_id, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind) DO UPDATE
			SET chat_id = $2, message_id = $3, updated_at = now()`,
		kind, chatID, messageID)
	return err
}

// Pool exposes the underlying connection pool for use by other packages.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
