package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS clan_metric_snapshots (
    id BIGSERIAL PRIMARY KEY,
    metric_key TEXT NOT NULL,
    clan_name TEXT NOT NULL,
    ts TIMESTAMPTZ NOT NULL DEFAULT now(),
    rank INT,
    value DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clan_metric_snapshots_metric_ts
    ON clan_metric_snapshots (metric_key, ts);

CREATE TABLE IF NOT EXISTS watch_clans (
    clan_name TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS watch_players (
    steam_id TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_links (
    chat_user_id BIGINT PRIMARY KEY,
    steam_id TEXT NOT NULL,
    linked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Identities of the channel messages the engine keeps edited in place.
CREATE TABLE IF NOT EXISTS channel_messages (
    kind TEXT PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    message_id BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
