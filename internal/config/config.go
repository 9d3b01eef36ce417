package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	infisical "github.com/infisical/go-sdk"
)

// defaultSpikeThresholds maps metric keys to the minimum delta between two
// consecutive polls that counts as a spike. Overridable via SPIKE_THRESHOLDS.
var defaultSpikeThresholds = map[string]float64{
	"gathered_sulfur_ore":   5000,
	"looted_hackable":       2,
	"boom_rocket_basic":     50,
	"looted_bradley_crates": 2,
}

type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	RedisPassword  string
	FrontendOrigin string

	TelegramToken string
	ChatID        int64
	AlertMention  string

	// Upstream leaderboard identity.
	ServerID     string
	ServerWipeID string
	OrgID        string

	// Clan and player tracking.
	ClanName            string
	ClanRoster          map[string]string
	WatchClanSeeds      []string
	WatchPlayerSeeds    []string
	PlayerClanOverrides map[string]string
	SpikeThresholds     map[string]float64

	PollInterval time.Duration
	TrendWindow  time.Duration
	DigestHour   int
}

func Load() Config {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       envOr("REDIS_URL", "redis://redis-master.redis.svc.cluster.local:6379/0"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:        parseInt64(os.Getenv("TELEGRAM_CHAT_ID"), 0),
		AlertMention:  os.Getenv("ALERT_MENTION"),

		ServerID:     envOr("SERVER_ID", "us-2x-monthly-large"),
		ServerWipeID: envOr("SERVER_WIPE_ID", "4033"),
		OrgID:        os.Getenv("ORG_ID"),

		ClanName:            envOr("CLAN_NAME", "Walobots"),
		ClanRoster:          parsePairs(os.Getenv("CLAN_ROSTER")),
		WatchClanSeeds:      parseCSV(os.Getenv("WATCH_CLANS")),
		WatchPlayerSeeds:    parseCSV(os.Getenv("WATCH_PLAYERS")),
		PlayerClanOverrides: parsePairs(os.Getenv("PLAYER_CLAN_OVERRIDES")),
		SpikeThresholds:     parseThresholds(os.Getenv("SPIKE_THRESHOLDS")),

		PollInterval: time.Duration(parseInt64(os.Getenv("POLL_INTERVAL_SECONDS"), 180)) * time.Second,
		TrendWindow:  time.Duration(parseInt64(os.Getenv("TREND_WINDOW_HOURS"), 12)) * time.Hour,
		DigestHour:   int(parseInt64(os.Getenv("DIGEST_HOUR"), 8)),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.TelegramToken,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64(v string, fallback int64) int64 {
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePairs parses "7656119...:fatalis, 7656111...:win" into a key->label
// map. Entries without a colon or with an empty side are skipped.
func parsePairs(v string) map[string]string {
	out := map[string]string{}
	for _, part := range parseCSV(v) {
		key, label, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		label = strings.TrimSpace(label)
		if key == "" || label == "" {
			continue
		}
		out[key] = label
	}
	return out
}

// parseThresholds starts from the built-in spike thresholds and applies
// "metric:value" overrides on top. Unparsable values are skipped.
func parseThresholds(v string) map[string]float64 {
	out := make(map[string]float64, len(defaultSpikeThresholds))
	for k, t := range defaultSpikeThresholds {
		out[k] = t
	}
	for key, raw := range parsePairs(v) {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			slog.Warn("skipping unparsable spike threshold", "metric", key, "value", raw)
			continue
		}
		out[key] = t
	}
	return out
}
