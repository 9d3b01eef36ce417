package rusticated

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const leaderboardAPI = "https://stats.rusticated.com/api/leaderboard"

// Client fetches clan and player leaderboards for one game server and wipe.
type Client struct {
	client       *http.Client
	baseURL      string
	serverID     string
	serverWipeID string
	orgID        string
}

func NewClient(serverID, serverWipeID, orgID string) *Client {
	return &Client{
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      leaderboardAPI,
		serverID:     serverID,
		serverWipeID: serverWipeID,
		orgID:        orgID,
	}
}

// ClanRow is one validated clan leaderboard entry. Stats holds only the
// values that parsed as numbers; Rank is nil when the API omitted it.
type ClanRow struct {
	Name  string
	Tag   string
	Rank  *int
	Stats map[string]float64
}

// PlayerRow is one validated player leaderboard entry.
type PlayerRow struct {
	SteamID  string
	Username string
	ClanName string
	Rank     *int
	Stats    map[string]float64
}

type leaderboardResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Entries []leaderboardEntry `json:"entries"`
	} `json:"data"`
}

// leaderboardEntry is the loose wire shape; rows are validated into ClanRow
// or PlayerRow before they leave this package.
type leaderboardEntry struct {
	Name     string         `json:"name"`
	ClanName string         `json:"clanName"`
	ClanTag  string         `json:"clanTag"`
	SteamID  string         `json:"steamId"`
	Username string         `json:"username"`
	Rank     any            `json:"rank"`
	Stats    map[string]any `json:"stats"`
}

// ClanLeaderboard fetches the clan leaderboard for a metric group, sorted
// descending by sortBy. Rows without a usable clan name are dropped.
func (c *Client) ClanLeaderboard(group, sortBy string, limit int) ([]ClanRow, error) {
	entries, err := c.fetch("clan", group, sortBy, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]ClanRow, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if strings.TrimSpace(name) == "" {
			name = e.ClanName
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		rows = append(rows, ClanRow{
			Name:  name,
			Tag:   strings.TrimSpace(e.ClanTag),
			Rank:  parseRank(e.Rank),
			Stats: parseStats(e.Stats),
		})
	}
	return rows, nil
}

// PlayerLeaderboard fetches the player leaderboard for a metric group. Rows
// without a steam ID are dropped.
func (c *Client) PlayerLeaderboard(group, sortBy string, limit int) ([]PlayerRow, error) {
	entries, err := c.fetch("player", group, sortBy, limit)
	if err != nil {
		return nil, err
	}

	rows := make([]PlayerRow, 0, len(entries))
	for _, e := range entries {
		steamID := strings.TrimSpace(e.SteamID)
		if steamID == "" {
			continue
		}
		rows = append(rows, PlayerRow{
			SteamID:  steamID,
			Username: strings.TrimSpace(e.Username),
			ClanName: strings.TrimSpace(e.ClanName),
			Rank:     parseRank(e.Rank),
			Stats:    parseStats(e.Stats),
		})
	}
	return rows, nil
}

func (c *Client) fetch(entryType, group, sortBy string, limit int) ([]leaderboardEntry, error) {
	params := url.Values{}
	params.Set("type", entryType)
	params.Set("group", group)
	params.Set("sortBy", sortBy)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", "0")
	params.Set("sortDir", "desc")
	params.Set("serverId", c.serverID)
	params.Set("serverWipeId", c.serverWipeID)
	if c.orgID != "" {
		params.Set("orgId", c.orgID)
	}

	resp, err := c.client.Get(c.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("leaderboard API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard API status %d for group %s sortBy %s", resp.StatusCode, group, sortBy)
	}

	var payload leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("leaderboard API reported failure for group %s sortBy %s", group, sortBy)
	}
	return payload.Data.Entries, nil
}

// parseStats keeps stat values that are numbers or numeric strings and drops
// everything else. A missing stat stays missing; it is never stored as zero.
func parseStats(raw map[string]any) map[string]float64 {
	stats := make(map[string]float64, len(raw))
	for key, v := range raw {
		if f, ok := asFloat(v); ok {
			stats[key] = f
		}
	}
	return stats
}

func parseRank(v any) *int {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	r := int(f)
	return &r
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// finite rejects NaN and infinities so "NaN" strings from the API do not
// poison stats.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FindPlayer returns the row with the given steam ID, or nil.
func FindPlayer(rows []PlayerRow, steamID string) *PlayerRow {
	for i := range rows {
		if rows[i].SteamID == steamID {
			return &rows[i]
		}
	}
	return nil
}

// ValidSteamID reports whether id looks like a SteamID64: exactly 17 decimal
// digits.
func ValidSteamID(id string) bool {
	if len(id) != 17 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
