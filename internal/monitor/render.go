package monitor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var medals = []string{"🥇", "🥈", "🥉"}

// renderLeaderboard builds the pinned leaderboard message.
func renderLeaderboard(v *LeaderboardView, serverID string) string {
	msg := fmt.Sprintf("🏆 RUST LEADERBOARDS — %s\n", v.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))

	for _, board := range v.Boards {
		msg += "\n" + board.Label + "\n"
		if len(board.Top) == 0 {
			msg += "  no data\n"
			continue
		}
		for i, entry := range board.Top {
			medal := "  "
			if i < len(medals) {
				medal = medals[i]
			}
			msg += fmt.Sprintf("%s %s — %s\n", medal, entry.Name, formatStatPtr(entry.Value))
		}
	}

	msg += fmt.Sprintf("\nServer: %s", serverID)
	return msg
}

// renderTrend builds the pinned trend message for one metric.
func renderTrend(v *TrendView) string {
	msg := fmt.Sprintf("📈 TOP MOVERS — %s (%dh)\n\n", v.Label, v.WindowHours)

	if len(v.Entries) == 0 {
		if v.Observed == 0 {
			return msg + "No data yet."
		}
		return msg + fmt.Sprintf("No positive gains in last %d hours.", v.WindowHours)
	}

	for i, entry := range v.Entries {
		msg += fmt.Sprintf("#%d %s — %s (Δ +%s in %dh)\n",
			i+1, entry.Clan, formatStat(entry.End), formatStat(entry.Delta), v.WindowHours)
	}
	return strings.TrimRight(msg, "\n")
}

// renderStatus builds the /status reply.
func renderStatus(s Status) string {
	state := "OFF"
	if s.Tracking {
		state = "ON"
	}

	msg := "⚙️ TRACKING STATUS\n\n"
	msg += fmt.Sprintf("Tracking: %s\n", state)
	msg += fmt.Sprintf("Watched clans (%d): %s\n", len(s.Clans), joinOrDash(s.Clans))
	msg += fmt.Sprintf("Watched players (%d): %s\n", len(s.Players), joinOrDash(s.Players))
	if s.LastCycle.IsZero() {
		msg += "Last poll: never"
	} else {
		msg += fmt.Sprintf("Last poll: %s", s.LastCycle.UTC().Format("2006-01-02 15:04 MST"))
	}
	return msg
}

// renderWins builds the /wins reply.
func renderWins(w *WinsSummary) string {
	msg := fmt.Sprintf("🏆 %s WINS — %d/%d boards\n", stringToUpper(w.Clan), len(w.Labels), w.Boards)
	if len(w.Labels) == 0 {
		return msg + "\nNo #1 spots right now."
	}
	for _, label := range w.Labels {
		msg += "\n• " + label
	}
	return msg
}

// renderPlayerCard builds the /me reply.
func renderPlayerCard(p *PlayerCard) string {
	rank := "?"
	if p.Rank != nil {
		rank = fmt.Sprintf("#%d", *p.Rank)
	}

	msg := fmt.Sprintf("👤 PLAYER CARD — %s\n\n", p.Username)
	msg += fmt.Sprintf("SteamID: %s\n", p.SteamID)
	msg += fmt.Sprintf("Clan: %s\n", p.ClanName)
	msg += fmt.Sprintf("Rank: %s\n", rank)
	msg += fmt.Sprintf("Kills: %s\n", formatStat(p.Kills))
	msg += fmt.Sprintf("Deaths: %s\n", formatStat(p.Deaths))
	msg += fmt.Sprintf("K/D: %.2f\n", p.KDR)
	msg += fmt.Sprintf("Playtime: %s", formatPlaytime(p.PlaytimeSeconds))
	return msg
}

// renderDigest builds the daily digest message from per-metric trend views.
func renderDigest(date time.Time, views []*TrendView) string {
	msg := fmt.Sprintf("🌅 DAILY DIGEST — %s\n\n", date.UTC().Format("2006-01-02"))

	if len(views) == 0 {
		return msg + "No movement recorded."
	}
	for _, v := range views {
		if len(v.Entries) == 0 {
			msg += fmt.Sprintf("%s: no movement\n", v.Label)
			continue
		}
		top := v.Entries[0]
		msg += fmt.Sprintf("%s: %s +%s\n", v.Label, top.Clan, formatStat(top.Delta))
	}
	return strings.TrimRight(msg, "\n")
}

// StatusText renders the /status reply.
func (e *Engine) StatusText(ctx context.Context) (string, error) {
	status, err := e.Status(ctx)
	if err != nil {
		return "", err
	}
	return renderStatus(status), nil
}

// WinsText renders the /wins summary.
func (e *Engine) WinsText(ctx context.Context) (string, error) {
	summary, err := e.WinsSummary(ctx)
	if err != nil {
		return "", err
	}
	return renderWins(summary), nil
}

// PlayerCardText renders the /me reply for one SteamID.
func (e *Engine) PlayerCardText(ctx context.Context, steamID string) (string, error) {
	card, err := e.PlayerCard(ctx, steamID)
	if err != nil {
		return "", err
	}
	return renderPlayerCard(card), nil
}

// RosterCardTexts renders one message per clan member for the /wins roster
// section.
func (e *Engine) RosterCardTexts(ctx context.Context) ([]string, error) {
	cards, err := e.RosterCards(ctx)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(cards))
	for _, mc := range cards {
		if mc.Card == nil {
			texts = append(texts, fmt.Sprintf("Could not find stats for SteamID %s on the PvP leaderboard.", mc.SteamID))
			continue
		}
		text := renderPlayerCard(mc.Card)
		if mc.Mention != "" {
			text = mc.Mention + "\n" + text
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func formatPlaytime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
}

func formatStatPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatStat(*v)
}

// formatStat renders whole stats without decimals and fractional ones with
// two, both with thousands separators.
func formatStat(v float64) string {
	if v == math.Trunc(v) {
		return addCommas(strconv.FormatFloat(v, 'f', 0, 64))
	}
	return addCommas(strconv.FormatFloat(v, 'f', 2, 64))
}

func addCommas(s string) string {
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)
	if n <= 3 {
		if len(parts) == 2 {
			return intPart + "." + parts[1]
		}
		return intPart
	}
	var result []byte
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	if len(parts) == 2 {
		return string(result) + "." + parts[1]
	}
	return string(result)
}

func stringToUpper(s string) string {
	if len(s) == 0 {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "—"
	}
	return strings.Join(items, ", ")
}
