package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/walo-labs/leaderboard-monitor/internal/monitor"
	"github.com/walo-labs/leaderboard-monitor/internal/rusticated"
	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

const telegramAPI = "https://api.telegram.org/bot"

// Monitor is the slice of the engine the bot drives: the tracking switch and
// the rendered replies for the read commands.
type Monitor interface {
	TrackingEnabled() bool
	SetTracking(enabled bool)
	StatusText(ctx context.Context) (string, error)
	WinsText(ctx context.Context) (string, error)
	PlayerCardText(ctx context.Context, steamID string) (string, error)
	RosterCardTexts(ctx context.Context) ([]string, error)
}

type Bot struct {
	token   string
	store   *store.Store
	monitor Monitor
	logger  *slog.Logger
	client  *http.Client
	offset  int64
}

func NewBot(token string, s *store.Store, logger *slog.Logger) *Bot {
	return &Bot{
		token:  token,
		store:  s,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// AttachMonitor wires the engine in after construction. The bot is the
// engine's message sink, so the two cannot be built in one pass; call this
// before Run.
func (b *Bot) AttachMonitor(m Monitor) { b.monitor = m }

// SendMessage sends a text message to a Telegram chat and returns the new
// message's ID so callers can edit it later.
func (b *Bot) SendMessage(chatID int64, text string) (int64, error) {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	body, _ := json.Marshal(payload)

	resp, err := b.client.Post(
		telegramAPI+b.token+"/sendMessage",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return 0, fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}

	var result struct {
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode send response: %w", err)
	}
	return result.Result.MessageID, nil
}

// EditMessage replaces the text of a previously sent message.
func (b *Bot) EditMessage(chatID, messageID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	body, _ := json.Marshal(payload)

	resp, err := b.client.Post(
		telegramAPI+b.token+"/editMessageText",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}
	return nil
}

// Run starts the long-polling loop for incoming Telegram messages.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			b.poll(ctx)
		}
	}
}

func (b *Bot) poll(ctx context.Context) {
	url := fmt.Sprintf("%s%s/getUpdates?offset=%d&timeout=30", telegramAPI, b.token, b.offset)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		b.logger.Error("create poll request", "error", err)
		return
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("poll updates", "error", err)
		time.Sleep(5 * time.Second)
		return
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool `json:"ok"`
		Result []struct {
			UpdateID int64 `json:"update_id"`
			Message  *struct {
				Chat struct {
					ID int64 `json:"id"`
				} `json:"chat"`
				From struct {
					ID       int64  `json:"id"`
					Username string `json:"username"`
				} `json:"from"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		b.logger.Error("decode updates", "error", err)
		return
	}

	for _, u := range result.Result {
		b.offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}

		chatID := u.Message.Chat.ID
		userID := u.Message.From.ID
		cmd, arg := splitCommand(u.Message.Text)
		if cmd == "" {
			continue
		}

		switch cmd {
		case "/track":
			b.handleTrack(ctx, chatID, arg)
		case "/untrack":
			b.handleUntrack(ctx, chatID, arg)
		case "/trackplayer":
			b.handleTrackPlayer(ctx, chatID, arg)
		case "/untrackplayer":
			b.handleUntrackPlayer(ctx, chatID, arg)
		case "/toggle":
			b.handleToggle(chatID)
		case "/status":
			b.handleStatus(ctx, chatID)
		case "/link":
			b.handleLink(ctx, chatID, userID, arg)
		case "/me":
			b.handleMe(ctx, chatID, userID)
		case "/wins":
			b.handleWins(ctx, chatID)
		case "/help", "/start":
			b.handleHelp(chatID)
		default:
			b.reply(chatID, "Unknown command. Send /help for available commands.")
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.SendMessage(chatID, text); err != nil {
		b.logger.Error("send reply", "error", err)
	}
}

func (b *Bot) handleTrack(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		b.reply(chatID, "Usage: /track <clan name> (e.g. /track Walobots)")
		return
	}

	if err := b.store.AddWatchClan(ctx, arg); err != nil {
		b.logger.Error("add watch clan", "clan", arg, "error", err)
		b.reply(chatID, "Error saving the watch list. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Added %s to the watched clans list.", arg))
}

func (b *Bot) handleUntrack(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		b.reply(chatID, "Usage: /untrack <clan name>")
		return
	}

	if err := b.store.RemoveWatchClan(ctx, arg); err != nil {
		b.logger.Error("remove watch clan", "clan", arg, "error", err)
		b.reply(chatID, "Error saving the watch list. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Removed %s from the watched clans list.", arg))
}

func (b *Bot) handleTrackPlayer(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		b.reply(chatID, "Usage: /trackplayer <steamId64> (17-digit numeric SteamID).")
		return
	}
	if !rusticated.ValidSteamID(arg) {
		b.reply(chatID, "Please provide a valid 17-digit numeric SteamID.")
		return
	}

	watched, err := b.store.WatchPlayers(ctx)
	if err != nil {
		b.logger.Error("list watch players", "error", err)
		b.reply(chatID, "Error reading the watch list. Please try again.")
		return
	}
	for _, id := range watched {
		if id == arg {
			b.reply(chatID, fmt.Sprintf("Player %s is already being tracked.", arg))
			return
		}
	}

	if err := b.store.AddWatchPlayer(ctx, arg); err != nil {
		b.logger.Error("add watch player", "steam_id", arg, "error", err)
		b.reply(chatID, "Error saving the watch list. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Now tracking player SteamID %s.", arg))
}

func (b *Bot) handleUntrackPlayer(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		b.reply(chatID, "Usage: /untrackplayer <steamId64>.")
		return
	}

	if err := b.store.RemoveWatchPlayer(ctx, arg); err != nil {
		b.logger.Error("remove watch player", "steam_id", arg, "error", err)
		b.reply(chatID, "Error saving the watch list. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Stopped tracking player %s.", arg))
}

func (b *Bot) handleToggle(chatID int64) {
	enabled := !b.monitor.TrackingEnabled()
	b.monitor.SetTracking(enabled)

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	b.reply(chatID, fmt.Sprintf("✅ Watch-clan tracking is now %s.", state))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	text, err := b.monitor.StatusText(ctx)
	if err != nil {
		b.logger.Error("build status", "error", err)
		b.reply(chatID, "Error fetching tracking status. Please try again.")
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) handleLink(ctx context.Context, chatID, userID int64, arg string) {
	if !rusticated.ValidSteamID(arg) {
		b.reply(chatID, "Please provide a valid 17-digit numeric SteamID, e.g. /link 76561198375218320.")
		return
	}

	if err := b.store.LinkUser(ctx, userID, arg); err != nil {
		b.logger.Error("link user", "user_id", userID, "error", err)
		b.reply(chatID, "Error saving your link. Please try again.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Linked your account to SteamID %s.", arg))
}

func (b *Bot) handleMe(ctx context.Context, chatID, userID int64) {
	steamID, err := b.store.LinkedSteamID(ctx, userID)
	if errors.Is(err, store.ErrNotLinked) {
		b.reply(chatID, "You don't have a linked SteamID yet. Use /link 7656... first.")
		return
	}
	if err != nil {
		b.logger.Error("lookup linked steam id", "user_id", userID, "error", err)
		b.reply(chatID, "Error looking up your linked SteamID. Please try again.")
		return
	}

	text, err := b.monitor.PlayerCardText(ctx, steamID)
	if errors.Is(err, monitor.ErrPlayerNotFound) {
		b.reply(chatID, "I couldn't find you on the current PvP leaderboard. Make sure you've played this wipe on the configured server.")
		return
	}
	if err != nil {
		b.logger.Error("build player card", "steam_id", steamID, "error", err)
		b.reply(chatID, "Error fetching player stats. Please try again later.")
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) handleWins(ctx context.Context, chatID int64) {
	text, err := b.monitor.WinsText(ctx)
	if err != nil {
		b.logger.Error("build wins summary", "error", err)
		b.reply(chatID, "Error fetching leaderboards. Please try again later.")
		return
	}
	b.reply(chatID, text)

	cards, err := b.monitor.RosterCardTexts(ctx)
	if err != nil {
		b.logger.Error("build roster cards", "error", err)
		return
	}
	for _, card := range cards {
		b.reply(chatID, card)
	}
}

func (b *Bot) handleHelp(chatID int64) {
	msg := "🤖 Leaderboard Monitor Bot\n\n" +
		"Commands:\n" +
		"/track <clan> — Add a clan to the watch list\n" +
		"/untrack <clan> — Remove a clan from the watch list\n" +
		"/trackplayer <steamId64> — Start tracking a player\n" +
		"/untrackplayer <steamId64> — Stop tracking a player\n" +
		"/toggle — Toggle clan and player watch alerts\n" +
		"/status — Show tracking status and watched clans\n" +
		"/link <steamId64> — Link your account to a SteamID\n" +
		"/me — Show your stats from the PvP leaderboard\n" +
		"/wins — Show boards our clan leads, plus member stats\n" +
		"/help — Show this message"
	b.reply(chatID, msg)
}

// splitCommand separates a message into its leading slash command and the
// remaining argument text. The @BotName suffix Telegram appends in group
// chats is stripped, and the command is lowercased. Messages that are not
// commands return an empty cmd.
func splitCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	cmd, arg, _ = strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
