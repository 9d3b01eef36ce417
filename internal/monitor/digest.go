package monitor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/walo-labs/leaderboard-monitor/internal/metrics"
)

// digestWindow is the lookback for the daily digest, independent of the
// pinned trend window.
const digestWindow = 24 * time.Hour

// sendDailyDigest posts one summary message with each display metric's top
// mover over the last day. The date-keyed dedup guard keeps restarts from
// double-posting.
func (e *Engine) sendDailyDigest(ctx context.Context) {
	today := time.Now().UTC()
	dedupKey := "digest:" + today.Format("2006-01-02")
	if e.dedup.AlreadySent(ctx, dedupKey) {
		metrics.AlertsDeduplicatedTotal.WithLabelValues("digest").Inc()
		e.logger.Info("daily digest already sent, skipping", "date", today.Format("2006-01-02"))
		return
	}

	views := make([]*TrendView, len(e.display))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, def := range e.display {
		g.Go(func() error {
			view, err := e.TrendView(gctx, def.Key, digestWindow)
			if err != nil {
				return fmt.Errorf("digest trend %s: %w", def.Key, err)
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("daily digest aborted", "error", err)
		return
	}

	if _, err := e.sink.SendMessage(e.chatID, renderDigest(today, views)); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues("digest").Inc()
		e.logger.Error("send daily digest failed", "error", err)
		return
	}
	metrics.AlertsSentTotal.WithLabelValues("digest").Inc()
	e.dedup.Record(ctx, dedupKey)
}

// nextDigestTimer fires at the next configured digest hour, UTC.
func (e *Engine) nextDigestTimer() *time.Timer {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), e.digestHour, 0, 0, 0, time.UTC)
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	duration := time.Until(next)
	e.logger.Info("next daily digest", "at", next.Format(time.RFC3339), "in", duration.Round(time.Minute))
	return time.NewTimer(duration)
}
