package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/cache"
	"finbot/internal/sheets"
)

const (
	seenCacheSize = 4096
	seenCacheTTL  = 24 * time.Hour
)

// MirrorWorker replays append events into a second ledger, usually the
// Google Sheets spreadsheet of each account.
type MirrorWorker struct {
	mirror sheets.Opener
	seen   *cache.LRUCache[string]
	logger *slog.Logger
}

func NewMirrorWorker(mirror sheets.Opener, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		mirror: mirror,
		seen:   cache.NewLRUCache[string](seenCacheSize, seenCacheTTL),
		logger: logger,
	}
}

// Seen exposes the redelivery cache so it can be swept by a cache.Manager.
func (w *MirrorWorker) Seen() *cache.LRUCache[string] {
	return w.seen
}

// HandleAppendMessage writes the message's record into the mirror ledger.
// A message already mirrored by this process is acknowledged without
// writing again.
func (w *MirrorWorker) HandleAppendMessage(ctx context.Context, msg *amqp.TransactionAppendedMessage) error {
	id := msg.ID.String()
	if ref, ok := w.seen.Get(id); ok {
		w.logger.InfoContext(ctx, "Skipping already mirrored message",
			"message_id", id,
			"row_ref", ref)
		return nil
	}

	tx, err := msg.Transaction()
	if err != nil {
		return fmt.Errorf("decode record of message %s: %w", id, err)
	}

	ledger, err := w.mirror.Open(ctx, msg.Target)
	if err != nil {
		return fmt.Errorf("open mirror ledger: %w", err)
	}
	sheet, err := ledger.ResolveOrCreate(ctx, msg.Title)
	if err != nil {
		return fmt.Errorf("resolve mirror sheet %q: %w", msg.Title, err)
	}
	ref, err := ledger.Append(ctx, sheet, tx)
	if err != nil {
		return fmt.Errorf("append to mirror sheet %q: %w", msg.Title, err)
	}
	w.seen.Set(id, ref)

	w.logger.InfoContext(ctx, "Mirrored transaction",
		"message_id", id,
		"request_id", msg.CorrelationID,
		"title", msg.Title,
		"source_row", msg.RowRef,
		"mirror_row", ref)
	return nil
}
