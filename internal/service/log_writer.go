package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
)

// LogWriter inserts records and then announces them on the changefeed
type LogWriter struct {
	store     LogStore
	publisher Publisher
	logger    *zap.Logger
}

// NewLogWriter creates a log writer. publisher may be nil.
func NewLogWriter(store LogStore, publisher Publisher, logger *zap.Logger) *LogWriter {
	return &LogWriter{store: store, publisher: publisher, logger: logger}
}

// Append inserts rec. A failed announcement is logged and does not fail the
// write; stream reconciliation recovers it from the store.
func (w *LogWriter) Append(ctx context.Context, rec *domain.LogRecord) error {
	if err := w.store.Insert(ctx, rec); err != nil {
		return err
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, rec); err != nil {
			w.logger.Warn("Failed to publish log notification",
				zap.String("log_id", rec.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
